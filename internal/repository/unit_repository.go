package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kamal24h/key-building-app/internal/db"
	"github.com/kamal24h/key-building-app/internal/domain"
)

type UnitRepository struct {
	DB *db.Postgres
}

type CreateUnitInput struct {
	BuildingID   int64
	BuildingName string
	UnitNumber   string
	Floor        int
	Area         float64
	Bedrooms     int
	Bathrooms    int
	Status       domain.UnitStatus
}

type UpdateUnitInput struct {
	ID           int64
	BuildingID   int64
	BuildingName string
	UnitNumber   string
	Floor        int
	Area         float64
	Bedrooms     int
	Bathrooms    int
	Status       domain.UnitStatus
}

const unitColumns = `id, building_id, building_name, unit_number, floor, area, bedrooms, bathrooms,
	resident_id, resident_name, resident_email, status, created_at, updated_at`

func (r UnitRepository) Create(ctx context.Context, in CreateUnitInput) (*domain.Unit, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO units (building_id, building_name, unit_number, floor, area, bedrooms, bathrooms, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8, now(), now())
		RETURNING `+unitColumns+`
	`, in.BuildingID, in.BuildingName, in.UnitNumber, in.Floor, in.Area, in.Bedrooms, in.Bathrooms, in.Status)
	return scanUnit(row)
}

func (r UnitRepository) Update(ctx context.Context, in UpdateUnitInput) (*domain.Unit, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE units
		SET building_id=$2, building_name=$3, unit_number=$4, floor=$5, area=$6, bedrooms=$7, bathrooms=$8, status=$9, updated_at=now()
		WHERE id=$1 AND deleted_at IS NULL
		RETURNING `+unitColumns+`
	`, in.ID, in.BuildingID, in.BuildingName, in.UnitNumber, in.Floor, in.Area, in.Bedrooms, in.Bathrooms, in.Status)
	u, err := scanUnit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// AssignResident snapshots the resident onto the unit and flips the status to
// occupied. Nothing keeps the two consistent afterwards; status remains a
// manually managed field.
func (r UnitRepository) AssignResident(ctx context.Context, unitID, residentID int64, name, email string) (*domain.Unit, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE units
		SET resident_id=$2, resident_name=$3, resident_email=$4, status=$5, updated_at=now()
		WHERE id=$1 AND deleted_at IS NULL
		RETURNING `+unitColumns+`
	`, unitID, residentID, name, email, domain.UnitOccupied)
	u, err := scanUnit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r UnitRepository) VacateResident(ctx context.Context, unitID int64) (*domain.Unit, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE units
		SET resident_id=NULL, resident_name='', resident_email='', status=$2, updated_at=now()
		WHERE id=$1 AND deleted_at IS NULL
		RETURNING `+unitColumns+`
	`, unitID, domain.UnitVacant)
	u, err := scanUnit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r UnitRepository) GetByID(ctx context.Context, id int64) (*domain.Unit, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT `+unitColumns+`
		FROM units
		WHERE id=$1 AND deleted_at IS NULL
	`, id)
	u, err := scanUnit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r UnitRepository) List(ctx context.Context, limit int) ([]domain.Unit, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT `+unitColumns+`
		FROM units
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUnits(rows)
}

func (r UnitRepository) ListByBuilding(ctx context.Context, buildingID int64) ([]domain.Unit, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT `+unitColumns+`
		FROM units
		WHERE deleted_at IS NULL AND building_id=$1
		ORDER BY unit_number, id
	`, buildingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUnits(rows)
}

func (r UnitRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE units SET deleted_at=now() WHERE id=$1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectUnits(rows pgx.Rows) ([]domain.Unit, error) {
	var items []domain.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *u)
	}
	return items, rows.Err()
}

func scanUnit(row interface {
	Scan(dest ...any) error
}) (*domain.Unit, error) {
	var (
		u          domain.Unit
		residentID pgtype.Int8
		status     string
	)
	if err := row.Scan(
		&u.ID,
		&u.BuildingID,
		&u.BuildingName,
		&u.UnitNumber,
		&u.Floor,
		&u.Area,
		&u.Bedrooms,
		&u.Bathrooms,
		&residentID,
		&u.ResidentName,
		&u.ResidentEmail,
		&status,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if residentID.Valid {
		u.ResidentID = &residentID.Int64
	}
	u.Status = domain.UnitStatus(status)
	return &u, nil
}
