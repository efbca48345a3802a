package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kamal24h/key-building-app/internal/db"
	"github.com/kamal24h/key-building-app/internal/domain"
)

type BuildingRepository struct {
	DB *db.Postgres
}

type CreateBuildingInput struct {
	Name       string
	Address    string
	TotalUnits int
	Status     domain.BuildingStatus
}

type UpdateBuildingInput struct {
	ID         int64
	Name       string
	Address    string
	TotalUnits int
	Status     domain.BuildingStatus
}

func (r BuildingRepository) Create(ctx context.Context, in CreateBuildingInput) (*domain.Building, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO buildings (name, address, total_units, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4, now(), now())
		RETURNING id, name, address, total_units, manager_id, manager_name, status, created_at, updated_at
	`, in.Name, in.Address, in.TotalUnits, in.Status)
	return scanBuilding(row)
}

func (r BuildingRepository) Update(ctx context.Context, in UpdateBuildingInput) (*domain.Building, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE buildings
		SET name=$2, address=$3, total_units=$4, status=$5, updated_at=now()
		WHERE id=$1 AND deleted_at IS NULL
		RETURNING id, name, address, total_units, manager_id, manager_name, status, created_at, updated_at
	`, in.ID, in.Name, in.Address, in.TotalUnits, in.Status)
	b, err := scanBuilding(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// AssignManager stores the manager reference together with a name snapshot.
func (r BuildingRepository) AssignManager(ctx context.Context, buildingID int64, managerID *int64, managerName string) (*domain.Building, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE buildings
		SET manager_id=$2, manager_name=$3, updated_at=now()
		WHERE id=$1 AND deleted_at IS NULL
		RETURNING id, name, address, total_units, manager_id, manager_name, status, created_at, updated_at
	`, buildingID, managerID, managerName)
	b, err := scanBuilding(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r BuildingRepository) GetByID(ctx context.Context, id int64) (*domain.Building, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT id, name, address, total_units, manager_id, manager_name, status, created_at, updated_at
		FROM buildings
		WHERE id=$1 AND deleted_at IS NULL
	`, id)
	b, err := scanBuilding(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r BuildingRepository) List(ctx context.Context, limit int) ([]domain.Building, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, name, address, total_units, manager_id, manager_name, status, created_at, updated_at
		FROM buildings
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Building
	for rows.Next() {
		var (
			b         domain.Building
			managerID pgtype.Int8
			status    string
		)
		if err := rows.Scan(&b.ID, &b.Name, &b.Address, &b.TotalUnits, &managerID, &b.ManagerName, &status, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		if managerID.Valid {
			b.ManagerID = &managerID.Int64
		}
		b.Status = domain.BuildingStatus(status)
		items = append(items, b)
	}
	return items, rows.Err()
}

// Delete soft-deletes a building. Units are intentionally left untouched.
func (r BuildingRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE buildings SET deleted_at=now() WHERE id=$1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanBuilding(row interface {
	Scan(dest ...any) error
}) (*domain.Building, error) {
	var (
		b         domain.Building
		managerID pgtype.Int8
		status    string
	)
	if err := row.Scan(
		&b.ID,
		&b.Name,
		&b.Address,
		&b.TotalUnits,
		&managerID,
		&b.ManagerName,
		&status,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if managerID.Valid {
		b.ManagerID = &managerID.Int64
	}
	b.Status = domain.BuildingStatus(status)
	return &b, nil
}
