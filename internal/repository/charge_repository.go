package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kamal24h/key-building-app/internal/db"
	"github.com/kamal24h/key-building-app/internal/domain"
)

type ChargeRepository struct {
	DB *db.Postgres
}

type CreateChargeInput struct {
	BuildingID    int64
	BuildingName  string
	ChargeType    string
	Amount        int64
	BillingCycle  domain.BillingCycle
	EffectiveDate time.Time
	Description   string
	Active        bool
}

type UpdateChargeInput struct {
	ID            int64
	BuildingID    int64
	BuildingName  string
	ChargeType    string
	Amount        int64
	BillingCycle  domain.BillingCycle
	EffectiveDate time.Time
	Description   string
	Active        bool
}

const chargeColumns = `id, building_id, building_name, charge_type, amount, billing_cycle,
	effective_date, description, active, created_at, updated_at`

func (r ChargeRepository) Create(ctx context.Context, in CreateChargeInput) (*domain.BuildingCharge, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO building_charges
		(building_id, building_name, charge_type, amount, billing_cycle, effective_date, description, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8, now(), now())
		RETURNING `+chargeColumns+`
	`, in.BuildingID, in.BuildingName, in.ChargeType, in.Amount, in.BillingCycle, in.EffectiveDate, in.Description, in.Active)
	return scanCharge(row)
}

func (r ChargeRepository) Update(ctx context.Context, in UpdateChargeInput) (*domain.BuildingCharge, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE building_charges
		SET building_id=$2, building_name=$3, charge_type=$4, amount=$5, billing_cycle=$6,
		    effective_date=$7, description=$8, active=$9, updated_at=now()
		WHERE id=$1 AND deleted_at IS NULL
		RETURNING `+chargeColumns+`
	`, in.ID, in.BuildingID, in.BuildingName, in.ChargeType, in.Amount, in.BillingCycle, in.EffectiveDate, in.Description, in.Active)
	c, err := scanCharge(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r ChargeRepository) GetByID(ctx context.Context, id int64) (*domain.BuildingCharge, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT `+chargeColumns+`
		FROM building_charges
		WHERE id=$1 AND deleted_at IS NULL
	`, id)
	c, err := scanCharge(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// List returns charge definitions, optionally narrowed by building and
// active flag.
func (r ChargeRepository) List(ctx context.Context, buildingID *int64, active *bool, limit int) ([]domain.BuildingCharge, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT `+chargeColumns+`
		FROM building_charges
		WHERE deleted_at IS NULL
		  AND ($1::bigint IS NULL OR building_id = $1)
		  AND ($2::boolean IS NULL OR active = $2)
		ORDER BY effective_date DESC, id DESC
		LIMIT $3
	`, buildingID, active, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCharges(rows)
}

// ListActiveByBuilding is the charge catalog view the bill generator reads.
func (r ChargeRepository) ListActiveByBuilding(ctx context.Context, buildingID int64) ([]domain.BuildingCharge, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT `+chargeColumns+`
		FROM building_charges
		WHERE deleted_at IS NULL AND building_id=$1 AND active
		ORDER BY id
	`, buildingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCharges(rows)
}

func (r ChargeRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE building_charges SET deleted_at=now() WHERE id=$1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectCharges(rows pgx.Rows) ([]domain.BuildingCharge, error) {
	var items []domain.BuildingCharge
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

func scanCharge(row interface {
	Scan(dest ...any) error
}) (*domain.BuildingCharge, error) {
	var (
		c      domain.BuildingCharge
		cycle  string
		amount int64
	)
	if err := row.Scan(
		&c.ID,
		&c.BuildingID,
		&c.BuildingName,
		&c.ChargeType,
		&amount,
		&cycle,
		&c.EffectiveDate,
		&c.Description,
		&c.Active,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.Amount = domain.Money{Amount: amount}
	c.BillingCycle = domain.BillingCycle(cycle)
	return &c, nil
}
