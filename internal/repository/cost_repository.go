package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kamal24h/key-building-app/internal/db"
	"github.com/kamal24h/key-building-app/internal/domain"
)

type CostRepository struct {
	DB *db.Postgres
}

type CreateCostInput struct {
	BuildingID     int64
	BuildingName   string
	CostType       string
	Description    string
	Amount         int64
	CostDate       time.Time
	RecordedBy     int64
	RecordedByName string
	Notes          string
	Status         domain.CostStatus
}

type UpdateCostInput struct {
	ID          int64
	CostType    string
	Description string
	Amount      int64
	CostDate    time.Time
	Notes       string
	Status      domain.CostStatus
}

const costColumns = `id, building_id, building_name, cost_type, description, amount, cost_date,
	recorded_by, recorded_by_name, notes, status, created_at, updated_at`

func (r CostRepository) Create(ctx context.Context, in CreateCostInput) (*domain.BuildingCost, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO building_costs
		(building_id, building_name, cost_type, description, amount, cost_date,
		 recorded_by, recorded_by_name, notes, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, now(), now())
		RETURNING `+costColumns+`
	`, in.BuildingID, in.BuildingName, in.CostType, in.Description, in.Amount, in.CostDate,
		in.RecordedBy, in.RecordedByName, in.Notes, in.Status)
	return scanCost(row)
}

func (r CostRepository) Update(ctx context.Context, in UpdateCostInput) (*domain.BuildingCost, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE building_costs
		SET cost_type=$2, description=$3, amount=$4, cost_date=$5, notes=$6, status=$7, updated_at=now()
		WHERE id=$1 AND deleted_at IS NULL
		RETURNING `+costColumns+`
	`, in.ID, in.CostType, in.Description, in.Amount, in.CostDate, in.Notes, in.Status)
	c, err := scanCost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

type CostFilter struct {
	BuildingID *int64
	CostType   *string
	Status     *domain.CostStatus
	Limit      int
}

func (r CostRepository) List(ctx context.Context, f CostFilter) ([]domain.BuildingCost, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT `+costColumns+`
		FROM building_costs
		WHERE deleted_at IS NULL
		  AND ($1::bigint IS NULL OR building_id = $1)
		  AND ($2::text IS NULL OR cost_type = $2)
		  AND ($3::text IS NULL OR status = $3)
		ORDER BY cost_date DESC, id DESC
		LIMIT $4
	`, f.BuildingID, f.CostType, f.Status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.BuildingCost
	for rows.Next() {
		c, err := scanCost(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

func (r CostRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE building_costs SET deleted_at=now() WHERE id=$1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCost(row interface {
	Scan(dest ...any) error
}) (*domain.BuildingCost, error) {
	var (
		c      domain.BuildingCost
		amount int64
		status string
	)
	if err := row.Scan(
		&c.ID,
		&c.BuildingID,
		&c.BuildingName,
		&c.CostType,
		&c.Description,
		&amount,
		&c.CostDate,
		&c.RecordedBy,
		&c.RecordedByName,
		&c.Notes,
		&status,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.Amount = domain.Money{Amount: amount}
	c.Status = domain.CostStatus(status)
	return &c, nil
}
