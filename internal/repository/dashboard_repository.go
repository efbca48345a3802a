package repository

import (
	"context"

	"github.com/kamal24h/key-building-app/internal/db"
)

type DashboardRepository struct {
	DB *db.Postgres
}

type DashboardSummary struct {
	TotalBuildings int64
	TotalUnits     int64
	OccupiedUnits  int64
	TotalManagers  int64
	TotalResidents int64
}

type BillingSummary struct {
	TotalBilled    int64
	TotalCollected int64
	OpenBills      int64
}

func (r DashboardRepository) Summary(ctx context.Context) (DashboardSummary, error) {
	var s DashboardSummary
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM buildings WHERE deleted_at IS NULL),
			(SELECT COUNT(*) FROM units WHERE deleted_at IS NULL),
			(SELECT COUNT(*) FROM units WHERE deleted_at IS NULL AND resident_id IS NOT NULL),
			(SELECT COUNT(*) FROM user_profiles WHERE deleted_at IS NULL AND role = 'manager'),
			(SELECT COUNT(*) FROM user_profiles WHERE deleted_at IS NULL AND role = 'resident')
	`).Scan(&s.TotalBuildings, &s.TotalUnits, &s.OccupiedUnits, &s.TotalManagers, &s.TotalResidents)
	return s, err
}

func (r DashboardRepository) Billing(ctx context.Context) (BillingSummary, error) {
	var s BillingSummary
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(total_amount),0),
			COALESCE(SUM(paid_amount),0),
			COUNT(*) FILTER (WHERE payment_status IN ('pending','partial'))
		FROM bills
		WHERE deleted_at IS NULL
	`).Scan(&s.TotalBilled, &s.TotalCollected, &s.OpenBills)
	return s, err
}
