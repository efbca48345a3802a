package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kamal24h/key-building-app/internal/db"
	"github.com/kamal24h/key-building-app/internal/domain"
)

type BillRepository struct {
	DB *db.Postgres
}

type CreateBillInput struct {
	UnitID        int64
	UnitNumber    string
	BuildingID    int64
	BuildingName  string
	ResidentID    int64
	ResidentName  string
	BillingPeriod string
	TotalAmount   int64
	DueDate       time.Time
	IssueDate     time.Time
	Lines         []CreateBillLine
}

type CreateBillLine struct {
	ChargeType string
	Amount     int64
}

type RecordPaymentInput struct {
	ID            int64
	PaidAmount    int64
	PaymentStatus domain.PaymentStatus
	PaymentDate   *time.Time
	Notes         string
}

const billColumns = `id, unit_id, unit_number, building_id, building_name, resident_id, resident_name,
	billing_period, total_amount, paid_amount, payment_status, due_date, issue_date, payment_date,
	notes, created_at, updated_at`

// Create inserts the bill and its breakdown lines in one transaction. The
// breakdown is a snapshot of the charges used at generation time.
func (r BillRepository) Create(ctx context.Context, in CreateBillInput) (*domain.Bill, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO bills
		(unit_id, unit_number, building_id, building_name, resident_id, resident_name,
		 billing_period, total_amount, paid_amount, payment_status, due_date, issue_date, notes,
		 created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8, 0, $9, $10, $11, '', now(), now())
		RETURNING `+billColumns+`
	`, in.UnitID, in.UnitNumber, in.BuildingID, in.BuildingName, in.ResidentID, in.ResidentName,
		in.BillingPeriod, in.TotalAmount, domain.PaymentPending, in.DueDate, in.IssueDate)
	bill, err := scanBill(row)
	if err != nil {
		return nil, err
	}

	for _, line := range in.Lines {
		var l domain.BillLine
		var amount int64
		err := tx.QueryRow(ctx, `
			INSERT INTO bill_lines (bill_id, charge_type, amount)
			VALUES ($1,$2,$3)
			RETURNING id, bill_id, charge_type, amount
		`, bill.ID, line.ChargeType, line.Amount).Scan(&l.ID, &l.BillID, &l.ChargeType, &amount)
		if err != nil {
			return nil, err
		}
		l.Amount = domain.Money{Amount: amount}
		bill.Lines = append(bill.Lines, l)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return bill, nil
}

// ExistsForPeriod is the generator's idempotence pre-check: at most one bill
// per (unit, billing period).
func (r BillRepository) ExistsForPeriod(ctx context.Context, unitID int64, period string) (bool, error) {
	var exists bool
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bills
			WHERE deleted_at IS NULL AND unit_id=$1 AND billing_period=$2
		)
	`, unitID, period).Scan(&exists)
	return exists, err
}

func (r BillRepository) GetByID(ctx context.Context, id int64) (*domain.Bill, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT `+billColumns+`
		FROM bills
		WHERE id=$1 AND deleted_at IS NULL
	`, id)
	bill, err := scanBill(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := r.loadLines(ctx, bill); err != nil {
		return nil, err
	}
	return bill, nil
}

type BillFilter struct {
	BuildingID *int64
	ResidentID *int64
	Status     *domain.PaymentStatus
	Period     *string
	Limit      int
}

func (r BillRepository) List(ctx context.Context, f BillFilter) ([]domain.Bill, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT `+billColumns+`
		FROM bills
		WHERE deleted_at IS NULL
		  AND ($1::bigint IS NULL OR building_id = $1)
		  AND ($2::bigint IS NULL OR resident_id = $2)
		  AND ($3::text IS NULL OR payment_status = $3)
		  AND ($4::text IS NULL OR billing_period = $4)
		ORDER BY billing_period DESC, id DESC
		LIMIT $5
	`, f.BuildingID, f.ResidentID, f.Status, f.Period, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *b)
	}
	return items, rows.Err()
}

// RecordPayment overwrites the payment fields. Callers must resend every
// field they want preserved; the store has no merge semantics.
func (r BillRepository) RecordPayment(ctx context.Context, in RecordPaymentInput) (*domain.Bill, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE bills
		SET paid_amount=$2, payment_status=$3, payment_date=$4, notes=$5, updated_at=now()
		WHERE id=$1 AND deleted_at IS NULL
		RETURNING `+billColumns+`
	`, in.ID, in.PaidAmount, in.PaymentStatus, in.PaymentDate, in.Notes)
	bill, err := scanBill(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := r.loadLines(ctx, bill); err != nil {
		return nil, err
	}
	return bill, nil
}

func (r BillRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE bills SET deleted_at=now() WHERE id=$1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r BillRepository) loadLines(ctx context.Context, bill *domain.Bill) error {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, bill_id, charge_type, amount
		FROM bill_lines
		WHERE bill_id=$1
		ORDER BY id
	`, bill.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.BillLine
		var amount int64
		if err := rows.Scan(&l.ID, &l.BillID, &l.ChargeType, &amount); err != nil {
			return err
		}
		l.Amount = domain.Money{Amount: amount}
		bill.Lines = append(bill.Lines, l)
	}
	return rows.Err()
}

func scanBill(row interface {
	Scan(dest ...any) error
}) (*domain.Bill, error) {
	var (
		b           domain.Bill
		total, paid int64
		status      string
		paymentDate pgtype.Timestamptz
	)
	if err := row.Scan(
		&b.ID,
		&b.UnitID,
		&b.UnitNumber,
		&b.BuildingID,
		&b.BuildingName,
		&b.ResidentID,
		&b.ResidentName,
		&b.BillingPeriod,
		&total,
		&paid,
		&status,
		&b.DueDate,
		&b.IssueDate,
		&paymentDate,
		&b.Notes,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	b.TotalAmount = domain.Money{Amount: total}
	b.PaidAmount = domain.Money{Amount: paid}
	b.PaymentStatus = domain.PaymentStatus(status)
	if paymentDate.Valid {
		t := paymentDate.Time
		b.PaymentDate = &t
	}
	return &b, nil
}
