package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kamal24h/key-building-app/internal/domain"
	"github.com/kamal24h/key-building-app/internal/repository"
)

var (
	ErrNoEligibleUnits = errors.New("no units with assigned residents in this building")
	ErrNoActiveCharges = errors.New("no active charges defined for this building")
	ErrInvalidPeriod   = errors.New("billing period must be formatted YYYY-MM")
	ErrInvalidAmount   = errors.New("payment amount must be positive")
)

// BatchResult reports the outcome of a best-effort batch. Batches are
// at-least-once: a mid-batch failure leaves earlier writes in place, and the
// counts make that partial completion visible to callers.
type BatchResult struct {
	Requested int `json:"requested"`
	Created   int `json:"created"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

type UnitDirectory interface {
	ListByBuilding(ctx context.Context, buildingID int64) ([]domain.Unit, error)
}

type ChargeCatalog interface {
	ListActiveByBuilding(ctx context.Context, buildingID int64) ([]domain.BuildingCharge, error)
}

type BillLedger interface {
	ExistsForPeriod(ctx context.Context, unitID int64, period string) (bool, error)
	Create(ctx context.Context, in repository.CreateBillInput) (*domain.Bill, error)
	GetByID(ctx context.Context, id int64) (*domain.Bill, error)
	RecordPayment(ctx context.Context, in repository.RecordPaymentInput) (*domain.Bill, error)
}

type BillingService struct {
	Units   UnitDirectory
	Charges ChargeCatalog
	Bills   BillLedger
	Logger  *slog.Logger

	// NormalizeCycles prorates quarterly and annual charges to a monthly
	// share before summing. Off by default: the historical behavior bills
	// every active charge at face value each period.
	NormalizeCycles bool
}

// Generate creates one bill per unit of the building that has an assigned
// resident and no bill for the period yet. The total and breakdown are a
// snapshot of the active charges at generation time; later charge edits do
// not touch existing bills.
func (s BillingService) Generate(ctx context.Context, buildingID int64, period string) (*BatchResult, error) {
	dueDate, err := dueDateFor(period)
	if err != nil {
		return nil, ErrInvalidPeriod
	}

	units, err := s.Units.ListByBuilding(ctx, buildingID)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	eligible := units[:0:0]
	for _, u := range units {
		if u.ResidentID != nil {
			eligible = append(eligible, u)
		}
	}
	if len(eligible) == 0 {
		return nil, ErrNoEligibleUnits
	}

	charges, err := s.Charges.ListActiveByBuilding(ctx, buildingID)
	if err != nil {
		return nil, fmt.Errorf("list charges: %w", err)
	}
	if len(charges) == 0 {
		return nil, ErrNoActiveCharges
	}

	var total int64
	lines := make([]repository.CreateBillLine, 0, len(charges))
	for _, c := range charges {
		amount := c.Amount.Amount
		if s.NormalizeCycles {
			amount = monthlyShare(amount, c.BillingCycle)
		}
		lines = append(lines, repository.CreateBillLine{ChargeType: c.ChargeType, Amount: amount})
		total += amount
	}

	issueDate := time.Now()
	res := &BatchResult{Requested: len(eligible)}
	for _, unit := range eligible {
		exists, err := s.Bills.ExistsForPeriod(ctx, unit.ID, period)
		if err != nil {
			res.Failed++
			s.Logger.Error("bill pre-check failed", "unit_id", unit.ID, "period", period, "err", err)
			continue
		}
		if exists {
			res.Skipped++
			continue
		}
		_, err = s.Bills.Create(ctx, repository.CreateBillInput{
			UnitID:        unit.ID,
			UnitNumber:    unit.UnitNumber,
			BuildingID:    unit.BuildingID,
			BuildingName:  unit.BuildingName,
			ResidentID:    *unit.ResidentID,
			ResidentName:  unit.ResidentName,
			BillingPeriod: period,
			TotalAmount:   total,
			DueDate:       dueDate,
			IssueDate:     issueDate,
			Lines:         lines,
		})
		if err != nil {
			res.Failed++
			s.Logger.Error("bill create failed", "unit_id", unit.ID, "period", period, "err", err)
			continue
		}
		res.Created++
	}
	return res, nil
}

// RecordPayment accumulates a payment onto a bill and re-derives its status.
// The payment date is stamped only when the bill becomes fully paid; partial
// payments keep the prior value. Overpayment is accepted as-is.
func (s BillingService) RecordPayment(ctx context.Context, billID, amount int64, paymentDate time.Time, notes string) (*domain.Bill, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	bill, err := s.Bills.GetByID(ctx, billID)
	if err != nil {
		return nil, err
	}

	newPaid := bill.PaidAmount.Amount + amount
	status := domain.PaymentPending
	switch {
	case newPaid >= bill.TotalAmount.Amount:
		status = domain.PaymentPaid
	case newPaid > 0:
		status = domain.PaymentPartial
	}

	date := bill.PaymentDate
	if status == domain.PaymentPaid {
		date = &paymentDate
	}
	if notes == "" {
		notes = bill.Notes
	}

	return s.Bills.RecordPayment(ctx, repository.RecordPaymentInput{
		ID:            billID,
		PaidAmount:    newPaid,
		PaymentStatus: status,
		PaymentDate:   date,
		Notes:         notes,
	})
}

// dueDateFor returns the 5th of the month following the billing period.
func dueDateFor(period string) (time.Time, error) {
	start, err := time.Parse("2006-01", period)
	if err != nil {
		return time.Time{}, err
	}
	next := start.AddDate(0, 1, 0)
	return time.Date(next.Year(), next.Month(), 5, 0, 0, 0, 0, time.UTC), nil
}

func monthlyShare(amount int64, cycle domain.BillingCycle) int64 {
	switch cycle {
	case domain.CycleQuarterly:
		return amount / 3
	case domain.CycleAnnually:
		return amount / 12
	default:
		return amount
	}
}
