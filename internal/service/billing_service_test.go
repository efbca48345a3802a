package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamal24h/key-building-app/internal/domain"
	"github.com/kamal24h/key-building-app/internal/repository"
)

type fakeUnits struct {
	units []domain.Unit
}

func (f fakeUnits) ListByBuilding(ctx context.Context, buildingID int64) ([]domain.Unit, error) {
	return f.units, nil
}

type fakeCharges struct {
	charges []domain.BuildingCharge
}

func (f fakeCharges) ListActiveByBuilding(ctx context.Context, buildingID int64) ([]domain.BuildingCharge, error) {
	return f.charges, nil
}

type fakeLedger struct {
	mu     sync.Mutex
	nextID int64
	bills  map[int64]*domain.Bill
	index  map[string]int64

	failCreateFor map[int64]bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{bills: map[int64]*domain.Bill{}, index: map[string]int64{}}
}

func periodKey(unitID int64, period string) string {
	return fmt.Sprintf("%d|%s", unitID, period)
}

func (f *fakeLedger) ExistsForPeriod(ctx context.Context, unitID int64, period string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.index[periodKey(unitID, period)]
	return ok, nil
}

func (f *fakeLedger) Create(ctx context.Context, in repository.CreateBillInput) (*domain.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateFor[in.UnitID] {
		return nil, fmt.Errorf("write failed")
	}
	f.nextID++
	lines := make([]domain.BillLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, domain.BillLine{ChargeType: l.ChargeType, Amount: domain.Money{Amount: l.Amount}})
	}
	b := &domain.Bill{
		ID:            f.nextID,
		UnitID:        in.UnitID,
		UnitNumber:    in.UnitNumber,
		BuildingID:    in.BuildingID,
		BuildingName:  in.BuildingName,
		ResidentID:    in.ResidentID,
		ResidentName:  in.ResidentName,
		BillingPeriod: in.BillingPeriod,
		TotalAmount:   domain.Money{Amount: in.TotalAmount},
		PaymentStatus: domain.PaymentPending,
		DueDate:       in.DueDate,
		IssueDate:     in.IssueDate,
		Lines:         lines,
	}
	f.bills[b.ID] = b
	f.index[periodKey(in.UnitID, in.BillingPeriod)] = b.ID
	return b, nil
}

func (f *fakeLedger) GetByID(ctx context.Context, id int64) (*domain.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bills[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (f *fakeLedger) RecordPayment(ctx context.Context, in repository.RecordPaymentInput) (*domain.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bills[in.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	b.PaidAmount = domain.Money{Amount: in.PaidAmount}
	b.PaymentStatus = in.PaymentStatus
	b.PaymentDate = in.PaymentDate
	b.Notes = in.Notes
	copied := *b
	return &copied, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func residentUnit(id, residentID int64) domain.Unit {
	return domain.Unit{
		ID:           id,
		BuildingID:   1,
		BuildingName: "North Tower",
		UnitNumber:   fmt.Sprintf("A-%d", id),
		ResidentID:   &residentID,
		ResidentName: fmt.Sprintf("Resident %d", residentID),
		Status:       domain.UnitOccupied,
	}
}

func monthlyCharge(chargeType string, cents int64) domain.BuildingCharge {
	return domain.BuildingCharge{
		BuildingID:   1,
		ChargeType:   chargeType,
		Amount:       domain.Money{Amount: cents},
		BillingCycle: domain.CycleMonthly,
		Active:       true,
	}
}

func TestGenerateCreatesBillPerEligibleUnit(t *testing.T) {
	ledger := newFakeLedger()
	svc := BillingService{
		Units: fakeUnits{units: []domain.Unit{
			residentUnit(1, 101),
			residentUnit(2, 102),
			residentUnit(3, 103),
			{ID: 4, BuildingID: 1, UnitNumber: "A-4", Status: domain.UnitVacant},
		}},
		Charges: fakeCharges{charges: []domain.BuildingCharge{
			monthlyCharge("maintenance", 10000),
			monthlyCharge("water", 5000),
		}},
		Bills:  ledger,
		Logger: testLogger(),
	}

	res, err := svc.Generate(context.Background(), 1, "2026-08")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Requested)
	assert.Equal(t, 3, res.Created)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 0, res.Failed)

	require.Len(t, ledger.bills, 3)
	for _, b := range ledger.bills {
		assert.Equal(t, int64(15000), b.TotalAmount.Amount)
		assert.Equal(t, domain.PaymentPending, b.PaymentStatus)
		assert.Equal(t, "2026-08", b.BillingPeriod)
		assert.Equal(t, time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC), b.DueDate)
		require.Len(t, b.Lines, 2)
		assert.Equal(t, "maintenance", b.Lines[0].ChargeType)
		assert.Equal(t, int64(10000), b.Lines[0].Amount.Amount)
	}
}

func TestGenerateIsIdempotentPerPeriod(t *testing.T) {
	ledger := newFakeLedger()
	svc := BillingService{
		Units: fakeUnits{units: []domain.Unit{
			residentUnit(1, 101),
			residentUnit(2, 102),
			residentUnit(3, 103),
		}},
		Charges: fakeCharges{charges: []domain.BuildingCharge{monthlyCharge("maintenance", 10000)}},
		Bills:   ledger,
		Logger:  testLogger(),
	}

	first, err := svc.Generate(context.Background(), 1, "2026-08")
	require.NoError(t, err)
	assert.Equal(t, 3, first.Created)

	second, err := svc.Generate(context.Background(), 1, "2026-08")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 3, second.Skipped)
	assert.Len(t, ledger.bills, 3)

	next, err := svc.Generate(context.Background(), 1, "2026-09")
	require.NoError(t, err)
	assert.Equal(t, 3, next.Created)
	assert.Len(t, ledger.bills, 6)
}

func TestGeneratePartialFailureIsReported(t *testing.T) {
	ledger := newFakeLedger()
	ledger.failCreateFor = map[int64]bool{2: true}
	svc := BillingService{
		Units: fakeUnits{units: []domain.Unit{
			residentUnit(1, 101),
			residentUnit(2, 102),
			residentUnit(3, 103),
		}},
		Charges: fakeCharges{charges: []domain.BuildingCharge{monthlyCharge("maintenance", 10000)}},
		Bills:   ledger,
		Logger:  testLogger(),
	}

	res, err := svc.Generate(context.Background(), 1, "2026-08")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Failed)
	assert.Len(t, ledger.bills, 2)
}

func TestGenerateErrors(t *testing.T) {
	svc := BillingService{
		Units:   fakeUnits{units: []domain.Unit{{ID: 1, Status: domain.UnitVacant}}},
		Charges: fakeCharges{charges: []domain.BuildingCharge{monthlyCharge("maintenance", 10000)}},
		Bills:   newFakeLedger(),
		Logger:  testLogger(),
	}
	_, err := svc.Generate(context.Background(), 1, "2026-08")
	assert.ErrorIs(t, err, ErrNoEligibleUnits)

	svc.Units = fakeUnits{units: []domain.Unit{residentUnit(1, 101)}}
	svc.Charges = fakeCharges{}
	_, err = svc.Generate(context.Background(), 1, "2026-08")
	assert.ErrorIs(t, err, ErrNoActiveCharges)

	_, err = svc.Generate(context.Background(), 1, "August 2026")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestGenerateDueDateRollsIntoNextYear(t *testing.T) {
	ledger := newFakeLedger()
	svc := BillingService{
		Units:   fakeUnits{units: []domain.Unit{residentUnit(1, 101)}},
		Charges: fakeCharges{charges: []domain.BuildingCharge{monthlyCharge("maintenance", 10000)}},
		Bills:   ledger,
		Logger:  testLogger(),
	}

	_, err := svc.Generate(context.Background(), 1, "2025-12")
	require.NoError(t, err)
	for _, b := range ledger.bills {
		assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), b.DueDate)
	}
}

func TestGenerateMixedCyclesSumAtFaceValueByDefault(t *testing.T) {
	quarterly := monthlyCharge("insurance", 30000)
	quarterly.BillingCycle = domain.CycleQuarterly
	annual := monthlyCharge("tax", 120000)
	annual.BillingCycle = domain.CycleAnnually

	ledger := newFakeLedger()
	svc := BillingService{
		Units:   fakeUnits{units: []domain.Unit{residentUnit(1, 101)}},
		Charges: fakeCharges{charges: []domain.BuildingCharge{monthlyCharge("maintenance", 10000), quarterly, annual}},
		Bills:   ledger,
		Logger:  testLogger(),
	}

	_, err := svc.Generate(context.Background(), 1, "2026-08")
	require.NoError(t, err)
	for _, b := range ledger.bills {
		assert.Equal(t, int64(160000), b.TotalAmount.Amount)
	}
}

func TestGenerateNormalizedCyclesProrate(t *testing.T) {
	quarterly := monthlyCharge("insurance", 30000)
	quarterly.BillingCycle = domain.CycleQuarterly
	annual := monthlyCharge("tax", 120000)
	annual.BillingCycle = domain.CycleAnnually

	ledger := newFakeLedger()
	svc := BillingService{
		Units:           fakeUnits{units: []domain.Unit{residentUnit(1, 101)}},
		Charges:         fakeCharges{charges: []domain.BuildingCharge{monthlyCharge("maintenance", 10000), quarterly, annual}},
		Bills:           ledger,
		Logger:          testLogger(),
		NormalizeCycles: true,
	}

	_, err := svc.Generate(context.Background(), 1, "2026-08")
	require.NoError(t, err)
	for _, b := range ledger.bills {
		// 10000 + 30000/3 + 120000/12
		assert.Equal(t, int64(30000), b.TotalAmount.Amount)
	}
}

func TestRecordPaymentProgression(t *testing.T) {
	ledger := newFakeLedger()
	svc := BillingService{
		Units:   fakeUnits{units: []domain.Unit{residentUnit(1, 101)}},
		Charges: fakeCharges{charges: []domain.BuildingCharge{monthlyCharge("maintenance", 15000)}},
		Bills:   ledger,
		Logger:  testLogger(),
	}
	_, err := svc.Generate(context.Background(), 1, "2026-08")
	require.NoError(t, err)

	var billID int64
	for id := range ledger.bills {
		billID = id
	}

	day1 := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	b, err := svc.RecordPayment(context.Background(), billID, 5000, day1, "first installment")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPartial, b.PaymentStatus)
	assert.Equal(t, int64(5000), b.PaidAmount.Amount)
	assert.Nil(t, b.PaymentDate)
	assert.Equal(t, "first installment", b.Notes)

	day2 := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	b, err = svc.RecordPayment(context.Background(), billID, 10000, day2, "")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, b.PaymentStatus)
	assert.Equal(t, int64(15000), b.PaidAmount.Amount)
	require.NotNil(t, b.PaymentDate)
	assert.Equal(t, day2, *b.PaymentDate)
	// empty notes keep the previous value
	assert.Equal(t, "first installment", b.Notes)
}

func TestRecordPaymentAcceptsOverpayment(t *testing.T) {
	ledger := newFakeLedger()
	svc := BillingService{
		Units:   fakeUnits{units: []domain.Unit{residentUnit(1, 101)}},
		Charges: fakeCharges{charges: []domain.BuildingCharge{monthlyCharge("maintenance", 10000)}},
		Bills:   ledger,
		Logger:  testLogger(),
	}
	_, err := svc.Generate(context.Background(), 1, "2026-08")
	require.NoError(t, err)

	var billID int64
	for id := range ledger.bills {
		billID = id
	}

	b, err := svc.RecordPayment(context.Background(), billID, 12000, time.Now(), "")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, b.PaymentStatus)
	assert.Equal(t, int64(12000), b.PaidAmount.Amount)
}

func TestRecordPaymentRejectsNonPositiveAmount(t *testing.T) {
	svc := BillingService{Bills: newFakeLedger(), Logger: testLogger()}
	_, err := svc.RecordPayment(context.Background(), 1, 0, time.Now(), "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.RecordPayment(context.Background(), 1, -500, time.Now(), "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestRecordPaymentUnknownBill(t *testing.T) {
	svc := BillingService{Bills: newFakeLedger(), Logger: testLogger()}
	_, err := svc.RecordPayment(context.Background(), 42, 1000, time.Now(), "")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
