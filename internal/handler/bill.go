package handler

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"

	"github.com/kamal24h/key-building-app/internal/domain"
	"github.com/kamal24h/key-building-app/internal/repository"
	"github.com/kamal24h/key-building-app/internal/server/authctx"
	"github.com/kamal24h/key-building-app/internal/service"
)

type BillHandler struct {
	Bills   repository.BillRepository
	Billing service.BillingService
}

// RegisterRoutes is mounted for every authenticated role. Residents see only
// their own bills; the filter is forced from the token.
func (h BillHandler) RegisterRoutes(r chi.Router) {
	r.Get("/bills", h.list)
	r.Get("/bills/{id}", h.get)
}

func (h BillHandler) RegisterManagerRoutes(r chi.Router) {
	r.Post("/bills/generate", h.generate)
	r.Post("/bills/{id}/payment", h.recordPayment)
	r.Get("/bills/export", h.export)
	r.Delete("/bills/{id}", h.delete)
}

func (h BillHandler) list(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.filterFromRequest(w, r)
	if !ok {
		return
	}
	items, err := h.Bills.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]any, 0, len(items))
	for _, b := range items {
		resp = append(resp, billJSON(b))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h BillHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	b, err := h.Bills.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "bill not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	user := authctx.FromContext(r.Context())
	if user != nil && user.Role == domain.RoleResident && b.ResidentID != user.ID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	writeJSON(w, http.StatusOK, billJSON(*b))
}

func (h BillHandler) generate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BuildingID    int64  `json:"buildingId" validate:"required,gt=0"`
		BillingPeriod string `json:"billingPeriod" validate:"required,len=7"`
	}
	if !decodeValid(w, r, &req) {
		return
	}
	res, err := h.Billing.Generate(r.Context(), req.BuildingID, req.BillingPeriod)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPeriod):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrNoEligibleUnits), errors.Is(err, service.ErrNoActiveCharges):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, batchJSON(res))
}

func (h BillHandler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		Amount      float64 `json:"amount" validate:"gt=0"`
		PaymentDate string  `json:"paymentDate"`
		Notes       string  `json:"notes"`
	}
	if !decodeValid(w, r, &req) {
		return
	}
	paymentDate := time.Now()
	if req.PaymentDate != "" {
		t, err := time.Parse(dateLayout, req.PaymentDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid paymentDate")
			return
		}
		paymentDate = t
	}
	b, err := h.Billing.RecordPayment(r.Context(), id, toCents(req.Amount), paymentDate, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "bill not found")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, billJSON(*b))
}

func (h BillHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.Bills.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "bill not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h BillHandler) export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	filter, ok := h.filterFromRequest(w, r)
	if !ok {
		return
	}
	filter.Limit = 5000
	items, err := h.Bills.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	suffix := time.Now().Format("20060102_150405")
	if filter.Period != nil {
		suffix = *filter.Period
	}

	switch format {
	case "csv":
		data, err := exportBillsCSV(items)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"bills_%s.csv\"", suffix))
		_, _ = w.Write(data)
	case "xlsx", "excel":
		data, err := exportBillsXLSX(items)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"bills_%s.xlsx\"", suffix))
		_, _ = w.Write(data)
	default:
		writeError(w, http.StatusBadRequest, "invalid format (use csv or xlsx)")
	}
}

// filterFromRequest builds the list filter from query params, forcing the
// resident scope for resident callers.
func (h BillHandler) filterFromRequest(w http.ResponseWriter, r *http.Request) (repository.BillFilter, bool) {
	filter := repository.BillFilter{Limit: parseLimitQuery(r, 200)}

	if raw := r.URL.Query().Get("buildingId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid buildingId")
			return filter, false
		}
		filter.BuildingID = &id
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.PaymentStatus(raw)
		filter.Status = &status
	}
	if raw := r.URL.Query().Get("period"); raw != "" {
		filter.Period = &raw
	}
	if raw := r.URL.Query().Get("residentId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid residentId")
			return filter, false
		}
		filter.ResidentID = &id
	}

	if user := authctx.FromContext(r.Context()); user != nil && user.Role == domain.RoleResident {
		filter.ResidentID = &user.ID
	}
	return filter, true
}

func exportBillsCSV(items []domain.Bill) ([]byte, error) {
	buf := new(bytes.Buffer)
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"id", "building", "unit", "resident", "period", "total", "paid", "status", "due_date", "payment_date"})
	for _, b := range items {
		paymentDate := ""
		if b.PaymentDate != nil {
			paymentDate = b.PaymentDate.Format(dateLayout)
		}
		_ = w.Write([]string{
			strconv.FormatInt(b.ID, 10),
			b.BuildingName,
			b.UnitNumber,
			b.ResidentName,
			b.BillingPeriod,
			strconv.FormatFloat(dollars(b.TotalAmount), 'f', 2, 64),
			strconv.FormatFloat(dollars(b.PaidAmount), 'f', 2, 64),
			string(b.PaymentStatus),
			b.DueDate.Format(dateLayout),
			paymentDate,
		})
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func exportBillsXLSX(items []domain.Bill) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "Bills"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	header := []string{"ID", "Building", "Unit", "Resident", "Period", "Total", "Paid", "Status", "Due Date", "Payment Date"}
	for c, v := range header {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		_ = f.SetCellValue(sheet, cell, v)
	}
	for r, b := range items {
		row := r + 2
		paymentDate := ""
		if b.PaymentDate != nil {
			paymentDate = b.PaymentDate.Format(dateLayout)
		}
		values := []any{
			b.ID,
			b.BuildingName,
			b.UnitNumber,
			b.ResidentName,
			b.BillingPeriod,
			dollars(b.TotalAmount),
			dollars(b.PaidAmount),
			string(b.PaymentStatus),
			b.DueDate.Format(dateLayout),
			paymentDate,
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 10)
	_ = f.SetColWidth(sheet, "B", "D", 24)
	_ = f.SetColWidth(sheet, "E", "E", 10)
	_ = f.SetColWidth(sheet, "F", "G", 14)
	_ = f.SetColWidth(sheet, "H", "H", 10)
	_ = f.SetColWidth(sheet, "I", "J", 14)

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#1F2937"}, Pattern: 1},
	})
	_ = f.SetCellStyle(sheet, "A1", "J1", style)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func batchJSON(res *service.BatchResult) map[string]any {
	return map[string]any{
		"requested": res.Requested,
		"created":   res.Created,
		"skipped":   res.Skipped,
		"failed":    res.Failed,
	}
}

func billJSON(b domain.Bill) map[string]any {
	lines := make([]map[string]any, 0, len(b.Lines))
	for _, l := range b.Lines {
		lines = append(lines, map[string]any{
			"chargeType": l.ChargeType,
			"amount":     dollars(l.Amount),
		})
	}
	return map[string]any{
		"id":            b.ID,
		"unitId":        b.UnitID,
		"unitNumber":    b.UnitNumber,
		"buildingId":    b.BuildingID,
		"buildingName":  b.BuildingName,
		"residentId":    b.ResidentID,
		"residentName":  b.ResidentName,
		"billingPeriod": b.BillingPeriod,
		"totalAmount":   dollars(b.TotalAmount),
		"paidAmount":    dollars(b.PaidAmount),
		"paymentStatus": string(b.PaymentStatus),
		"dueDate":       dateString(b.DueDate),
		"issueDate":     dateString(b.IssueDate),
		"paymentDate":   timeString(b.PaymentDate),
		"lines":         lines,
		"notes":         b.Notes,
		"createdAt":     b.CreatedAt.Format(time.RFC3339),
	}
}
