package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kamal24h/key-building-app/internal/domain"
	"github.com/kamal24h/key-building-app/internal/repository"
)

type ChargeHandler struct {
	Charges   repository.ChargeRepository
	Buildings repository.BuildingRepository
}

func (h ChargeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/charges", h.list)
	r.Get("/charges/{id}", h.get)
}

// RegisterAdminRoutes holds charge mutations; the charge catalog drives
// every generated bill, so only admins touch it.
func (h ChargeHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/charges", h.create)
	r.Put("/charges/{id}", h.update)
	r.Delete("/charges/{id}", h.delete)
}

type chargeRequest struct {
	BuildingID    int64   `json:"buildingId" validate:"required,gt=0"`
	ChargeType    string  `json:"chargeType" validate:"required"`
	Amount        float64 `json:"amount" validate:"gt=0"`
	BillingCycle  string  `json:"billingCycle" validate:"required,oneof=monthly quarterly annually one_time"`
	EffectiveDate string  `json:"effectiveDate"`
	Description   string  `json:"description"`
	Active        *bool   `json:"active"`
}

func (h ChargeHandler) list(w http.ResponseWriter, r *http.Request) {
	var buildingID *int64
	if raw := r.URL.Query().Get("buildingId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid buildingId")
			return
		}
		buildingID = &id
	}
	var active *bool
	if raw := r.URL.Query().Get("active"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid active")
			return
		}
		active = &b
	}
	items, err := h.Charges.List(r.Context(), buildingID, active, parseLimitQuery(r, 200))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]any, 0, len(items))
	for _, c := range items {
		resp = append(resp, chargeJSON(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h ChargeHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	c, err := h.Charges.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "charge not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, chargeJSON(*c))
}

func (h ChargeHandler) create(w http.ResponseWriter, r *http.Request) {
	var req chargeRequest
	if !decodeValid(w, r, &req) {
		return
	}
	building, err := h.Buildings.GetByID(r.Context(), req.BuildingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "building not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	effective := time.Now()
	if req.EffectiveDate != "" {
		t, err := time.Parse(dateLayout, req.EffectiveDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid effectiveDate")
			return
		}
		effective = t
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	c, err := h.Charges.Create(r.Context(), repository.CreateChargeInput{
		BuildingID:    building.ID,
		BuildingName:  building.Name,
		ChargeType:    req.ChargeType,
		Amount:        toCents(req.Amount),
		BillingCycle:  domain.BillingCycle(req.BillingCycle),
		EffectiveDate: effective,
		Description:   req.Description,
		Active:        active,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, chargeJSON(*c))
}

func (h ChargeHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req chargeRequest
	if !decodeValid(w, r, &req) {
		return
	}
	building, err := h.Buildings.GetByID(r.Context(), req.BuildingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "building not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	effective := time.Now()
	if req.EffectiveDate != "" {
		t, err := time.Parse(dateLayout, req.EffectiveDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid effectiveDate")
			return
		}
		effective = t
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	c, err := h.Charges.Update(r.Context(), repository.UpdateChargeInput{
		ID:            id,
		BuildingID:    building.ID,
		BuildingName:  building.Name,
		ChargeType:    req.ChargeType,
		Amount:        toCents(req.Amount),
		BillingCycle:  domain.BillingCycle(req.BillingCycle),
		EffectiveDate: effective,
		Description:   req.Description,
		Active:        active,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "charge not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, chargeJSON(*c))
}

func (h ChargeHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.Charges.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "charge not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func chargeJSON(c domain.BuildingCharge) map[string]any {
	return map[string]any{
		"id":            c.ID,
		"buildingId":    c.BuildingID,
		"buildingName":  c.BuildingName,
		"chargeType":    c.ChargeType,
		"amount":        dollars(c.Amount),
		"billingCycle":  string(c.BillingCycle),
		"effectiveDate": dateString(c.EffectiveDate),
		"description":   c.Description,
		"active":        c.Active,
		"createdAt":     c.CreatedAt.Format(time.RFC3339),
	}
}
