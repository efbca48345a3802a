package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kamal24h/key-building-app/internal/domain"
	"github.com/kamal24h/key-building-app/internal/repository"
	"github.com/kamal24h/key-building-app/internal/server/authctx"
)

type CostHandler struct {
	Costs     repository.CostRepository
	Buildings repository.BuildingRepository
}

func (h CostHandler) RegisterRoutes(r chi.Router) {
	r.Get("/costs", h.list)
	r.Post("/costs", h.create)
	r.Put("/costs/{id}", h.update)
	r.Delete("/costs/{id}", h.delete)
}

type costRequest struct {
	BuildingID  int64   `json:"buildingId" validate:"required,gt=0"`
	CostType    string  `json:"costType" validate:"required"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount" validate:"gt=0"`
	CostDate    string  `json:"costDate"`
	Notes       string  `json:"notes"`
	Status      string  `json:"status"`
}

func (h CostHandler) list(w http.ResponseWriter, r *http.Request) {
	filter := repository.CostFilter{Limit: parseLimitQuery(r, 200)}
	if raw := r.URL.Query().Get("buildingId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid buildingId")
			return
		}
		filter.BuildingID = &id
	}
	if raw := r.URL.Query().Get("costType"); raw != "" {
		filter.CostType = &raw
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.CostStatus(raw)
		filter.Status = &status
	}
	items, err := h.Costs.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]any, 0, len(items))
	for _, c := range items {
		resp = append(resp, costJSON(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h CostHandler) create(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req costRequest
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
	costDate := time.Now()
	if req.CostDate != "" {
		t, err := time.Parse(dateLayout, req.CostDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid costDate")
			return
		}
		costDate = t
	}
	c, err := h.Costs.Create(r.Context(), repository.CreateCostInput{
		BuildingID:     building.ID,
		BuildingName:   building.Name,
		CostType:       req.CostType,
		Description:    req.Description,
		Amount:         toCents(req.Amount),
		CostDate:       costDate,
		RecordedBy:     user.ID,
		RecordedByName: user.Email,
		Notes:          req.Notes,
		Status:         costStatus(req.Status),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, costJSON(*c))
}

func (h CostHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req costRequest
	if !decodeValid(w, r, &req) {
		return
	}
	costDate := time.Now()
	if req.CostDate != "" {
		t, err := time.Parse(dateLayout, req.CostDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid costDate")
			return
		}
		costDate = t
	}
	c, err := h.Costs.Update(r.Context(), repository.UpdateCostInput{
		ID:          id,
		CostType:    req.CostType,
		Description: req.Description,
		Amount:      toCents(req.Amount),
		CostDate:    costDate,
		Notes:       req.Notes,
		Status:      costStatus(req.Status),
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "cost not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, costJSON(*c))
}

func (h CostHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.Costs.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "cost not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func costStatus(s string) domain.CostStatus {
	switch domain.CostStatus(s) {
	case domain.CostApproved, domain.CostPaid:
		return domain.CostStatus(s)
	default:
		return domain.CostPending
	}
}

func costJSON(c domain.BuildingCost) map[string]any {
	return map[string]any{
		"id":             c.ID,
		"buildingId":     c.BuildingID,
		"buildingName":   c.BuildingName,
		"costType":       c.CostType,
		"description":    c.Description,
		"amount":         dollars(c.Amount),
		"costDate":       dateString(c.CostDate),
		"recordedBy":     c.RecordedBy,
		"recordedByName": c.RecordedByName,
		"notes":          c.Notes,
		"status":         string(c.Status),
		"createdAt":      c.CreatedAt.Format(time.RFC3339),
	}
}
