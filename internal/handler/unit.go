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

type UnitHandler struct {
	Units     repository.UnitRepository
	Buildings repository.BuildingRepository
	Profiles  repository.ProfileRepository
}

func (h UnitHandler) RegisterRoutes(r chi.Router) {
	r.Get("/units", h.list)
	r.Get("/units/{id}", h.get)
	r.Post("/units", h.create)
	r.Put("/units/{id}", h.update)
	r.Put("/units/{id}/resident", h.assignResident)
	r.Delete("/units/{id}/resident", h.vacate)
	r.Delete("/units/{id}", h.delete)
}

type unitRequest struct {
	BuildingID int64   `json:"buildingId" validate:"required,gt=0"`
	UnitNumber string  `json:"unitNumber" validate:"required"`
	Floor      int     `json:"floor"`
	Area       float64 `json:"area" validate:"gte=0"`
	Bedrooms   int     `json:"bedrooms" validate:"gte=0"`
	Bathrooms  int     `json:"bathrooms" validate:"gte=0"`
	Status     string  `json:"status"`
}

func (h UnitHandler) list(w http.ResponseWriter, r *http.Request) {
	var (
		items []domain.Unit
		err   error
	)
	if raw := r.URL.Query().Get("buildingId"); raw != "" {
		buildingID, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, "invalid buildingId")
			return
		}
		items, err = h.Units.ListByBuilding(r.Context(), buildingID)
	} else {
		items, err = h.Units.List(r.Context(), parseLimitQuery(r, 500))
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]any, 0, len(items))
	for _, u := range items {
		resp = append(resp, unitJSON(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h UnitHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	u, err := h.Units.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unit not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, unitJSON(*u))
}

func (h UnitHandler) create(w http.ResponseWriter, r *http.Request) {
	var req unitRequest
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
	u, err := h.Units.Create(r.Context(), repository.CreateUnitInput{
		BuildingID:   building.ID,
		BuildingName: building.Name,
		UnitNumber:   req.UnitNumber,
		Floor:        req.Floor,
		Area:         req.Area,
		Bedrooms:     req.Bedrooms,
		Bathrooms:    req.Bathrooms,
		Status:       unitStatus(req.Status),
	})
	if err != nil {
		if repository.IsDuplicate(err) {
			writeError(w, http.StatusConflict, "unit number already exists in this building")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, unitJSON(*u))
}

func (h UnitHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req unitRequest
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
	u, err := h.Units.Update(r.Context(), repository.UpdateUnitInput{
		ID:           id,
		BuildingID:   building.ID,
		BuildingName: building.Name,
		UnitNumber:   req.UnitNumber,
		Floor:        req.Floor,
		Area:         req.Area,
		Bedrooms:     req.Bedrooms,
		Bathrooms:    req.Bathrooms,
		Status:       unitStatus(req.Status),
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unit not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, unitJSON(*u))
}

func (h UnitHandler) assignResident(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		ResidentID int64 `json:"residentId" validate:"required,gt=0"`
	}
	if !decodeValid(w, r, &req) {
		return
	}
	resident, err := h.Profiles.GetByID(r.Context(), req.ResidentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "resident not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	u, err := h.Units.AssignResident(r.Context(), id, resident.ID, resident.Name, resident.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unit not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, unitJSON(*u))
}

func (h UnitHandler) vacate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	u, err := h.Units.VacateResident(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unit not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, unitJSON(*u))
}

func (h UnitHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.Units.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unit not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func unitStatus(s string) domain.UnitStatus {
	switch domain.UnitStatus(s) {
	case domain.UnitOccupied, domain.UnitMaintenance:
		return domain.UnitStatus(s)
	default:
		return domain.UnitVacant
	}
}

func unitJSON(u domain.Unit) map[string]any {
	return map[string]any{
		"id":            u.ID,
		"buildingId":    u.BuildingID,
		"buildingName":  u.BuildingName,
		"unitNumber":    u.UnitNumber,
		"floor":         u.Floor,
		"area":          u.Area,
		"bedrooms":      u.Bedrooms,
		"bathrooms":     u.Bathrooms,
		"residentId":    u.ResidentID,
		"residentName":  u.ResidentName,
		"residentEmail": u.ResidentEmail,
		"status":        string(u.Status),
		"createdAt":     u.CreatedAt.Format(time.RFC3339),
	}
}
