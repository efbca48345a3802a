package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kamal24h/key-building-app/internal/domain"
	"github.com/kamal24h/key-building-app/internal/repository"
)

type BuildingHandler struct {
	Buildings repository.BuildingRepository
	Profiles  repository.ProfileRepository
}

func (h BuildingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/buildings", h.list)
	r.Get("/buildings/{id}", h.get)
	r.Post("/buildings", h.create)
	r.Put("/buildings/{id}", h.update)
	r.Delete("/buildings/{id}", h.delete)
}

// RegisterAdminRoutes holds the mutations only an admin may perform.
func (h BuildingHandler) RegisterAdminRoutes(r chi.Router) {
	r.Put("/buildings/{id}/manager", h.assignManager)
}

type buildingRequest struct {
	Name       string `json:"name" validate:"required"`
	Address    string `json:"address"`
	TotalUnits int    `json:"totalUnits" validate:"gte=0"`
	Status     string `json:"status"`
}

func (h BuildingHandler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.Buildings.List(r.Context(), parseLimitQuery(r, 200))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]any, 0, len(items))
	for _, b := range items {
		resp = append(resp, buildingJSON(b))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h BuildingHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	b, err := h.Buildings.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "building not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, buildingJSON(*b))
}

func (h BuildingHandler) create(w http.ResponseWriter, r *http.Request) {
	var req buildingRequest
	if !decodeValid(w, r, &req) {
		return
	}
	b, err := h.Buildings.Create(r.Context(), repository.CreateBuildingInput{
		Name:       req.Name,
		Address:    req.Address,
		TotalUnits: req.TotalUnits,
		Status:     buildingStatus(req.Status),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, buildingJSON(*b))
}

func (h BuildingHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req buildingRequest
	if !decodeValid(w, r, &req) {
		return
	}
	b, err := h.Buildings.Update(r.Context(), repository.UpdateBuildingInput{
		ID:         id,
		Name:       req.Name,
		Address:    req.Address,
		TotalUnits: req.TotalUnits,
		Status:     buildingStatus(req.Status),
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "building not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, buildingJSON(*b))
}

func (h BuildingHandler) assignManager(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		ManagerID *int64 `json:"managerId"`
	}
	if !decodeValid(w, r, &req) {
		return
	}

	managerName := ""
	if req.ManagerID != nil {
		manager, err := h.Profiles.GetByID(r.Context(), *req.ManagerID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				writeError(w, http.StatusNotFound, "manager not found")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if manager.Role != domain.RoleManager && manager.Role != domain.RoleAdmin {
			writeError(w, http.StatusBadRequest, "profile is not a manager")
			return
		}
		managerName = manager.Name
	}

	b, err := h.Buildings.AssignManager(r.Context(), id, req.ManagerID, managerName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "building not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, buildingJSON(*b))
}

func (h BuildingHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.Buildings.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "building not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func buildingStatus(s string) domain.BuildingStatus {
	switch domain.BuildingStatus(s) {
	case domain.BuildingInactive, domain.BuildingUnderConstruction:
		return domain.BuildingStatus(s)
	default:
		return domain.BuildingActive
	}
}

func buildingJSON(b domain.Building) map[string]any {
	return map[string]any{
		"id":          b.ID,
		"name":        b.Name,
		"address":     b.Address,
		"totalUnits":  b.TotalUnits,
		"managerId":   b.ManagerID,
		"managerName": b.ManagerName,
		"status":      string(b.Status),
		"createdAt":   b.CreatedAt.Format(time.RFC3339),
	}
}
