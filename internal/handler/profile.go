package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kamal24h/key-building-app/internal/domain"
	"github.com/kamal24h/key-building-app/internal/repository"
)

type ProfileHandler struct {
	Repo repository.ProfileRepository
}

func (h ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Get("/profiles", h.list)
	r.Get("/profiles/{id}", h.get)
	r.Post("/profiles", h.create)
}

func (h ProfileHandler) list(w http.ResponseWriter, r *http.Request) {
	var role *domain.UserRole
	if raw := r.URL.Query().Get("role"); raw != "" {
		v := domain.UserRole(raw)
		switch v {
		case domain.RoleAdmin, domain.RoleManager, domain.RoleResident:
			role = &v
		default:
			writeError(w, http.StatusBadRequest, "invalid role")
			return
		}
	}
	items, err := h.Repo.List(r.Context(), role, parseLimitQuery(r, 500))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]any, 0, len(items))
	for _, p := range items {
		resp = append(resp, profileJSON(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h ProfileHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	p, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, profileJSON(*p))
}

// create lets an admin provision managers and residents ahead of their first
// login.
func (h ProfileHandler) create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name" validate:"required"`
		Email string `json:"email" validate:"required,email"`
		Phone string `json:"phone"`
		Role  string `json:"role" validate:"required,oneof=admin manager resident"`
	}
	if !decodeValid(w, r, &req) {
		return
	}
	p, err := h.Repo.Create(r.Context(), repository.CreateProfileParams{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Role:  domain.UserRole(req.Role),
	})
	if err != nil {
		if repository.IsDuplicate(err) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, profileJSON(*p))
}
