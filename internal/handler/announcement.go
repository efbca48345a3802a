package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kamal24h/key-building-app/internal/domain"
	"github.com/kamal24h/key-building-app/internal/repository"
	"github.com/kamal24h/key-building-app/internal/server/authctx"
	"github.com/kamal24h/key-building-app/internal/service"
)

type AnnouncementHandler struct {
	Service       service.AnnouncementService
	Announcements repository.AnnouncementRepository
}

func (h AnnouncementHandler) RegisterRoutes(r chi.Router) {
	r.Get("/announcements", h.list)
	r.Get("/announcements/{id}", h.get)
	r.Post("/announcements", h.create)
	r.Put("/announcements/{id}", h.update)
	r.Post("/announcements/{id}/publish", h.publish)
	r.Post("/announcements/{id}/archive", h.archive)
}

type announcementRequest struct {
	Title            string `json:"title" validate:"required"`
	Content          string `json:"content" validate:"required"`
	Category         string `json:"category"`
	Priority         string `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	TargetRole       string `json:"targetRole" validate:"omitempty,oneof=all admin manager resident"`
	TargetBuildingID *int64 `json:"targetBuildingId"`
	Publish          bool   `json:"publish"`
}

func (h AnnouncementHandler) list(w http.ResponseWriter, r *http.Request) {
	filter := repository.AnnouncementFilter{Limit: parseLimitQuery(r, 200)}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.AnnouncementStatus(raw)
		filter.Status = &status
	}
	if raw := r.URL.Query().Get("priority"); raw != "" {
		priority := domain.Priority(raw)
		filter.Priority = &priority
	}
	items, err := h.Announcements.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]any, 0, len(items))
	for _, a := range items {
		resp = append(resp, announcementJSON(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h AnnouncementHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	a, err := h.Announcements.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "announcement not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, announcementJSON(*a))
}

func (h AnnouncementHandler) create(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req announcementRequest
	if !decodeValid(w, r, &req) {
		return
	}
	priority := domain.PriorityNormal
	if req.Priority != "" {
		priority = domain.Priority(req.Priority)
	}
	target := domain.TargetAll
	if req.TargetRole != "" {
		target = domain.TargetRole(req.TargetRole)
	}
	a, res, err := h.Service.Create(r.Context(), service.CreateAnnouncementRequest{
		Title:            req.Title,
		Content:          req.Content,
		Category:         req.Category,
		Priority:         priority,
		TargetRole:       target,
		TargetBuildingID: req.TargetBuildingID,
		CreatedBy:        user.ID,
		Publish:          req.Publish,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := map[string]any{"announcement": announcementJSON(*a)}
	if res != nil {
		payload["fanout"] = batchJSON(res)
	}
	writeJSON(w, http.StatusCreated, payload)
}

func (h AnnouncementHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req announcementRequest
	if !decodeValid(w, r, &req) {
		return
	}
	priority := domain.PriorityNormal
	if req.Priority != "" {
		priority = domain.Priority(req.Priority)
	}
	target := domain.TargetAll
	if req.TargetRole != "" {
		target = domain.TargetRole(req.TargetRole)
	}
	a, err := h.Service.Update(r.Context(), repository.UpdateAnnouncementInput{
		ID:               id,
		Title:            req.Title,
		Content:          req.Content,
		Category:         req.Category,
		Priority:         priority,
		TargetRole:       target,
		TargetBuildingID: req.TargetBuildingID,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "announcement not found")
		case errors.Is(err, service.ErrArchived):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, announcementJSON(*a))
}

func (h AnnouncementHandler) publish(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	a, res, err := h.Service.Publish(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "announcement not found")
		case errors.Is(err, service.ErrArchived), errors.Is(err, service.ErrAlreadyPublished):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"announcement": announcementJSON(*a),
		"fanout":       batchJSON(res),
	})
}

func (h AnnouncementHandler) archive(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	a, err := h.Service.Archive(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "announcement not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, announcementJSON(*a))
}

func announcementJSON(a domain.Announcement) map[string]any {
	return map[string]any{
		"id":               a.ID,
		"title":            a.Title,
		"content":          a.Content,
		"category":         a.Category,
		"priority":         string(a.Priority),
		"targetRole":       string(a.TargetRole),
		"targetBuildingId": a.TargetBuildingID,
		"status":           string(a.Status),
		"createdBy":        a.CreatedBy,
		"publishedAt":      timeString(a.PublishedAt),
		"createdAt":        a.CreatedAt.Format(time.RFC3339),
	}
}
