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

type AuthHandler struct {
	Service  *service.AuthService
	Profiles repository.ProfileRepository
}

func (h AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/request-code", h.requestCode)
	r.Post("/auth/verify-code", h.verifyCode)
	r.Post("/auth/refresh", h.refresh)
}

func (h AuthHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/auth/me", h.me)
}

func (h AuthHandler) requestCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}
	if !decodeValid(w, r, &req) {
		return
	}
	if err := h.Service.RequestCode(r.Context(), req.Email); err != nil {
		writeError(w, http.StatusInternalServerError, "could not send code")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "code sent"})
}

func (h AuthHandler) verifyCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email" validate:"required,email"`
		Code  string `json:"code" validate:"required"`
		Name  string `json:"name"`
		Phone string `json:"phone"`
	}
	if !decodeValid(w, r, &req) {
		return
	}
	res, err := h.Service.VerifyCode(r.Context(), service.VerifyCodeInput{
		Email: req.Email,
		Code:  req.Code,
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidCode) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAuthResponse(w, res)
}

func (h AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}
	if !decodeValid(w, r, &req) {
		return
	}
	res, err := h.Service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeAuthResponse(w, res)
}

func (h AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	profile, err := h.Profiles.GetByID(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, profileJSON(*profile))
}

func writeAuthResponse(w http.ResponseWriter, res *service.AuthResult) {
	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken":  res.AccessToken,
		"refreshToken": res.RefreshToken,
		"expiresAt":    res.ExpiresAt.Format(time.RFC3339),
		"user":         profileJSON(res.Profile),
	})
}

func profileJSON(p domain.UserProfile) map[string]any {
	return map[string]any{
		"id":        p.ID,
		"name":      p.Name,
		"email":     p.Email,
		"phone":     p.Phone,
		"role":      string(p.Role),
		"createdAt": p.CreatedAt.Format(time.RFC3339),
	}
}
