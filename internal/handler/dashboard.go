package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kamal24h/key-building-app/internal/domain"
	"github.com/kamal24h/key-building-app/internal/repository"
)

type DashboardHandler struct {
	Repo repository.DashboardRepository
}

func (h DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard/summary", h.summary)
	r.Get("/dashboard/billing", h.billing)
}

func (h DashboardHandler) summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.Repo.Summary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"totalBuildings": s.TotalBuildings,
		"totalUnits":     s.TotalUnits,
		"occupiedUnits":  s.OccupiedUnits,
		"totalManagers":  s.TotalManagers,
		"totalResidents": s.TotalResidents,
	})
}

func (h DashboardHandler) billing(w http.ResponseWriter, r *http.Request) {
	s, err := h.Repo.Billing(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"totalBilled":    dollars(domain.Money{Amount: s.TotalBilled}),
		"totalCollected": dollars(domain.Money{Amount: s.TotalCollected}),
		"openBills":      s.OpenBills,
	})
}
