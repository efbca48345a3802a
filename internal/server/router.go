package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"log/slog"

	"github.com/kamal24h/key-building-app/internal/config"
	"github.com/kamal24h/key-building-app/internal/domain"
	"github.com/kamal24h/key-building-app/internal/handler"
)

// NewRouter wires HTTP routes and middleware.
func NewRouter(cfg config.Config,
	logger *slog.Logger,
	health handler.HealthHandler,
	auth handler.AuthHandler,
	buildings handler.BuildingHandler,
	units handler.UnitHandler,
	charges handler.ChargeHandler,
	bills handler.BillHandler,
	costs handler.CostHandler,
	announcements handler.AnnouncementHandler,
	notifications handler.NotificationHandler,
	profiles handler.ProfileHandler,
	dashboard handler.DashboardHandler,
	tokens handler.DeviceTokenHandler,
	docs handler.DocsHandler,
	home handler.HomeHandler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httprate.LimitByIP(200, 1*time.Minute))

	health.RegisterRoutes(r)
	auth.RegisterRoutes(r)
	home.RegisterRoutes(r)
	docs.RegisterRoutes(r)
	r.Method("GET", "/metrics", promhttp.Handler())

	r.Group(func(pr chi.Router) {
		pr.Use(AuthMiddleware(cfg.JWTSecret))
		// any authenticated role
		auth.RegisterProtectedRoutes(pr)
		notifications.RegisterRoutes(pr)
		tokens.RegisterRoutes(pr)
		bills.RegisterRoutes(pr)

		// manager-level (manager/admin)
		pr.Group(func(mr chi.Router) {
			mr.Use(RequireRole(domain.RoleAdmin, domain.RoleManager))
			buildings.RegisterRoutes(mr)
			units.RegisterRoutes(mr)
			charges.RegisterRoutes(mr)
			bills.RegisterManagerRoutes(mr)
			costs.RegisterRoutes(mr)
			announcements.RegisterRoutes(mr)
			profiles.RegisterRoutes(mr)
			dashboard.RegisterRoutes(mr)
		})

		// admin-only
		pr.Group(func(ar chi.Router) {
			ar.Use(RequireRole(domain.RoleAdmin))
			buildings.RegisterAdminRoutes(ar)
			charges.RegisterAdminRoutes(ar)
		})
	})

	return r
}
