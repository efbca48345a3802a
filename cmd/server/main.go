package main

import (
	"context"
	"encoding/base64"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"github.com/kamal24h/key-building-app/internal/cache"
	"github.com/kamal24h/key-building-app/internal/config"
	"github.com/kamal24h/key-building-app/internal/db"
	"github.com/kamal24h/key-building-app/internal/handler"
	"github.com/kamal24h/key-building-app/internal/mail"
	"github.com/kamal24h/key-building-app/internal/push"
	"github.com/kamal24h/key-building-app/internal/repository"
	"github.com/kamal24h/key-building-app/internal/server"
	"github.com/kamal24h/key-building-app/internal/service"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect database", "err", err)
		os.Exit(1)
	}
	defer pg.Close()

	redis, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect redis", "err", err)
		os.Exit(1)
	}
	defer redis.Close()

	// OTP delivery; falls back to logging codes in development.
	var mailer mail.Mailer
	if cfg.SendGridAPIKey != "" {
		mailer = mail.NewSendGrid(cfg.SendGridAPIKey, cfg.OrganizationName, cfg.SendGridFrom)
	} else {
		logger.Warn("SENDGRID_API_KEY not set, login codes will only be logged")
		mailer = mail.LogOnly{Logger: logger}
	}

	// Push delivery (optional).
	var pusher push.Pusher = push.Noop{}
	if cfg.FirebaseProjectID != "" {
		app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, firebaseOptions(cfg)...)
		if err != nil {
			logger.Error("failed to init firebase app", "err", err)
			os.Exit(1)
		}
		client, err := app.Messaging(ctx)
		if err != nil {
			logger.Error("failed to init firebase messaging", "err", err)
			os.Exit(1)
		}
		pusher = push.FCM{Client: client, Logger: logger}
	}

	// repositories
	profileRepo := repository.ProfileRepository{DB: pg}
	buildingRepo := repository.BuildingRepository{DB: pg}
	unitRepo := repository.UnitRepository{DB: pg}
	chargeRepo := repository.ChargeRepository{DB: pg}
	billRepo := repository.BillRepository{DB: pg}
	costRepo := repository.CostRepository{DB: pg}
	announcementRepo := repository.AnnouncementRepository{DB: pg}
	notificationRepo := repository.NotificationRepository{DB: pg}
	tokenRepo := repository.DeviceTokenRepository{DB: pg}
	dashboardRepo := repository.DashboardRepository{DB: pg}

	if cfg.SeedAdminEmail != "" {
		if err := profileRepo.EnsureAdmin(ctx, cfg.SeedAdminEmail); err != nil {
			logger.Error("failed to seed admin profile", "err", err)
			os.Exit(1)
		}
	}

	// services
	authSvc := service.AuthService{Config: cfg, Profiles: profileRepo, Codes: redis, Mailer: mailer, Logger: logger}
	billingSvc := service.BillingService{
		Units:           unitRepo,
		Charges:         chargeRepo,
		Bills:           billRepo,
		Logger:          logger,
		NormalizeCycles: cfg.NormalizeBillingCycles,
	}
	announcementSvc := service.AnnouncementService{
		Announcements: announcementRepo,
		Profiles:      profileRepo,
		Units:         unitRepo,
		Notifications: notificationRepo,
		Tokens:        tokenRepo,
		Pusher:        pusher,
		Logger:        logger,
	}

	// handlers
	healthHandler := handler.HealthHandler{DB: pg, Cache: redis}
	authHandler := handler.AuthHandler{Service: &authSvc, Profiles: profileRepo}
	buildingHandler := handler.BuildingHandler{Buildings: buildingRepo, Profiles: profileRepo}
	unitHandler := handler.UnitHandler{Units: unitRepo, Buildings: buildingRepo, Profiles: profileRepo}
	chargeHandler := handler.ChargeHandler{Charges: chargeRepo, Buildings: buildingRepo}
	billHandler := handler.BillHandler{Bills: billRepo, Billing: billingSvc}
	costHandler := handler.CostHandler{Costs: costRepo, Buildings: buildingRepo}
	announcementHandler := handler.AnnouncementHandler{Service: announcementSvc, Announcements: announcementRepo}
	notificationHandler := handler.NotificationHandler{Repo: notificationRepo}
	profileHandler := handler.ProfileHandler{Repo: profileRepo}
	dashboardHandler := handler.DashboardHandler{Repo: dashboardRepo}
	tokenHandler := handler.DeviceTokenHandler{Repo: tokenRepo}
	docsHandler := handler.DocsHandler{OpenAPIPath: "openapi.yaml"}
	homeHandler := handler.HomeHandler{}

	router := server.NewRouter(cfg, logger,
		healthHandler, authHandler, buildingHandler, unitHandler, chargeHandler,
		billHandler, costHandler, announcementHandler, notificationHandler,
		profileHandler, dashboardHandler, tokenHandler, docsHandler, homeHandler)

	if err := server.Start(ctx, cfg, router, logger); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

func firebaseOptions(cfg config.Config) []option.ClientOption {
	if cfg.FirebaseCredFile == "" {
		return nil
	}

	cred := cfg.FirebaseCredFile
	// Allow inline JSON or base64-encoded JSON in env to avoid writing a file.
	if strings.HasPrefix(strings.TrimSpace(cred), "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cred))}
	}
	if decoded, err := base64.StdEncoding.DecodeString(cred); err == nil && strings.HasPrefix(strings.TrimSpace(string(decoded)), "{") {
		return []option.ClientOption{option.WithCredentialsJSON(decoded)}
	}

	return []option.ClientOption{option.WithCredentialsFile(cred)}
}
