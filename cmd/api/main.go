package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tripdeskhq/tripdesk-backend/api/routes"
	"github.com/tripdeskhq/tripdesk-backend/internal/audit"
	"github.com/tripdeskhq/tripdesk-backend/internal/expenses"
	"github.com/tripdeskhq/tripdesk-backend/internal/ledger"
	"github.com/tripdeskhq/tripdesk-backend/internal/notifications"
	"github.com/tripdeskhq/tripdesk-backend/internal/permissions"
	"github.com/tripdeskhq/tripdesk-backend/internal/profiles"
	"github.com/tripdeskhq/tripdesk-backend/internal/settings"
	"github.com/tripdeskhq/tripdesk-backend/pkg/config"
	"github.com/tripdeskhq/tripdesk-backend/pkg/db"
	"github.com/tripdeskhq/tripdesk-backend/pkg/logger"
	"github.com/tripdeskhq/tripdesk-backend/pkg/metrics"
	"github.com/tripdeskhq/tripdesk-backend/pkg/migrate"
	"github.com/tripdeskhq/tripdesk-backend/pkg/outbox"
	"github.com/tripdeskhq/tripdesk-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()
	workflowMetrics := metrics.NewWorkflowMetrics(prometheus.DefaultRegisterer)

	profileRepo := profiles.NewRepository(gormDB)
	roleRepo := permissions.NewRoleRepository(gormDB)
	assignmentRepo := ledger.NewAssignmentRepository(gormDB)
	expenseRepo := expenses.NewRepository(gormDB)
	auditRepo := audit.NewRepository(gormDB)
	notificationRepo := notifications.NewRepository(gormDB)
	settingRepo := settings.NewRepository(gormDB)
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)

	checker, err := permissions.NewChecker(roleRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create permission checker", err)
		os.Exit(1)
	}

	auditService, err := audit.NewService(auditRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(dbClient, profileRepo, roleRepo, assignmentRepo, outboxService, auditService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	expenseService, err := expenses.NewService(dbClient, expenseRepo, profileRepo, checker, ledgerService, outboxService, auditService, workflowMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create expense service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notificationRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	settingsService, err := settings.NewService(settingRepo, redisClient, cfg.Settings.CacheTTL, auditService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create settings service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			expenseService,
			ledgerService,
			notificationsService,
			auditService,
			settingsService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
