package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tripdeskhq/tripdesk-backend/api/controllers"
	"github.com/tripdeskhq/tripdesk-backend/api/middleware"
	"github.com/tripdeskhq/tripdesk-backend/internal/audit"
	"github.com/tripdeskhq/tripdesk-backend/internal/expenses"
	"github.com/tripdeskhq/tripdesk-backend/internal/ledger"
	"github.com/tripdeskhq/tripdesk-backend/internal/notifications"
	"github.com/tripdeskhq/tripdesk-backend/internal/settings"
	"github.com/tripdeskhq/tripdesk-backend/pkg/config"
	"github.com/tripdeskhq/tripdesk-backend/pkg/db"
	"github.com/tripdeskhq/tripdesk-backend/pkg/enums"
	"github.com/tripdeskhq/tripdesk-backend/pkg/logger"
	"github.com/tripdeskhq/tripdesk-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	expenseService expenses.Service,
	ledgerService ledger.Service,
	notificationsService notifications.Service,
	auditService audit.Service,
	settingsService settings.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/expenses", func(r chi.Router) {
			r.Post("/", controllers.CreateExpense(expenseService, logg))
			r.Get("/", controllers.ListExpenses(expenseService, logg))
			r.Get("/{expenseId}", controllers.GetExpense(expenseService, logg))
			r.Patch("/{expenseId}", controllers.UpdateExpense(expenseService, logg))
			r.Post("/{expenseId}/submit", controllers.SubmitExpense(expenseService, logg))
			r.Post("/{expenseId}/verify", controllers.VerifyExpense(expenseService, logg))
		})

		r.Route("/balance", func(r chi.Router) {
			r.Get("/", controllers.GetBalance(ledgerService, logg))
			r.Post("/return", controllers.ReturnMoney(ledgerService, logg))
		})

		r.Route("/allocations", func(r chi.Router) {
			r.Post("/", controllers.Allocate(ledgerService, logg))
			r.Get("/assignments", controllers.ListAssignments(ledgerService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", controllers.ListSettings(settingsService, logg))
			r.Get("/{key}", controllers.GetSetting(settingsService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.RoleAdmin), logg))

		r.Route("/expenses/{expenseId}", func(r chi.Router) {
			r.Post("/assign", controllers.AssignExpense(expenseService, logg))
			r.Post("/approve", controllers.ApproveExpense(expenseService, logg))
			r.Post("/reject", controllers.RejectExpense(expenseService, logg))
		})

		r.Post("/allocations/bulk", controllers.AllocateBulk(ledgerService, logg))

		r.Put("/settings/{key}", controllers.SetSetting(settingsService, logg))

		r.Route("/audit", func(r chi.Router) {
			r.Get("/expenses/{expenseId}", controllers.ExpenseAuditLog(auditService, logg))
			r.Get("/users/{userId}", controllers.UserAuditLog(auditService, logg))
		})
	})

	return r
}
