package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/karatworks/goldbooks-backend/api/controllers"
	"github.com/karatworks/goldbooks-backend/api/middleware"
	"github.com/karatworks/goldbooks-backend/internal/auth"
	"github.com/karatworks/goldbooks-backend/internal/clients"
	"github.com/karatworks/goldbooks-backend/internal/ledger"
	"github.com/karatworks/goldbooks-backend/internal/receipts"
	"github.com/karatworks/goldbooks-backend/internal/vouchers"
	"github.com/karatworks/goldbooks-backend/pkg/auth/session"
	"github.com/karatworks/goldbooks-backend/pkg/config"
	"github.com/karatworks/goldbooks-backend/pkg/db"
	"github.com/karatworks/goldbooks-backend/pkg/enums"
	"github.com/karatworks/goldbooks-backend/pkg/logger"
	"github.com/karatworks/goldbooks-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionManager sessionManager,
	authService auth.Service,
	registerService auth.RegisterService,
	clientService clients.Service,
	receiptService receipts.Service,
	ledgerService ledger.Service,
	voucherService vouchers.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]db.Pinger{
			"postgres": dbP,
			"redis":    redisClient,
		}))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.Post("/logout", controllers.AuthLogout(sessionManager, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(sessionManager, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Route("/clients", func(r chi.Router) {
			r.Post("/", controllers.ClientCreate(clientService, logg))
			r.Get("/", controllers.ClientList(clientService, logg))
			r.Get("/{clientId}", controllers.ClientGet(clientService, logg))
			r.Put("/{clientId}", controllers.ClientUpdate(clientService, logg))
			r.Delete("/{clientId}", controllers.ClientDelete(clientService, logg))
			r.Get("/{clientId}/statement", controllers.ClientStatement(ledgerService, logg))
		})

		r.Route("/receipts", func(r chi.Router) {
			r.Post("/", controllers.ReceiptCreate(receiptService, logg))
			r.Get("/", controllers.ReceiptList(receiptService, logg))
			r.Get("/{receiptId}", controllers.ReceiptGet(receiptService, logg))
			r.Patch("/{receiptId}", controllers.ReceiptUpdate(receiptService, logg))
			r.Delete("/{receiptId}", controllers.ReceiptDelete(receiptService, logg))
		})

		r.Get("/vouchers/next", controllers.VoucherNext(voucherService, cfg.Voucher, logg))

		r.With(middleware.RequireRole(string(enums.MemberRoleAdmin), logg)).
			Post("/users", controllers.UserCreate(registerService, logg))
	})

	return r
}
