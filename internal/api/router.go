package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/tradeyard/vendor-ledger/internal/api/handler"
	"github.com/tradeyard/vendor-ledger/internal/api/middleware"
	"github.com/tradeyard/vendor-ledger/internal/api/spec"
	"github.com/tradeyard/vendor-ledger/internal/idempotency"
	"github.com/tradeyard/vendor-ledger/internal/service"
)

// Router wires handlers, middleware and the documentation surface.
type Router struct {
	logger        *zap.Logger
	db            *pgxpool.Pool
	redis         redis.Cmdable
	ledgerSvc     *service.LedgerService
	withdrawalSvc *service.WithdrawalService
	idemStore     *idempotency.Store
	publicRPS     int
	authRPS       int
}

func NewRouter(logger *zap.Logger, db *pgxpool.Pool, redisClient redis.Cmdable, ledgerSvc *service.LedgerService, withdrawalSvc *service.WithdrawalService, idemStore *idempotency.Store, publicRPS, authRPS int) *Router {
	return &Router{
		logger:        logger,
		db:            db,
		redis:         redisClient,
		ledgerSvc:     ledgerSvc,
		withdrawalSvc: withdrawalSvc,
		idemStore:     idemStore,
		publicRPS:     publicRPS,
		authRPS:       authRPS,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(chiMiddleware.RealIP)

	balanceHandler := handler.NewBalanceHandler(api.ledgerSvc)
	transactionHandler := handler.NewTransactionHandler(api.ledgerSvc)
	withdrawalHandler := handler.NewWithdrawalHandler(api.withdrawalSvc)
	healthHandler := handler.NewHealthHandler(api.db, api.redis)

	idem := middleware.IdempotencyMiddleware(api.idemStore, api.logger)

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.publicRPS))

		r.Get("/healthz", healthHandler.Live)
		r.Get("/readyz", healthHandler.Ready)
		r.Handle("/metrics", promhttp.Handler())
		r.Get("/openapi.yaml", spec.OpenAPIHandler())
		r.Get("/docs/*", httpSwagger.Handler(
			httpSwagger.URL("/openapi.yaml"),
		))
	})

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.authRPS))

		// Vendor-scoped reads
		r.Get("/v1/vendors/{vendorID}/balance", balanceHandler.GetBalance)
		r.Get("/v1/vendors/{vendorID}/transactions", transactionHandler.ListTransactions)
		r.Get("/v1/vendors/{vendorID}/withdrawals", withdrawalHandler.ListWithdrawals)
		r.Get("/v1/transactions/{transactionID}", transactionHandler.GetTransaction)
		r.Get("/v1/withdrawals/{withdrawalID}", withdrawalHandler.GetWithdrawal)

		// Vendor-initiated mutations
		r.With(idem).Post("/v1/vendors/{vendorID}/withdrawals", withdrawalHandler.SubmitWithdrawal)

		// Admin-only mutations
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("admin"))

			r.With(idem).Post("/v1/transactions", transactionHandler.RecordTransaction)
			r.With(idem).Patch("/v1/transactions/{transactionID}/status", transactionHandler.UpdateTransactionStatus)
			r.With(idem).Patch("/v1/withdrawals/{withdrawalID}/approve", withdrawalHandler.ApproveWithdrawal)
			r.With(idem).Patch("/v1/withdrawals/{withdrawalID}/reject", withdrawalHandler.RejectWithdrawal)
			r.With(idem).Patch("/v1/withdrawals/{withdrawalID}/processing", withdrawalHandler.MarkProcessing)
			r.With(idem).Patch("/v1/withdrawals/{withdrawalID}/complete", withdrawalHandler.CompleteWithdrawal)
		})
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		handler.RespondError(w, req, http.StatusNotFound, "request/not-found", "route not found")
	})

	return r
}
