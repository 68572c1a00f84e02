package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/bankmore/internal/api/handlers"
	"github.com/baharkarakas/bankmore/internal/auth"
	"github.com/baharkarakas/bankmore/internal/config"
	"github.com/baharkarakas/bankmore/internal/metrics"
	"github.com/baharkarakas/bankmore/internal/middleware"
	"github.com/baharkarakas/bankmore/internal/services"
)

// base carries what every service exposes: the middleware chain, /health
// and /metrics.
func base(cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{middleware.RequestIDHeader},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())
	return r
}

func NewAccountRouter(cfg config.Config, tm *auth.TokenManager, s *services.AccountService) http.Handler {
	r := base(cfg)
	h := handlers.NewAccountHandler(s)
	authn := middleware.NewAuthMiddleware(tm)

	r.Route("/api/account", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Get("/balance/{number}", h.BalanceByNumber)
		r.Get("/exists/{number}", h.Exists)

		r.Group(func(r chi.Router) {
			r.Use(authn.Auth)
			// customers move their own account, services any account
			r.Post("/movement", h.Movement)

			r.With(middleware.RequireRole(auth.RoleService)).Get("/resolve/{ref}", h.Resolve)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(auth.RoleCustomer))
				r.Put("/deactivate", h.Deactivate())
				r.Put("/activate", h.Activate())
				r.Get("/balance", h.Balance)
				r.Get("/statement", h.Statement)
			})
		})
	})
	return r
}

func NewTransferRouter(cfg config.Config, tm *auth.TokenManager, s *services.TransferService) http.Handler {
	r := base(cfg)
	h := handlers.NewTransferHandler(s)
	authn := middleware.NewAuthMiddleware(tm)

	r.Route("/api/transfer", func(r chi.Router) {
		r.Use(authn.Auth, middleware.RequireRole(auth.RoleCustomer))
		r.Post("/", h.Create)
		r.Get("/list", h.List)
		r.Get("/{id}", h.Get)
	})
	return r
}

func NewFeeRouter(cfg config.Config, tm *auth.TokenManager, s *services.FeeService) http.Handler {
	r := base(cfg)
	h := handlers.NewFeeHandler(s)
	authn := middleware.NewAuthMiddleware(tm)

	r.Route("/api/fee", func(r chi.Router) {
		r.With(authn.Auth, middleware.RequireRole(auth.RoleCustomer)).Get("/my", h.Mine)
		r.Get("/detail/{id}", h.Detail)
		r.Get("/{number}", h.ByAccountNumber)
	})
	return r
}
