package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/shelterstock/relief/internal/model"
	"github.com/shelterstock/relief/internal/observability"
	"github.com/shelterstock/relief/internal/workflow"
)

// RouterConfig carries the dependencies of the HTTP layer.
type RouterConfig struct {
	JWTSecret string
	Service   *workflow.Service
	Metrics   *observability.Metrics
	// RateLimit is requests per minute per client IP on /api; 0 disables it.
	RateLimit      int
	RequestTimeout time.Duration
	Production     bool
}

// NewRouter creates the HTTP router with all endpoints registered.
func NewRouter(db *sql.DB, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(secureHeaders(cfg.Production))
	r.Use(cfg.Metrics.Middleware)

	r.Get("/healthz", Health(db))
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	authHandler := &AuthHandler{DB: db, JWTSecret: cfg.JWTSecret}
	usersHandler := &UsersHandler{DB: db}
	sheltersHandler := &SheltersHandler{DB: db}
	stockHandler := &StockHandler{Service: cfg.Service}
	requestsHandler := &RequestsHandler{Service: cfg.Service}

	authMW := AuthMiddleware(cfg.JWTSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))
		if cfg.RateLimit > 0 {
			r.Use(httprate.Limit(cfg.RateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		}

		// Public: login.
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(authMW)

			r.Put("/auth/password", authHandler.ChangePassword)
			r.Post("/auth/logout", authHandler.Logout)

			// Ledger of the caller's warehouse.
			r.Get("/items", stockHandler.List)
			r.Post("/items/receive", stockHandler.Receive)
			r.Post("/items/issue", stockHandler.Issue)
			r.Get("/items/{id}/history", stockHandler.History)
			r.Get("/transactions", stockHandler.Transactions)

			r.Get("/requests", requestsHandler.List)
			r.Post("/requests", requestsHandler.Create)
			r.Get("/requests/{id}", requestsHandler.Get)
			r.With(requireAdmin).Put("/requests/{id}", requestsHandler.Resolve)

			// Shelter directory: read (all roles), write (admin).
			r.Get("/shelters", sheltersHandler.List)
			r.Get("/shelters/{id}", sheltersHandler.Get)
			r.With(requireAdmin).Post("/shelters", sheltersHandler.Create)
			r.With(requireAdmin).Put("/shelters/{id}/status", sheltersHandler.UpdateStatus)

			// Users (admin only).
			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/users", usersHandler.List)
				r.Post("/users", usersHandler.Create)
				r.Get("/users/{id}", usersHandler.Get)
				r.Delete("/users/{id}", usersHandler.Delete)
			})
		})
	})

	return r
}

func secureHeaders(production bool) func(http.Handler) http.Handler {
	sm := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'",
		SSLRedirect:           production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sm.Process(w, r); err != nil {
				slog.Warn("secure headers blocked request", "error", err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
