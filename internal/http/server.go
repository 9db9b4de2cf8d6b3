// Package http exposes the fintrack services as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"fintrack/internal/auth"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
	"fintrack/internal/store"
	"fintrack/internal/subscription"
)

// Services are the application services the API exposes.
type Services struct {
	Auth          *auth.Service
	Subscriptions *subscription.Service
	Ledger        *services.Ledger
	Goals         *services.Goals
	Portfolio     *services.Portfolio
	Dashboard     *services.Dashboard
	Export        *services.Export
	Stores        *store.Set
}

type Options struct {
	RateLimitPerMinute int
	// TrustedProxies are CIDRs whose forwarding headers are honoured in
	// addition to the private ranges.
	TrustedProxies []string
	Logger         *log.Logger
}

type Server struct {
	http.Server
	svc    Services
	logger *log.Logger

	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	traceMiddleware  *trace.Middleware

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	started             time.Time
	transactionsCreated atomic.Int64
	exports             atomic.Int64
}

func NewServer(addr string, svc Services, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}

	s := &Server{
		svc:              svc,
		logger:           logger.WithComponent(log.ComponentHTTP),
		securityDetector: security.NewDetector(logger),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.securityDetector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, logger)
	s.appMetrics.started = time.Now()

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(s.traceMiddleware.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.securityDetector.Middleware)
	r.Use(s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeErrorMessage(w, http.StatusTooManyRequests, "rate limit exceeded")
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrorMessage(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Get("/categories", s.handleCategories)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/auth/me", s.handleMe)

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", s.handleListTransactions)
				r.Post("/", s.handleCreateTransaction)
				r.Get("/{id}", s.handleGetTransaction)
				r.Patch("/{id}", s.handleUpdateTransaction)
				r.Delete("/{id}", s.handleDeleteTransaction)
			})

			r.Route("/stats", func(r chi.Router) {
				r.Get("/totals", s.handleTotals)
				r.Get("/monthly", s.handleMonthly)
				r.Get("/categories", s.handleCategoryBreakdown)
				r.Get("/trend", s.handleTrend)
			})
			r.Get("/dashboard", s.handleDashboard)
			r.Post("/export", s.handleExport)

			r.Route("/goals", func(r chi.Router) {
				r.Get("/", s.handleListGoals)
				r.Post("/", s.handleCreateGoal)
				r.Patch("/{id}", s.handleUpdateGoal)
				r.Delete("/{id}", s.handleDeleteGoal)
				r.Post("/{id}/contributions", s.handleContribute)
				r.Get("/{id}/progress", s.handleGoalProgress)
			})

			r.Route("/crypto", func(r chi.Router) {
				r.Get("/", s.handleListCrypto)
				r.Post("/", s.handleAddCrypto)
				r.Get("/portfolio", s.handlePortfolio)
				r.Patch("/{id}", s.handleUpdateCrypto)
				r.Delete("/{id}", s.handleDeleteCrypto)
			})
			r.Get("/market", s.handleMarket)

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", s.handleListNotifications)
				r.Delete("/", s.handleClearNotifications)
				r.Post("/read-all", s.handleMarkAllRead)
				r.Post("/{id}/read", s.handleMarkRead)
				r.Delete("/{id}", s.handleDeleteNotification)
			})

			r.Route("/subscription", func(r chi.Router) {
				r.Get("/", s.handleSubscription)
				r.Get("/plans", s.handlePlans)
				r.Post("/checkout", s.handleCheckout)
				r.Post("/trial", s.handleTrial)
				r.Post("/cancel", s.handleCancel)
			})

			r.Get("/settings", s.handleGetSettings)
			r.Put("/settings", s.handlePutSettings)
			r.Get("/profile", s.handleGetProfile)
			r.Put("/profile", s.handlePutProfile)
			r.Get("/theme", s.handleGetTheme)
			r.Put("/theme", s.handlePutTheme)
		})
	})

	return r
}

// Shutdown stops accepting requests, waits for in-flight ones and releases
// the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
