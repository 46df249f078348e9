package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"moneypall/internal/auth"
	"moneypall/internal/core"
	"moneypall/internal/log"
	"moneypall/internal/middleware/ratelimit"
	"moneypall/internal/middleware/security"
	"moneypall/internal/middleware/trace"
	"moneypall/internal/report"
	"moneypall/internal/services"
)

// Pinger reports whether a dependency is reachable. Used by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the handlers call.
type Deps struct {
	Auth     *auth.Orchestrator
	Sessions TokenResolver
	Ledger   *services.LedgerService
	Reports  *report.Service
	Ready    Pinger
	Logger   *log.Logger
}

type Config struct {
	RateLimitPerMinute int
	TrustedProxies     []string
}

type Server struct {
	http.Server

	auth    *auth.Orchestrator
	ledger  *services.LedgerService
	reports *report.Service
	ready   Pinger
	logger  *log.Logger

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps, cfg Config) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector(logger)
	for _, cidr := range cfg.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}

	s := &Server{
		auth:        deps.Auth,
		ledger:      deps.Ledger,
		reports:     deps.Reports,
		ready:       deps.Ready,
		logger:      logger,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}, logger),
		detector:    detector,
		tracer:      trace.NewMiddleware(logger, detector.ExtractClientIP),
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(detector.Middleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		Detail(http.StatusNotFound, "Not found.").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		Detail(http.StatusMethodNotAllowed, "Method not allowed.").Write(w)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			key := keyDetail
			if r.URL.Path == "/login" {
				key = keyError
			}
			writeError(w, r, key, core.ErrRateLimited)
		}))

		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/otp_verify", s.handleOTPVerify)

		r.Group(func(r chi.Router) {
			r.Use(RequireToken(deps.Sessions))

			r.Post("/logout", s.handleLogout)
			r.Delete("/delete", s.handleDeleteAccount)
			r.Get("/profile", s.handleProfile)
			r.Put("/update", s.handleUpdateProfile)
			r.Get("/list", s.handleListUsers)
			r.Get("/user_detail/{id}", s.handleUserDetail)

			r.Get("/dashboard", s.handleDashboard)

			r.Post("/add_income_category", s.handleCreateCategory(core.Income))
			r.Post("/add_expense_category", s.handleCreateCategory(core.Expense))
			r.Get("/income_categories", s.handleListCategories(core.Income))
			r.Get("/expense_categories", s.handleListCategories(core.Expense))
			r.Post("/add_income", s.handleCreateRecord(core.Income))
			r.Post("/add_expense", s.handleCreateRecord(core.Expense))
			r.Get("/incomes", s.handleListRecords(core.Income))
			r.Get("/expenses", s.handleListRecords(core.Expense))
		})
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64KB
	}
	return s
}

// Shutdown gracefully shuts down the server and its background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	Message(http.StatusOK, "status", "ok").Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			Message(http.StatusServiceUnavailable, "status", "unavailable").Write(w)
			return
		}
	}
	Message(http.StatusOK, "status", "ready").Write(w)
}
