// Package httpserver assembles the router, middleware stack and page handlers.
package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/agricred-web/internal/chat"
	custommw "finitefield.org/agricred-web/internal/httpserver/middleware"
	"finitefield.org/agricred-web/internal/httpserver/ui"
	"finitefield.org/agricred-web/internal/observability"
	"finitefield.org/agricred-web/internal/scoring"
)

// Config holds runtime options for the web server.
type Config struct {
	Address        string
	Sessions       custommw.SessionStore
	Scoring        scoring.Service
	Chat           chat.Responder
	Transcripts    *chat.Transcripts
	Logger         *zap.Logger
	TemplatesDir   string
	CSRFHeaderName string
	RequestTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// New constructs the HTTP server with the middleware stack and every page route.
func New(cfg Config) (*http.Server, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("httpserver: session store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	handlers, err := ui.NewHandlers(ui.Dependencies{
		Scoring:      cfg.Scoring,
		Chat:         cfg.Chat,
		Transcripts:  cfg.Transcripts,
		TemplatesDir: cfg.TemplatesDir,
	})
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.InjectLogger(logger))
	router.Use(observability.Trace())
	router.Use(observability.RequestLogger())
	router.Use(observability.Recovery())
	router.Use(chimw.Compress(5))
	router.Use(chimw.Timeout(durationOr(cfg.RequestTimeout, 60*time.Second)))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mountRoutes(router, handlers, routeOptions{
		Sessions: cfg.Sessions,
		CSRF:     custommw.CSRFConfig{HeaderName: cfg.CSRFHeaderName},
	})

	return &http.Server{
		Addr:              cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       durationOr(cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      durationOr(cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:       durationOr(cfg.IdleTimeout, 60*time.Second),
		ErrorLog:          zap.NewStdLog(logger),
	}, nil
}

type routeOptions struct {
	Sessions custommw.SessionStore
	CSRF     custommw.CSRFConfig
}

func mountRoutes(router chi.Router, h *ui.Handlers, opts routeOptions) {
	router.Group(func(r chi.Router) {
		r.Use(custommw.HTMX())
		r.Use(custommw.NoStore())
		r.Use(custommw.Session(opts.Sessions))
		r.Use(custommw.CSRF(opts.CSRF))

		r.NotFound(h.NotFound)

		r.Get("/", h.Home)
		r.Get("/signup", h.SignupSelect)
		r.Get("/login", h.LoginSelect)
		r.Post("/logout", h.Logout)

		r.Get("/signup-individual", h.FarmerSignup)
		r.Post("/signup-individual", h.FarmerSignupPost)
		r.Post("/signup-individual/cancel", h.FarmerSignupCancel)

		r.Get("/signup-agent", h.AgentSignup)
		r.Post("/signup-agent", h.AgentSignupPost)
		r.Post("/signup-agent/verify", h.AgentVerify)
		r.Get("/signup-agent-full", h.AgentRegistration)
		r.Post("/signup-agent-full", h.AgentRegistrationPost)
		r.Post("/signup-agent-full/cancel", h.AgentRegistrationCancel)

		r.Get("/login-individual", h.FarmerLogin)
		r.Post("/login-individual", h.FarmerLoginPost)
		r.Get("/login-agent", h.AgentLogin)
		r.Post("/login-agent", h.AgentLoginPost)

		r.Get("/dashboard", h.Dashboard)
		r.Get("/profile/{username}", h.Profile)
		r.Get("/recalculate/{username}", h.Recalculate)
		r.Post("/recalculate/{username}", h.RecalculatePost)
		r.Get("/users/{username}", h.UserDetails)
		r.Get("/users/{username}/assessment", h.UserAssessment)
		r.Get("/aichat/{username}", h.AIChat)
		r.Post("/aichat/{username}", h.AIChatPost)
		r.Get("/agent-dashboard/{username}", h.AgentDashboard)
	})
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
