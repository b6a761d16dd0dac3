// cmd/server/server.go
package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/oreopets/portal/internal/api"
	"github.com/oreopets/portal/internal/api/auth"
	dashboardapi "github.com/oreopets/portal/internal/api/dashboard"
	"github.com/oreopets/portal/internal/api/pages"
	"github.com/oreopets/portal/internal/api/reservations"
	"github.com/oreopets/portal/internal/availability"
	"github.com/oreopets/portal/internal/backend"
	"github.com/oreopets/portal/internal/config"
	"github.com/oreopets/portal/internal/dashboard"
	"github.com/oreopets/portal/internal/metrics"
	"github.com/oreopets/portal/internal/ratelimit"
	"github.com/oreopets/portal/internal/scheduler"
)

const sessionPruneCron = "*/5 * * * *"

// app owns the long-lived collaborators the handlers share.
type app struct {
	cfg            *config.Config
	metrics        *metrics.Metrics
	sessions       *auth.Store
	registry       *dashboard.Registry
	loginLimiter   *ratelimit.Limiter
	bookingLimiter *ratelimit.Limiter
}

func newApp(cfg *config.Config) (*app, error) {
	var m *metrics.Metrics
	if cfg.Features.EnableMetrics {
		m = metrics.New("oreo_portal")
	}

	if err := scheduler.Init(); err != nil {
		return nil, err
	}
	sched, err := scheduler.ServiceInstance()
	if err != nil {
		return nil, err
	}

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, m)
	sessions := auth.NewStore(cfg.Session.TTL, !cfg.IsDevelopment(), m)
	registry := dashboard.NewRegistry(
		func(token string) dashboard.Source { return client.WithToken(token) },
		sched,
		dashboard.Options{
			PollInterval:  cfg.Dashboard.PollInterval,
			VisibilityTTL: cfg.Dashboard.VisibilityTTL,
			Alive:         sessions.Active,
		},
		m,
	)
	// Logging out or expiring stops that owner's poller.
	sessions.OnEnd(registry.Release)

	if _, err := scheduler.AddJob("prune_owner_sessions", sessionPruneCron, func() { sessions.Prune() }); err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		metrics:  m,
		sessions: sessions,
		registry: registry,
		loginLimiter: ratelimit.New(ratelimit.Config{
			Name:      "login",
			PerMinute: cfg.RateLimit.LoginPerMinute,
			Burst:     cfg.RateLimit.LoginBurst,
		}),
		bookingLimiter: ratelimit.New(ratelimit.Config{
			Name:      "reservation",
			PerMinute: cfg.RateLimit.ReservationPerMinute,
			Burst:     cfg.RateLimit.ReservationBurst,
		}),
	}

	auth.InitHandlers(client, sessions, a.loginLimiter, cfg.RateLimit.TrustProxy)
	reservations.InitHandlers(client, availability.Validator{
		StepMinutes: cfg.Booking.SlotMinutes,
		PhoneRegion: cfg.Booking.PhoneRegion,
	}, cfg.Booking.LookaheadDays, a.bookingLimiter, cfg.RateLimit.TrustProxy)
	dashboardapi.InitHandlers(registry, sessions, cfg.Dashboard.PollInterval)

	return a, nil
}

func (a *app) start() {
	if err := scheduler.Start(); err != nil {
		log.Error().Err(err).Msg("Failed to start scheduler")
	}
}

func (a *app) close() {
	a.registry.Close()
	if err := scheduler.Stop(); err != nil {
		log.Error().Err(err).Msg("Failed to stop scheduler")
	}
	a.loginLimiter.Close()
	a.bookingLimiter.Close()
}

func (a *app) httpServer() *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithSession(a.sessions),
		api.WithLogging,
		api.WithRecovery,
		api.WithMetrics(a.metrics),
		api.WithRequestID,
		api.WithContentType,
	)

	// Register routes
	a.registerRoutes(router)

	return &http.Server{
		Addr:         ":" + strconv.Itoa(a.cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func (a *app) registerRoutes(mux *http.ServeMux) {
	// Marketing pages; "GET /" also serves the not-found page
	mux.HandleFunc("GET /", pages.HandleHome)
	mux.HandleFunc("GET /services", pages.HandleServices)
	mux.HandleFunc("GET /pricing", pages.HandlePricing)
	mux.HandleFunc("GET /gallery", pages.HandleGallery)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	if a.metrics != nil {
		mux.Handle("GET /metrics", a.metrics.Handler())
	}

	// Customer reservations
	mux.HandleFunc("GET /reservation", reservations.HandleReservationPage)
	mux.HandleFunc("POST /reservation", reservations.HandleReservationCreate)
	mux.HandleFunc("GET /reservation/service", reservations.HandleServiceChange)
	mux.HandleFunc("GET /reservation/check", reservations.HandleCheck)
	mux.HandleFunc("GET /reservation/cancel", reservations.HandleCancelPage)
	mux.HandleFunc("POST /reservation/cancel", reservations.HandleCancel)

	// Owner sign in
	mux.HandleFunc("GET /login", auth.HandleLoginPage)
	mux.HandleFunc("POST /login", auth.HandleLogin)
	mux.HandleFunc("POST /logout", auth.HandleLogout)

	// Owner dashboard
	owner := func(h http.HandlerFunc) http.Handler { return api.WithOwnerAuth(h) }
	mux.Handle("GET /owner", owner(dashboardapi.HandleDashboardPage))
	mux.Handle("GET /owner/reservations", owner(dashboardapi.HandleReservations))
	mux.Handle("POST /owner/reservations/{id}/complete", owner(dashboardapi.HandleComplete))
	mux.Handle("POST /owner/refresh", owner(dashboardapi.HandleRefresh))
	mux.Handle("POST /owner/visibility", owner(dashboardapi.HandleVisibility))

	// Static file handling
	staticDir := a.cfg.App.StaticDir
	fs := http.FileServer(http.Dir(staticDir))
	mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debug().
			Str("path", r.URL.Path).
			Str("static_dir", staticDir).
			Msg("Static file request")
		http.StripPrefix("/static/", fs).ServeHTTP(w, r)
	}))
}
