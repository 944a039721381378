// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer — the composition root where handlers,
// services, repositories, and the broadcast hub are connected:
//
//	config → sqlite.DB → repositories
//	       → TokenService / PasswordService / mailer
//	       → AuthService / EventService ← hub.Hub
//	       → handlers → chi routes
//
// Keeping the wiring out of main.go makes the server testable: the handler
// tests build a full Server against an in-memory database without running
// the binary.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/event-board/internal/auth"
	"github.com/sakif/event-board/internal/config"
	"github.com/sakif/event-board/internal/handler"
	"github.com/sakif/event-board/internal/hub"
	"github.com/sakif/event-board/internal/mailer"
	"github.com/sakif/event-board/internal/middleware"
	sqliteRepo "github.com/sakif/event-board/internal/repository/sqlite"
	"github.com/sakif/event-board/internal/service"
)

// Server owns the router, the database connection, and the broadcast hub.
// All three are created in New and released during graceful shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	hub    *hub.Hub
}

// New assembles the full dependency graph for the given configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		hub:    hub.New(logger),
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler exposes the router for tests driving the server with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /                          → liveness probe (JSON)
//	POST   /api/auth/register         → create account, returns token
//	POST   /api/auth/login            → authenticate, returns token
//	POST   /api/auth/forgot-password  → start password reset
//	POST   /api/auth/reset-password   → redeem reset token
//	GET    /api/auth/github           → OAuth redirect        [if configured]
//	GET    /api/auth/github/callback  → OAuth callback        [if configured]
//	GET    /api/events                → list events      [auth required]
//	GET    /api/events/{id}           → single event     [auth required]
//	GET    /api/events/stream         → SSE notifications (public)
//	POST   /api/events                → create event     [auth required]
//	PUT    /api/events/{id}           → update event     [auth required]
//	DELETE /api/events/{id}           → delete event     [auth required]
//
// MIDDLEWARE ORDER MATTERS: RequestID and RealIP first so the logger sees
// them, Recoverer before our handlers so a panic becomes a 500.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// === Shared auth utilities ===
	tokens, err := auth.NewTokenService(s.config.Auth.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	var mail mailer.Sender = mailer.Noop{}
	if s.config.SMTPEnabled() {
		smtp, err := mailer.NewSMTPSender(s.config.SMTP)
		if err != nil {
			return fmt.Errorf("creating mailer: %w", err)
		}
		mail = smtp
	}

	var github *auth.GitHubProvider
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(
			s.config.GitHub.ClientID,
			s.config.GitHub.ClientSecret,
			s.config.GitHub.CallbackURL,
		)
	}

	// === Services and handlers ===
	// The handler never touches the database directly; the service never
	// touches HTTP.
	authService := service.NewAuthService(s.db, tokens, passwords, mail, s.logger)
	eventService := service.NewEventService(s.db, s.hub, s.logger)

	authHandler := handler.NewAuthHandler(authService, github, s.config.IsDevelopment(), s.logger)
	eventHandler := handler.NewEventHandler(eventService, s.logger)
	streamHandler := handler.NewStreamHandler(s.hub, s.logger)

	// Liveness probe for load balancers and uptime checks.
	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/forgot-password", authHandler.HandleForgotPassword)
			r.Post("/reset-password", authHandler.HandleResetPassword)

			if github != nil {
				r.Get("/github", authHandler.HandleGitHubLogin)
				r.Get("/github/callback", authHandler.HandleGitHubCallback)
			}
		})

		r.Route("/events", func(r chi.Router) {
			// The stream stays open to anonymous listeners so the board
			// can live-refresh pre-login; OptionalAuth resolves a token
			// when one is presented so the logs can attribute the
			// listener.
			r.With(auth.OptionalAuth(tokens, s.db)).Get("/stream", streamHandler.HandleStream)

			// Everything else — reads included — requires a valid
			// session.
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAuth(tokens, s.db))
				r.Get("/", eventHandler.HandleList)
				r.Get("/{id}", eventHandler.HandleGetByID)
				r.Post("/", eventHandler.HandleCreate)
				r.Put("/{id}", eventHandler.HandleUpdate)
				r.Delete("/{id}", eventHandler.HandleDelete)
			})
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, give in-flight requests the
// configured grace period, close the hub (which ends all SSE streams),
// and finally close the database to flush the WAL.
func (s *Server) Start() error {
	defer s.db.Close()
	defer s.hub.Close()

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", s.config.HTTPServer.Port),
		Handler:     s.router,
		ReadTimeout: s.config.HTTPServer.ReadTimeout,
		IdleTimeout: s.config.HTTPServer.IdleTimeout,
		// No WriteTimeout: SSE connections stay open indefinitely and a
		// server-wide write deadline would sever them mid-stream.
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.HTTPServer.Port),
			slog.String("database", s.config.Database.Path),
			slog.String("env", s.config.Env),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Closing the hub first ends the SSE streams, otherwise Shutdown
		// would wait the full grace period for connections that never
		// finish on their own.
		s.hub.Close()

		ctx, cancel := context.WithTimeout(context.Background(), s.config.HTTPServer.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
