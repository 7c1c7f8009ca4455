// Package server assembles the HTTP routes and runs the sign-up server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gabrielmiguelok/signupkit/client"
	"github.com/gabrielmiguelok/signupkit/internal/config"
	"github.com/gabrielmiguelok/signupkit/internal/signup"
	"github.com/gabrielmiguelok/signupkit/internal/website"
	"github.com/gabrielmiguelok/signupkit/pkg/core"
	"github.com/gabrielmiguelok/signupkit/pkg/health"
	"github.com/gabrielmiguelok/signupkit/pkg/logging"
	"github.com/gabrielmiguelok/signupkit/pkg/registration"
	"github.com/gabrielmiguelok/signupkit/pkg/router"
	"github.com/gabrielmiguelok/signupkit/pkg/shutdown"
)

// RegisterPath is the wizard route.
const RegisterPath = config.RegisterPath

// Version is reported by the readiness probe. Set at link time with
// -ldflags "-X github.com/gabrielmiguelok/signupkit/internal/server.Version=...".
var Version = "dev"

// NewRouter wires every route. Settings are validated first so a login
// path that collides with a fixed route is an error rather than a mux panic.
func NewRouter(settings config.Settings, logger logging.Logger) (*router.Router, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	cfg := settings.Core

	r := router.New(router.WithConfig(cfg), router.WithLogger(logger))
	r.Use(router.Middleware(logging.RequestLogger(logger)))
	r.Use(router.Recovery(logger))

	registrar := registration.SimulatedRegistrar{Delay: cfg.Registration.SubmitDelay}
	if len(settings.TakenEmails) > 0 {
		registrar.Reject = registration.RejectEmails(settings.TakenEmails...)
	}

	// The wizard takes its logger from the session context so log lines
	// carry the socket id.
	r.Live(RegisterPath, signup.Factory(signup.Options{
		Registrar: registrar,
		Config:    cfg.Registration,
	}),
		router.WithLayout(website.LiveLayout(signup.PageConfig())),
		router.WithRouteMiddleware(router.NoStore()),
	)

	r.Handle(cfg.Registration.LoginPath, signup.LoginHandler(RegisterPath))
	r.Handle(config.AssetsPrefix, http.StripPrefix(config.AssetsPrefix, client.Handler()))

	checker := health.NewChecker(Version)
	checker.AddCriticalCheck("draining", health.DrainingCheck(r.SocketManager().IsShutdown), time.Second)
	if cfg.MaxSessions > 0 {
		checker.AddCheck("sessions", health.SessionCapacityCheck(r.SessionManager().Count, cfg.MaxSessions), time.Second)
	}
	r.Handle(config.LivenessPath, checker.LivenessHandler())
	r.Handle(config.ReadinessPath, checker.ReadinessHandler())

	r.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/" {
			http.NotFound(w, req)
			return
		}
		http.Redirect(w, req, RegisterPath, http.StatusFound)
	})

	return r, nil
}

// Run serves until ctx ends or a shutdown signal arrives, then drains HTTP
// requests and terminates live sessions.
func Run(ctx context.Context, settings config.Settings, logger logging.Logger) error {
	cfg := settings.Core
	r, err := NewRouter(settings, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    cfg.Address,
		Handler: r,
		BaseContext: func(net.Listener) context.Context {
			return logging.ContextWithLogger(context.Background(), logger)
		},
	}

	sd := shutdown.NewHandler(shutdown.Config{
		Timeout: cfg.Timeouts.GracefulShutdown,
		Logger:  logger,
	})
	sd.Register(shutdown.HTTPServerHook("http", srv.Shutdown))
	sd.RegisterFunc("live-sessions", shutdown.PrioritySessions, r.Shutdown)

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			logging.String("addr", cfg.Address),
			logging.String("register", RegisterPath),
			logging.String("codec", cfg.Codec),
		)
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		listenErr <- err
	}()

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// A listener failure ends the wait just like a signal.
	var serveErr error
	served := make(chan struct{})
	go func() {
		defer close(served)
		if err := <-listenErr; err != nil {
			logger.Error("server failed", logging.Err(err))
			serveErr = err
			cancel()
		}
	}()

	if err := sd.Wait(waitCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-served
	if serveErr != nil {
		return fmt.Errorf("listen %s: %w", cfg.Address, serveErr)
	}
	logger.Info("server stopped")
	return nil
}

// Logger builds the process logger from config. Debug output carries the
// source location.
func Logger(cfg core.LogConfig) logging.Logger {
	level := logging.ParseLevel(cfg.Level)
	opts := []logging.LoggerOption{logging.WithLevel(level)}
	if level == slog.LevelDebug {
		opts = append(opts, logging.WithSource())
	}
	if cfg.JSON {
		opts = append(opts, logging.WithJSON())
	}
	return logging.NewSlogLogger(opts...)
}
