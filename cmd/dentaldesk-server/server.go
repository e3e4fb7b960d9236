package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dentaldesk/dentaldesk/internal/config"
	"github.com/dentaldesk/dentaldesk/internal/domain/billing"
	"github.com/dentaldesk/dentaldesk/internal/domain/practice"
	"github.com/dentaldesk/dentaldesk/internal/domain/session"
	"github.com/dentaldesk/dentaldesk/internal/platform/auth"
	"github.com/dentaldesk/dentaldesk/internal/platform/db"
	"github.com/dentaldesk/dentaldesk/internal/platform/middleware"
)

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := logger.WithContext(context.Background())
	a, err := newApp(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start")
	}
	defer a.Close()
	logger.Info().Str("identity_store", cfg.IdentityStore).Msg("connected to database")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Metrics())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(a.pool,
		db.Check{Name: "postgres", Pinger: a.pool},
		db.Check{Name: "identity", Pinger: a.credentials},
	))
	prometheus.MustRegister(auth.RevokedSessionsGauge(a.revoked))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	apiV1 := e.Group("/api/v1")
	protected := apiV1.Group("", auth.Middleware(a.sessions))

	loginLimit := middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.LoginRateLimitRPS,
		BurstSize:         cfg.LoginRateLimitBurst,
		IdleTTL:           10 * time.Minute,
	})
	session.NewHandler(a.sessions, cfg.OpenAdminRegistration).RegisterRoutes(apiV1, protected, loginLimit)
	practice.NewHandler(a.practice, a.membership).RegisterRoutes(protected)
	billing.NewHandler(a.billing).RegisterRoutes(protected)

	if cfg.UsesDevSigningKey() {
		logger.Warn().Msg("sessions are signed with the development key; set AUTH_SIGNING_KEY outside local development")
	}
	if cfg.OpenAdminRegistration {
		logger.Warn().Msg("admin registration is open to unauthenticated callers")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
