package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	handlers "github.com/wekeepgrowing/resume-billing/internal/adapter/handler/http"
	"github.com/wekeepgrowing/resume-billing/internal/config"
	"github.com/wekeepgrowing/resume-billing/internal/middleware/auth"
	"github.com/wekeepgrowing/resume-billing/pkg/logger"
	"go.uber.org/zap"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Dependencies are the handlers and probes the server routes to.
type Dependencies struct {
	Webhook      *handlers.WebhookHandler
	Access       *handlers.AccessHandler
	Subscription *handlers.SubscriptionHandler
	Admin        *handlers.AdminHandler
	Metrics      http.Handler
	Health       HealthCheck
}

type Server struct {
	config *config.Config
	logger *zap.Logger
	echo   *echo.Echo
}

func NewServer(cfg *config.Config, log *zap.Logger, deps Dependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	logger.WithEchoLogger(e, log)

	// Middleware
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(logger.NewEchoRequestLogger(log))
	e.Use(middleware.Recover())
	if cfg.Sentry.DSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true,
			Timeout: 2 * time.Second,
		}))
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	if cfg.Service.RequestTimeout > 0 {
		e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
			Timeout: cfg.Service.RequestTimeout,
		}))
	}

	s := &Server{
		config: cfg,
		logger: log,
		echo:   e,
	}
	s.setupRoutes(deps)
	return s
}

// Echo exposes the router, for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) Start() error {
	addr := s.config.Server.HTTP.Address()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes(deps Dependencies) {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		if deps.Health != nil {
			if err := deps.Health(c.Request().Context()); err != nil {
				s.logger.Warn("Health check failed", zap.Error(err))
				return c.JSON(http.StatusServiceUnavailable, map[string]string{
					"status":   "unhealthy",
					"database": "down",
				})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
			"version": s.config.Service.Version,
		})
	})

	if deps.Metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(deps.Metrics))
	}

	// Webhook routes (outside authentication); the handler enforces its own body limit
	bodyLimit := middleware.BodyLimit("64K")
	s.echo.POST("/webhook", deps.Webhook.HandleWebhook, bodyLimit)
	s.echo.POST("/api/v1/webhooks/stripe", deps.Webhook.HandleWebhook, bodyLimit)

	// JWT middleware configuration
	jwtConfig := auth.JWTConfig{
		Secret:   s.config.Service.Supabase.JWTSecret,
		Audience: "authenticated",
		Logger:   s.logger,
	}

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	// Protected routes (require JWT authentication)
	protected := v1.Group("", auth.JWTMiddleware(jwtConfig))
	protected.GET("/access", deps.Access.GetAccess)
	protected.POST("/subscriptions/cancel", deps.Subscription.CancelSubscription)

	// Operator routes
	admin := v1.Group("/admin", auth.AdminKeyMiddleware(s.config.Service.AdminAPIKey, s.logger))
	admin.POST("/subscriptions/:id/resync", deps.Admin.ResyncSubscription)
}
