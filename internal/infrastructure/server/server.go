package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/mallmap/core/docs"
	httpHandlers "github.com/mallmap/core/internal/adapters/http"
	"github.com/mallmap/core/internal/adapters/repository"
	"github.com/mallmap/core/internal/application/services"
	"github.com/mallmap/core/internal/infrastructure/config"
	"github.com/mallmap/core/internal/infrastructure/logger"
	"github.com/mallmap/core/internal/infrastructure/metrics"
	"github.com/mallmap/core/internal/infrastructure/storage"
	"github.com/mallmap/core/internal/ports"
)

// Server represents the HTTP server
type Server struct {
	echo    *echo.Echo
	config  *config.Config
	logger  *logger.Logger
	backend *storage.Backend
	repo    ports.MallRepository
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New creates a new server instance and loads the mall dataset from backend.
// publisher may be nil when status events are disabled.
func New(ctx context.Context, cfg *config.Config, backend *storage.Backend, publisher ports.EventPublisher, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	// Set custom validator
	e.Validator = &CustomValidator{validator: validator.New()}

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	// Custom error handler
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	// Initialize repositories
	mallRepo := repository.NewMallRepository(backend, appLogger)
	if err := mallRepo.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load mall dataset: %w", err)
	}

	users, err := services.UsersFromConfig(cfg.Users, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	userRepo := repository.NewUserRepository(users)

	var statusMetrics ports.StatusMetrics
	var registry *metrics.Metrics
	if cfg.Metrics.Enabled {
		registry = metrics.New()
		statusMetrics = registry
	}

	// Initialize services
	authService := services.NewAuthService(userRepo, cfg.JWT, appLogger)
	mallService := services.NewMallService(mallRepo, publisher, statusMetrics, appLogger)

	// Initialize handlers
	authHandler := httpHandlers.NewAuthHandler(authService, appLogger)
	mallHandler := httpHandlers.NewMallHandler(mallService, appLogger)

	server := &Server{
		echo:    e,
		config:  cfg,
		logger:  appLogger,
		backend: backend,
		repo:    mallRepo,
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup metrics
	if registry != nil {
		e.Use(registry.Middleware())
		e.GET("/metrics", echo.WrapHandler(registry.Handler()))
	}

	// Setup routes
	server.setupRoutes(authHandler, mallHandler, authService)

	return server, nil
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(authHandler *httpHandlers.AuthHandler, mallHandler *httpHandlers.MallHandler, authService ports.AuthService) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	// Swagger documentation
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	api := s.echo.Group("/api")

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", authHandler.Me, s.authMiddleware(authService))

	// Store map (public)
	api.GET("/stores", mallHandler.ListStores)

	// Mall routes; roles are enforced by the mall service
	mallGroup := api.Group("/malls", s.authMiddleware(authService))
	mallGroup.GET("", mallHandler.ListMalls)
	mallGroup.GET("/nearby", mallHandler.NearbyMalls)
	mallGroup.PATCH("/:mallId/toggle", mallHandler.ToggleMall)
	mallGroup.PATCH("/:mallId/stores/:storeId/toggle", mallHandler.ToggleStore)
	mallGroup.PUT("/:mallId/stores/:storeId", mallHandler.UpdateStore)
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	status := http.StatusOK
	checks := map[string]interface{}{}

	backend := map[string]interface{}{"driver": s.backend.Name(), "status": "ok"}
	if err := s.repo.Ping(c.Request().Context()); err != nil {
		status = http.StatusServiceUnavailable
		backend["status"] = "error"
		backend["error"] = err.Error()
	}
	if db := s.backend.DB(); db != nil {
		backend["pool"] = db.GetConnectionInfo()
	}
	checks["document"] = backend

	state := "ok"
	if status != http.StatusOK {
		state = "error"
	}
	return c.JSON(status, map[string]interface{}{
		"status": state,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
			"go":  runtime.Version(),
		},
	})
}

func (s *Server) readinessCheck(c echo.Context) error {
	if err := s.repo.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "document_backend_unreachable",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server. It returns nil once Shutdown has been called.
func (s *Server) Start() error {
	address := s.config.Server.GetAddr()
	s.logger.Infow("Starting server", "address", address, "backend", s.backend.Name())
	if err := s.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Shutting down server")
	return s.echo.Shutdown(ctx)
}

// customErrorHandler renders every error as {"message": ...}
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			code = http.StatusInternalServerError
			msg  interface{}
		)

		var he *echo.HTTPError
		var ve validator.ValidationErrors
		switch {
		case errors.As(err, &he):
			code = he.Code
			msg = he.Message
			if he.Internal != nil {
				err = fmt.Errorf("%v, %w", err, he.Internal)
			}
		case errors.As(err, &ve):
			code = http.StatusBadRequest
			msg = ve.Error()
		default:
			msg = http.StatusText(code)
		}

		if code >= http.StatusInternalServerError {
			logger.Errorw("Internal server error", "error", err, "path", c.Request().URL.Path)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, map[string]interface{}{"message": msg})
		}
		if err != nil {
			logger.Errorw("Error sending response", "error", err)
		}
	}
}
