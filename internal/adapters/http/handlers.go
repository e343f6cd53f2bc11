package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mallmap/core/internal/domain/entities"
	"github.com/mallmap/core/internal/infrastructure/logger"
	"github.com/mallmap/core/internal/ports"
)

// CallerContextKey is the echo context key holding the authenticated caller.
const CallerContextKey = "caller"

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService ports.AuthService
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService ports.AuthService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Login godoc
// @Summary Log in
// @Description Exchange username and password for a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.LoginRequest true "Credentials"
// @Success 200 {object} ports.AuthResponse
// @Failure 400 {object} MessageResponse
// @Failure 401 {object} MessageResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	response, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		if !errors.Is(err, entities.ErrInvalidCredentials) {
			return toHTTPError(err)
		}
		h.logger.LogSecurityEvent("login_failed", req.Username, c.RealIP(), nil)
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	return c.JSON(http.StatusOK, response)
}

// Me godoc
// @Summary Current caller
// @Tags auth
// @Produce json
// @Success 200 {object} entities.Caller
// @Failure 401 {object} MessageResponse
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	caller := CallerFromContext(c)
	if caller == nil {
		return toHTTPError(entities.ErrUnauthenticated)
	}
	return c.JSON(http.StatusOK, caller)
}

// CallerFromContext returns the authenticated caller, or nil.
func CallerFromContext(c echo.Context) *entities.Caller {
	caller, _ := c.Get(CallerContextKey).(*entities.Caller)
	return caller
}

// toHTTPError maps domain errors onto HTTP status codes.
func toHTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, entities.ErrUnauthenticated):
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, entities.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, entities.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
	case errors.Is(err, entities.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, entities.ErrInvalidOperation), errors.Is(err, entities.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, entities.ErrPersistence):
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to persist data").SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)).SetInternal(err)
}

func pathID(c echo.Context, name string) (int, error) {
	// ids that parse but match nothing fall through to the service as 404
	id, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}

// Request/Response types

// MessageResponse is the body of every error response.
type MessageResponse struct {
	Message string `json:"message"`
}
