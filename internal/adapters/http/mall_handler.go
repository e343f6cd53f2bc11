package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mallmap/core/internal/application/services"
	"github.com/mallmap/core/internal/domain/entities"
	"github.com/mallmap/core/internal/domain/geo"
	"github.com/mallmap/core/internal/infrastructure/logger"
	"github.com/mallmap/core/internal/ports"
)

// DefaultNearbyRadiusMeters is used when the radius query parameter is absent.
const DefaultNearbyRadiusMeters = 5000

// MallHandler handles mall and store requests
type MallHandler struct {
	mallService ports.MallService
	logger      *logger.Logger
}

// NewMallHandler creates a new mall handler
func NewMallHandler(mallService ports.MallService, logger *logger.Logger) *MallHandler {
	return &MallHandler{
		mallService: mallService,
		logger:      logger,
	}
}

// ListMalls godoc
// @Summary List malls
// @Description Every mall with its stores
// @Tags malls
// @Produce json
// @Success 200 {array} entities.Mall
// @Failure 401 {object} MessageResponse
// @Security BearerAuth
// @Router /malls [get]
func (h *MallHandler) ListMalls(c echo.Context) error {
	malls, err := h.mallService.ListMalls(c.Request().Context(), CallerFromContext(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, malls)
}

// NearbyMalls godoc
// @Summary Malls near a point
// @Tags malls
// @Produce json
// @Param lat query number true "Latitude"
// @Param lng query number true "Longitude"
// @Param radius query number false "Radius in meters" default(5000)
// @Success 200 {array} entities.Mall
// @Failure 400 {object} MessageResponse
// @Failure 401 {object} MessageResponse
// @Security BearerAuth
// @Router /malls/nearby [get]
func (h *MallHandler) NearbyMalls(c echo.Context) error {
	query := ports.NearbyQuery{RadiusMeters: DefaultNearbyRadiusMeters}
	var center geo.Point

	err := echo.QueryParamsBinder(c).
		MustFloat64("lat", &center.Latitude).
		MustFloat64("lng", &center.Longitude).
		Float64("radius", &query.RadiusMeters).
		BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "lat and lng are required numbers, radius must be a number")
	}
	query.Center = center

	malls, err := h.mallService.NearbyMalls(c.Request().Context(), CallerFromContext(c), query)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, malls)
}

// ListStores godoc
// @Summary List stores for the map
// @Description Every store with jittered display coordinates and a website
// @Tags stores
// @Produce json
// @Success 200 {array} entities.StoreView
// @Router /stores [get]
func (h *MallHandler) ListStores(c echo.Context) error {
	return c.JSON(http.StatusOK, h.mallService.ListStoresFlattened(c.Request().Context()))
}

// ToggleMall godoc
// @Summary Open or close a mall
// @Description Closing a mall closes all of its stores
// @Tags malls
// @Produce json
// @Param mallId path int true "Mall ID"
// @Success 200 {object} ports.MallStatus
// @Failure 401 {object} MessageResponse
// @Failure 403 {object} MessageResponse
// @Failure 404 {object} MessageResponse
// @Security BearerAuth
// @Router /malls/{mallId}/toggle [patch]
func (h *MallHandler) ToggleMall(c echo.Context) error {
	caller := CallerFromContext(c)
	if err := services.Authorize(caller, entities.RoleAdmin); err != nil {
		return toHTTPError(err)
	}

	mallID, err := pathID(c, "mallId")
	if err != nil {
		return err
	}

	status, err := h.mallService.ToggleMall(c.Request().Context(), mallID, caller)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, status)
}

// ToggleStore godoc
// @Summary Open or close a store
// @Description A closed store cannot be opened while its mall is closed
// @Tags stores
// @Produce json
// @Param mallId path int true "Mall ID"
// @Param storeId path int true "Store ID"
// @Success 200 {object} ports.StoreStatus
// @Failure 400 {object} MessageResponse
// @Failure 403 {object} MessageResponse
// @Failure 404 {object} MessageResponse
// @Security BearerAuth
// @Router /malls/{mallId}/stores/{storeId}/toggle [patch]
func (h *MallHandler) ToggleStore(c echo.Context) error {
	caller := CallerFromContext(c)
	if err := services.Authorize(caller, entities.RoleManager); err != nil {
		return toHTTPError(err)
	}

	mallID, err := pathID(c, "mallId")
	if err != nil {
		return err
	}
	storeID, err := pathID(c, "storeId")
	if err != nil {
		return err
	}

	status, err := h.mallService.ToggleStore(c.Request().Context(), mallID, storeID, caller)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, status)
}

// UpdateStore godoc
// @Summary Update store details
// @Description Empty fields in the body are left unchanged
// @Tags stores
// @Accept json
// @Produce json
// @Param mallId path int true "Mall ID"
// @Param storeId path int true "Store ID"
// @Param request body entities.StorePatch true "Fields to change"
// @Success 200 {object} entities.StoreWithMall
// @Failure 400 {object} MessageResponse
// @Failure 403 {object} MessageResponse
// @Failure 404 {object} MessageResponse
// @Security BearerAuth
// @Router /malls/{mallId}/stores/{storeId} [put]
func (h *MallHandler) UpdateStore(c echo.Context) error {
	// the role gate runs before the body is parsed
	caller := CallerFromContext(c)
	if err := services.Authorize(caller, entities.RoleStore); err != nil {
		return toHTTPError(err)
	}

	mallID, err := pathID(c, "mallId")
	if err != nil {
		return err
	}
	storeID, err := pathID(c, "storeId")
	if err != nil {
		return err
	}

	var patch entities.StorePatch
	if err := (&echo.DefaultBinder{}).BindBody(c, &patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	store, err := h.mallService.UpdateStore(c.Request().Context(), mallID, storeID, patch, caller)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, store)
}
