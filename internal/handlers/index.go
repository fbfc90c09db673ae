package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/verselens-search-api/internal/engine"
	"github.com/verselens-search-api/internal/services"
)

// IndexHandler handles index status and build endpoints
type IndexHandler struct {
	verseSearch        *services.VerseSearchService
	defaultTranslation string
}

// NewIndexHandler creates a new index handler
func NewIndexHandler(verseSearch *services.VerseSearchService, defaultTranslation string) *IndexHandler {
	return &IndexHandler{
		verseSearch:        verseSearch,
		defaultTranslation: defaultTranslation,
	}
}

// Status handles GET /status
func (h *IndexHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.verseSearch.Status())
}

// BuildIndex handles POST /build-index?translation=KJV&force=true. The build
// runs in the background; the response only acknowledges it.
func (h *IndexHandler) BuildIndex(c echo.Context) error {
	translation := c.QueryParam("translation")
	if translation == "" {
		translation = h.defaultTranslation
	}

	force := false
	if raw := c.QueryParam("force"); raw != "" {
		var err error
		if force, err = strconv.ParseBool(raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "force must be true or false")
		}
	}

	resp, err := h.verseSearch.BuildIndex(c.Request().Context(), translation, force)
	switch {
	case errors.Is(err, engine.ErrBuildAlreadyInProgress):
		return c.JSON(http.StatusAccepted, resp)
	case errors.Is(err, services.ErrUnknownTranslation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		c.Logger().Errorf("Failed to schedule index build: %v", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Index build could not be scheduled")
	}

	if resp.Status == string(engine.BuildStarted) {
		return c.JSON(http.StatusAccepted, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

// RegisterRoutes registers index routes
func (h *IndexHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/status", h.Status)
	g.POST("/build-index", h.BuildIndex)
}
