package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/verselens-search-api/internal/engine"
	"github.com/verselens-search-api/internal/models"
	"github.com/verselens-search-api/internal/services"
)

// SearchHandler handles search endpoints
type SearchHandler struct {
	verseSearch *services.VerseSearchService
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(verseSearch *services.VerseSearchService) *SearchHandler {
	return &SearchHandler{
		verseSearch: verseSearch,
	}
}

// Search handles POST /search - semantic verse search
func (h *SearchHandler) Search(c echo.Context) error {
	var req models.SearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	resp, err := h.verseSearch.Search(c.Request().Context(), req)
	if err != nil {
		return searchError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func searchError(c echo.Context, err error) error {
	var failed *engine.SearchFailedError
	switch {
	case errors.Is(err, engine.ErrNotReady):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Search index not ready")
	case errors.Is(err, engine.ErrInvalidQuery):
		return echo.NewHTTPError(http.StatusBadRequest, "Query too short (minimum 2 characters)")
	case errors.As(err, &failed) && failed.Timeout():
		c.Logger().Warnf("Search timed out: %v", err)
		return echo.NewHTTPError(http.StatusGatewayTimeout, "Search timed out")
	case errors.As(err, &failed):
		c.Logger().Errorf("Search error: %v", err)
		return echo.NewHTTPError(http.StatusBadGateway, "Search failed")
	default:
		c.Logger().Errorf("Search error: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Search failed")
	}
}

// Translations handles GET /translations
func (h *SearchHandler) Translations(c echo.Context) error {
	resp, err := h.verseSearch.Translations(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("Failed to list translations: %v", err)
		return echo.NewHTTPError(http.StatusBadGateway, "Translations unavailable")
	}
	return c.JSON(http.StatusOK, resp)
}

// RegisterRoutes registers search routes
func (h *SearchHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/search", h.Search)
	g.GET("/translations", h.Translations)
}
