package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/verselens-search-api/internal/services"
	"github.com/verselens-search-api/pkg/db"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	bible *services.BibleService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(bible *services.BibleService) *HealthHandler {
	return &HealthHandler{bible: bible}
}

// HealthResponse reports liveness and whether the corpus source can serve
// translations
type HealthResponse struct {
	Status                string `json:"status"`
	TranslationsAvailable bool   `json:"translations_available"`
	CachedTranslations    int    `json:"cached_translations"`
}

// DatabaseHealthResponse is the response for database health check
type DatabaseHealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health handles GET /health. It stays 200 when the corpus source is down;
// translations_available reports that.
func (h *HealthHandler) Health(c echo.Context) error {
	available, cached := h.bible.Availability(c.Request().Context())
	return c.JSON(http.StatusOK, HealthResponse{
		Status:                "healthy",
		TranslationsAvailable: available,
		CachedTranslations:    cached,
	})
}

// PostgresHealth handles GET /health/postgres. Only meaningful when the
// corpus is served from PostgreSQL.
func (h *HealthHandler) PostgresHealth(c echo.Context) error {
	if !db.PostgresEnabled() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_configured",
			"error":  "PostgreSQL is not configured",
		})
	}

	if err := db.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "error",
			"error":  err.Error(),
		})
	}

	return c.JSON(http.StatusOK, DatabaseHealthResponse{
		Status:   "connected",
		Database: "postgres",
	})
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/health", h.Health)
	g.GET("/health/postgres", h.PostgresHealth)
}
