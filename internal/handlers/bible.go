package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/verselens-search-api/internal/corpus"
	"github.com/verselens-search-api/internal/services"
)

// BibleHandler serves translation text for browsing
type BibleHandler struct {
	bible       *services.BibleService
	verseSearch *services.VerseSearchService
}

// NewBibleHandler creates a new Bible browsing handler
func NewBibleHandler(bible *services.BibleService, verseSearch *services.VerseSearchService) *BibleHandler {
	return &BibleHandler{
		bible:       bible,
		verseSearch: verseSearch,
	}
}

// Translations handles GET /bible/translations
func (h *BibleHandler) Translations(c echo.Context) error {
	resp, err := h.verseSearch.Translations(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("Failed to list translations: %v", err)
		return echo.NewHTTPError(http.StatusBadGateway, "Translations unavailable")
	}
	return c.JSON(http.StatusOK, resp)
}

// Translation handles GET /bible/:translation
func (h *BibleHandler) Translation(c echo.Context) error {
	resp, err := h.bible.Translation(c.Request().Context(), c.Param("translation"))
	if err != nil {
		return bibleError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Book handles GET /bible/:translation/:book
func (h *BibleHandler) Book(c echo.Context) error {
	resp, err := h.bible.Book(c.Request().Context(), c.Param("translation"), c.Param("book"))
	if err != nil {
		return bibleError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Chapter handles GET /bible/:translation/:book/:chapter
func (h *BibleHandler) Chapter(c echo.Context) error {
	chapter, err := strconv.Atoi(c.Param("chapter"))
	if err != nil || chapter <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "chapter must be a positive number")
	}

	resp, err := h.bible.Chapter(c.Request().Context(), c.Param("translation"), c.Param("book"), chapter)
	if err != nil {
		return bibleError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func bibleError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, corpus.ErrUnknownTranslation):
		return echo.NewHTTPError(http.StatusNotFound, "Translation not found")
	case errors.Is(err, corpus.ErrCorpusUnavailable):
		c.Logger().Errorf("Failed to load translation: %v", err)
		return echo.NewHTTPError(http.StatusBadGateway, "Translation unavailable")
	default:
		c.Logger().Errorf("Failed to load translation: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load translation")
	}
}

// RegisterRoutes registers Bible browsing routes
func (h *BibleHandler) RegisterRoutes(g *echo.Group) {
	b := g.Group("/bible")
	b.GET("/translations", h.Translations)
	b.GET("/:translation", h.Translation)
	b.GET("/:translation/:book", h.Book)
	b.GET("/:translation/:book/:chapter", h.Chapter)
}
