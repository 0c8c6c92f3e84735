package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/paperdesk/paperdesk/internal/search"
	"github.com/paperdesk/paperdesk/internal/store"
)

// searchService is what the handler needs from the orchestrator; tests
// substitute a stub.
type searchService interface {
	Search(ctx context.Context, query string, scope search.Scope) (*search.Result, error)
	Facets(ctx context.Context, query string) (search.FacetCounts, error)
}

// historyStore reads and clears persisted search history. Saving happens
// inside the orchestrator, once per executed search.
type historyStore interface {
	SearchHistory(ctx context.Context, limit int) ([]store.SearchHistoryEntry, error)
	ClearSearchHistory(ctx context.Context) (int64, error)
}

type SearchHandler struct {
	Searcher searchService
	History  historyStore
}

func (h *SearchHandler) Register(g *echo.Group) {
	g.GET("", h.search)
	g.GET("/facets", h.facets)
	g.GET("/history", h.history)
	g.DELETE("/history", h.clearHistory)
}

func (h *SearchHandler) search(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	scope, err := search.ParseScope(c.QueryParam("scope"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.Searcher.Search(c.Request().Context(), query, scope)
	if err != nil {
		searchErrorsTotal.Inc()
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	searchesTotal.WithLabelValues(string(scope)).Inc()
	return c.JSON(http.StatusOK, res)
}

func (h *SearchHandler) facets(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	fc, err := h.Searcher.Facets(c.Request().Context(), query)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, fc)
}

func (h *SearchHandler) history(c echo.Context) error {
	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	entries, err := h.History.SearchHistory(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if entries == nil {
		entries = []store.SearchHistoryEntry{}
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *SearchHandler) clearHistory(c echo.Context) error {
	n, err := h.History.ClearSearchHistory(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int64{"deleted": n})
}
