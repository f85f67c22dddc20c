package handlers

import (
	"embed"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"wgdash/config"
	"wgdash/models"
	"wgdash/services"
)

//go:embed static/index.html
var staticFiles embed.FS

const unavailableMessage = "wg-proxy unreachable"

type Handler struct {
	Cfg        *config.Config
	Cache      *services.CacheService
	Aggregator *services.DataAggregator
	startedAt  time.Time
}

func NewHandler(cfg *config.Config, cache *services.CacheService, aggregator *services.DataAggregator) *Handler {
	return &Handler{
		Cfg:        cfg,
		Cache:      cache,
		Aggregator: aggregator,
		startedAt:  time.Now(),
	}
}

// Index serves the dashboard page, or the event stream when the client
// asks for text/event-stream on the same URL.
func (h *Handler) Index(c echo.Context) error {
	if wantsEventStream(c.Request()) {
		return h.Stream(c)
	}

	page, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "dashboard page missing"})
	}
	return c.HTMLBlob(http.StatusOK, page)
}

func wantsEventStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get(echo.HeaderAccept), "text/event-stream")
}

// GetDashboard returns the AggregateView for now, or 503 when the upstream
// cannot be read.
func (h *Handler) GetDashboard(c echo.Context) error {
	view, err := h.Aggregator.Build(c.Request().Context())
	if err != nil {
		log.Printf("Dashboard build failed: %v", err)
		return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: unavailableMessage})
	}

	c.Response().Header().Set("Cache-Control", "no-cache")
	return c.JSON(http.StatusOK, view)
}

// GetWireGuard passes the cached upstream snapshot through unchanged.
func (h *Handler) GetWireGuard(c echo.Context) error {
	snapshot, err := h.Aggregator.Snapshot(c.Request().Context())
	if err != nil {
		log.Printf("Snapshot fetch failed: %v", err)
		return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: unavailableMessage})
	}
	return c.JSON(http.StatusOK, snapshot)
}
