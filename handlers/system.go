package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// GetHealth returns OK
func (h *Handler) GetHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// GetStatus returns backend status
func (h *Handler) GetStatus(c echo.Context) error {
	status := map[string]interface{}{
		"status":         "running",
		"uptime":         time.Since(h.startedAt).Round(time.Second).String(),
		"upstream":       h.Cfg.UpstreamURL(),
		"cacheMode":      h.Cache.Mode(),
		"streamInterval": h.Cfg.StreamIntervalDuration().String(),
		"cacheTTL":       h.Cfg.CacheTTLDuration().String(),
		"timestamp":      time.Now(),
	}
	return c.JSON(http.StatusOK, status)
}
