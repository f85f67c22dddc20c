package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"wgdash/models"
	"wgdash/services"
)

type CacheHandlers struct {
	cache *services.CacheService
}

func NewCacheHandlers(cache *services.CacheService) *CacheHandlers {
	return &CacheHandlers{
		cache: cache,
	}
}

// GetCacheStatus returns cache health and statistics
func (h *CacheHandlers) GetCacheStatus(c echo.Context) error {
	stats := h.cache.Stats()

	response := map[string]interface{}{
		"mode":    string(stats.Mode),
		"healthy": stats.LastError == "",
		"stats":   stats,
	}

	return c.JSON(http.StatusOK, response)
}

// ClearCache drops the cached snapshot so the next request hits the upstream
func (h *CacheHandlers) ClearCache(c echo.Context) error {
	if err := h.cache.Clear(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Cache cleared successfully",
	})
}
