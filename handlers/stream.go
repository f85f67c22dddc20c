package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"wgdash/models"
)

// Stream pushes an `update` event right away and then once per stream
// interval until the client goes away. A failed tick sends an `error` event
// and the loop carries on with the next tick.
func (h *Handler) Stream(c echo.Context) error {
	ctx := c.Request().Context()
	res := c.Response()

	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	ticker := time.NewTicker(h.Cfg.StreamIntervalDuration())
	defer ticker.Stop()

	for {
		if err := h.pushUpdate(ctx, res); err != nil {
			// the client is gone; nothing left to write to
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (h *Handler) pushUpdate(ctx context.Context, res *echo.Response) error {
	view, err := h.Aggregator.Build(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("Stream tick failed: %v", err)
		return writeEvent(res, "error", models.ErrorResponse{Error: unavailableMessage})
	}
	return writeEvent(res, "update", view)
}

func writeEvent(res *echo.Response, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	res.Flush()
	return nil
}
