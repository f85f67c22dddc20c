package middleware

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

func LoggerMiddleware() echo.MiddlewareFunc {
	return LoggerMiddlewareTo(os.Stdout)
}

// LoggerMiddlewareTo writes one line per finished request to out.
// Event streams are tagged so their long durations read as expected.
func LoggerMiddlewareTo(out io.Writer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			if err != nil {
				c.Error(err)
			}

			stop := time.Now()
			req := c.Request()
			res := c.Response()

			timestamp := stop.Format("2006-01-02 15:04:05")
			path := req.URL.Path
			if req.URL.RawQuery != "" {
				path += "?" + req.URL.RawQuery
			}
			status := res.Status
			latency := stop.Sub(start).Milliseconds()

			kind := ""
			if strings.HasPrefix(res.Header().Get(echo.HeaderContentType), "text/event-stream") {
				kind = " [stream]"
			}

			// [2024-12-13 10:30:15] GET /api/dashboard -> 200 OK (3ms) from 127.0.0.1
			fmt.Fprintf(out, "[%s] %s %s -> %d %s (%dms) from %s%s\n",
				timestamp, req.Method, path, status, http.StatusText(status), latency, c.RealIP(), kind)

			return nil
		}
	}
}
