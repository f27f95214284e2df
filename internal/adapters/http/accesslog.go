package http

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Agents probe /health on a short interval to detect connectivity; logging
// every probe would drown the rest of the access log.
func quietPath(path string) bool {
	return path == "/health" || path == "/metrics" || strings.HasSuffix(path, "/ready")
}

// AccessLogMiddleware writes one structured slog line per request: method,
// path, status, latency, bytes out and request ID. Probe endpoints are
// skipped unless they fail.
func AccessLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		path := c.Path()
		method := c.Method()

		err := c.Next()

		status := c.Response().StatusCode()
		if quietPath(path) && status < 400 && err == nil {
			return err
		}

		attrs := []slog.Attr{
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes_out", len(c.Response().Body())),
			slog.String("request_id", requestIDFromCtx(c)),
		}

		level := slog.LevelInfo
		switch {
		case err != nil || status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}

		slog.LogAttrs(c.Context(), level, method+" "+path, attrs...)
		return err
	}
}

func requestIDFromCtx(c *fiber.Ctx) string {
	if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
		return rid
	}
	return "unknown"
}
