package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldmark/fieldmark/internal/adapters/valkey"
)

var (
	errNotConfigured = errors.New("not configured")
	errDisconnected  = errors.New("disconnected")
)

// HealthHandler is the liveness check. Field agents probe this endpoint to
// decide whether they are online, so it must answer without touching any
// backing service: a degraded cache must not strand every agent offline.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "fieldmark-hub",
			"uptime":  time.Since(startedAt).String(),
		})
	}
}

type readinessCheck struct {
	name  string
	probe func(ctx context.Context) error
}

// ReadyHandler verifies the backing services the sync intake path needs.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	checks := []readinessCheck{
		{"database", func(ctx context.Context) error {
			if deps.DB == nil {
				return errNotConfigured
			}
			return deps.DB.Pool.Ping(ctx)
		}},
		{"nats", func(ctx context.Context) error {
			if deps.NATS == nil {
				return errNotConfigured
			}
			if !deps.NATS.IsConnected() {
				return errDisconnected
			}
			return nil
		}},
		{"cache", func(ctx context.Context) error {
			if deps.Cache == nil {
				return errNotConfigured
			}
			_, err := deps.Cache.Get(ctx, "__health_check__")
			// A miss is the expected answer.
			if err != nil && !errors.Is(err, valkey.ErrMiss) {
				return err
			}
			return nil
		}},
	}

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		results := make(map[string]string, len(checks))
		ready := true
		for _, check := range checks {
			err := check.probe(ctx)
			switch {
			case err == nil:
				results[check.name] = "ok"
			case err == errNotConfigured:
				results[check.name] = "not configured"
				// The hub can serve reads without NATS or cache, but not
				// without postgres.
				if check.name == "database" {
					ready = false
				}
			default:
				results[check.name] = "error: " + err.Error()
				ready = false
			}
		}

		status, code := "ready", 200
		if !ready {
			status, code = "not ready", 503
		}
		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": results,
		})
	}
}
