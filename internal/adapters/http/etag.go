package http

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ETagMiddleware attaches a weak ETag to successful GET responses and
// answers 304 when the client already holds the current representation.
// Registry reads (farms, fields, artifacts) change rarely between agent
// syncs, so revalidation saves most of the body bytes on polling clients.
func ETagMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}

		if c.Method() != fiber.MethodGet || c.Response().StatusCode() != 200 {
			return nil
		}
		body := c.Response().Body()
		if len(body) == 0 {
			return nil
		}

		sum := sha256.Sum256(body)
		etag := `W/"` + hex.EncodeToString(sum[:8]) + `"`
		c.Set("ETag", etag)

		// If-None-Match may carry a comma-separated list.
		for _, candidate := range strings.Split(c.Get("If-None-Match"), ",") {
			if strings.TrimSpace(candidate) == etag {
				c.Status(304)
				c.Response().ResetBody()
				return nil
			}
		}
		return nil
	}
}
