package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RouteLogger emits one structured line per request: method, path, response
// status, actor uid when a session is present, duration and trace ID.
func RouteLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		evt := log.Info().
			Str("trace_id", GetTraceID(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("duration", time.Since(start))
		if uid := ActorUID(c); uid != uuid.Nil {
			evt = evt.Str("actor", uid.String())
		}
		evt.Msg("Request handled")
		return err
	}
}
