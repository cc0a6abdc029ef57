package middleware

import (
	"strconv"
	"time"

	"aurum/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

// Metrics records request durations per route. The registered route
// pattern is used rather than the raw path so that path parameters do
// not explode label cardinality.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fiberErr, ok := err.(*fiber.Error); ok {
				status = fiberErr.Code
			}
		}

		path := c.Route().Path
		if path == "" {
			path = "unmatched"
		}
		metrics.ObserveRequest(c.Method(), path, strconv.Itoa(status), time.Since(start).Seconds())

		return err
	}
}
