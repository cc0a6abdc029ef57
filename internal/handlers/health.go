package handlers

import (
	"aurum/internal/repositories"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck reports liveness of the service and its dependencies.
// It degrades rather than fails: a broken dependency is reported with a
// 503 so orchestrators can tell "up but unhealthy" from "down".
func HealthCheck(c *fiber.Ctx) error {
	status := "ok"
	services := fiber.Map{
		"database": "connected",
		"redis":    "connected",
	}

	if sqlDB, err := repositories.DB.DB(); err != nil || sqlDB.PingContext(c.Context()) != nil {
		status = "degraded"
		services["database"] = "unreachable"
	}
	if err := repositories.CacheService.HealthCheck(c.Context()); err != nil {
		status = "degraded"
		services["redis"] = "unreachable"
	}

	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":   status,
		"version":  "1.0.0",
		"services": services,
	})
}

// CacheStats exposes Redis pool statistics for diagnostics.
func CacheStats(c *fiber.Ctx) error {
	poolStats := repositories.CacheService.GetStats()

	return c.JSON(fiber.Map{
		"pool_stats": fiber.Map{
			"hits":        poolStats.Hits,
			"misses":      poolStats.Misses,
			"timeouts":    poolStats.Timeouts,
			"total_conns": poolStats.TotalConns,
			"idle_conns":  poolStats.IdleConns,
			"stale_conns": poolStats.StaleConns,
		},
	})
}
