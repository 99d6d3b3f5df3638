package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// CacheControl sets cache headers on successful GET responses
func CacheControl(maxAge time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() == "GET" && c.Response().StatusCode() == 200 {
			c.Set("Cache-Control", "public, max-age="+strconv.Itoa(int(maxAge.Seconds())))
		}

		return err
	}
}

// SummaryCache returns cache middleware for the task summary endpoint.
// Counts lag by at most a minute, which is fine for a dashboard figure.
func SummaryCache() fiber.Handler {
	return CacheControl(1 * time.Minute)
}

// NoCache disables caching for sensitive endpoints
func NoCache() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Cache-Control", "no-store")
		return c.Next()
	}
}
