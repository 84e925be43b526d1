package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"diaryapi/internal/version"
)

// Pinger reports whether a dependency is usable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck godoc
// @Summary Readiness: the diary data directory accepts writes
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} errorPayload
// @Router /health [get]
func HealthCheck(p Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// LivenessProbe godoc
// @Summary Liveness
// @Tags health
// @Success 200
// @Router /healthz [get]
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// VersionInfo godoc
// @Summary Build and runtime information
// @Tags health
// @Produce json
// @Success 200 {object} dataResponse{data=version.Info}
// @Router /api/version [get]
func VersionInfo(r *version.Reporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(dataResponse{Data: r.Info()})
	}
}
