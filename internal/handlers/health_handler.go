package handlers

import (
	"time"

	"aetherscribe/internal/services"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler reports process liveness plus a few operational facts.
type HealthHandler struct {
	stats     *services.StatsService
	model     string
	startedAt time.Time
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(stats *services.StatsService, model string) *HealthHandler {
	return &HealthHandler{
		stats:     stats,
		model:     model,
		startedAt: time.Now(),
	}
}

// Check responds with the service status.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":        "ok",
		"model":         h.model,
		"sessionActive": h.stats.IsSessionActive(),
		"uptimeSeconds": int(time.Since(h.startedAt).Seconds()),
	})
}
