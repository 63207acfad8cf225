package handlers

import (
	"fmt"
	"log"
	"time"

	"aetherscribe/internal/services"
	"aetherscribe/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// StatsHandler exposes encounter session tracking and aggregate stats.
type StatsHandler struct {
	stats *services.StatsService
	prefs *storage.PreferenceStore
}

// NewStatsHandler creates a stats handler.
func NewStatsHandler(stats *services.StatsService, prefs *storage.PreferenceStore) *StatsHandler {
	return &StatsHandler{stats: stats, prefs: prefs}
}

// StartSession opens the single active encounter session. A session already
// in progress is replaced without being recorded.
func (h *StatsHandler) StartSession(c *fiber.Ctx) error {
	session := h.stats.StartSession(h.prefs.Get())
	return c.JSON(session)
}

// EndSession finalizes and records the active session. Without an active
// session it succeeds as a no-op.
func (h *StatsHandler) EndSession(c *fiber.Ctx) error {
	if err := h.stats.EndSession(c.Context()); err != nil {
		log.Printf("❌ [STATS] Failed to end session: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to end session",
		})
	}
	return c.JSON(fiber.Map{"active": h.stats.IsSessionActive()})
}

// Summary returns aggregate totals, streaks and the trailing 7-day window.
func (h *StatsHandler) Summary(c *fiber.Ctx) error {
	return c.JSON(h.stats.GetStatsSummary())
}

// Export downloads the full session history as a JSON attachment.
func (h *StatsHandler) Export(c *fiber.Ctx) error {
	export := h.stats.ExportData()
	filename := fmt.Sprintf("aether-scribe-stats-%s.json", time.Now().Format("2006-01-02"))
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.JSON(export)
}

// Clear wipes the entire session history.
func (h *StatsHandler) Clear(c *fiber.Ctx) error {
	if err := h.stats.ClearAll(c.Context()); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to clear stats",
		})
	}
	return c.JSON(fiber.Map{"cleared": true})
}
