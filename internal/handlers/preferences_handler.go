package handlers

import (
	"aetherscribe/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// PreferencesHandler exposes the preference store. Responses carry the raw
// persisted document so clients round-trip keys this version does not know.
type PreferencesHandler struct {
	prefs *storage.PreferenceStore
}

// NewPreferencesHandler creates a preferences handler.
func NewPreferencesHandler(prefs *storage.PreferenceStore) *PreferencesHandler {
	return &PreferencesHandler{prefs: prefs}
}

// Get returns the full preference document.
func (h *PreferencesHandler) Get(c *fiber.Ctx) error {
	return c.JSON(h.prefs.Raw())
}

// Update shallow-merges the request body into the stored document. Keys not
// present in the body keep their previous values.
func (h *PreferencesHandler) Update(c *fiber.Ctx) error {
	var partial map[string]interface{}
	if err := c.BodyParser(&partial); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if len(partial) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No preferences provided",
		})
	}

	if err := h.prefs.Update(partial); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save preferences",
		})
	}
	return c.JSON(h.prefs.Raw())
}

// Reset restores the default preferences.
func (h *PreferencesHandler) Reset(c *fiber.Ctx) error {
	if err := h.prefs.Reset(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to reset preferences",
		})
	}
	return c.JSON(h.prefs.Raw())
}
