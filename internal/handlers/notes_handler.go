package handlers

import (
	"aetherscribe/internal/services"
	"aetherscribe/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// NotesHandler exposes scribe note generation and refinement.
type NotesHandler struct {
	notes *services.ScribeNoteService
	prefs *storage.PreferenceStore
}

// NewNotesHandler creates a notes handler.
func NewNotesHandler(notes *services.ScribeNoteService, prefs *storage.PreferenceStore) *NotesHandler {
	return &NotesHandler{notes: notes, prefs: prefs}
}

// Generate derives a fresh note from the full transcript.
func (h *NotesHandler) Generate(c *fiber.Ctx) error {
	revision := h.notes.GenerateNote(c.Context(), h.prefs.Get())
	if revision == nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Note generation failed",
		})
	}
	return c.JSON(revision)
}

type refineRequest struct {
	Refinement string `json:"refinement"`
}

// Refine applies a free-text change request to the latest note.
func (h *NotesHandler) Refine(c *fiber.Ctx) error {
	var req refineRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Refinement == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Refinement is required",
		})
	}

	current := h.notes.CurrentNote()
	if current == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No note to refine",
		})
	}

	revision := h.notes.RefineNote(c.Context(), req.Refinement, current.Content)
	if revision == nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Note refinement failed",
		})
	}
	return c.JSON(revision)
}

// History returns the full revision history.
func (h *NotesHandler) History(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"revisions": h.notes.History(),
	})
}

// Current returns the latest revision.
func (h *NotesHandler) Current(c *fiber.Ctx) error {
	revision := h.notes.CurrentNote()
	if revision == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No note generated yet",
		})
	}
	return c.JSON(revision)
}
