package handlers

import (
	"log"

	"aetherscribe/internal/services"
	"aetherscribe/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// ConversationHandler exposes the conversation manager over HTTP.
type ConversationHandler struct {
	conversation *services.ConversationService
	stats        *services.StatsService
	notes        *services.ScribeNoteService
	prefs        *storage.PreferenceStore
}

// NewConversationHandler creates a conversation handler.
func NewConversationHandler(conversation *services.ConversationService, stats *services.StatsService, notes *services.ScribeNoteService, prefs *storage.PreferenceStore) *ConversationHandler {
	return &ConversationHandler{
		conversation: conversation,
		stats:        stats,
		notes:        notes,
		prefs:        prefs,
	}
}

// Start begins a fresh conversation with the stored preferences. Any prior
// in-memory dialogue and note history is discarded.
func (h *ConversationHandler) Start(c *fiber.Ctx) error {
	prefs := h.prefs.Get()
	h.conversation.StartConversation(prefs)
	h.notes.Reset()

	return c.JSON(fiber.Map{
		"messages":    h.conversation.History(),
		"preferences": prefs,
	})
}

type messageRequest struct {
	Message string `json:"message"`
}

// Message appends a user message and returns the assistant reply. The user
// message is tracked against the active stats session either way; a failed
// generation keeps the user message in the log.
func (h *ConversationHandler) Message(c *fiber.Ctx) error {
	var req messageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message is required",
		})
	}

	h.stats.TrackMessage("user", req.Message)

	reply, err := h.conversation.GenerateResponse(c.Context(), req.Message)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to generate response",
		})
	}

	h.stats.TrackMessage("assistant", reply.Content)
	return c.JSON(reply)
}

// History returns the in-memory message log.
func (h *ConversationHandler) History(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"messages": h.conversation.History(),
	})
}

// Save persists the current conversation snapshot.
func (h *ConversationHandler) Save(c *fiber.Ctx) error {
	if err := h.conversation.SaveToStorage(c.Context()); err != nil {
		log.Printf("❌ [CONVERSATION] Save failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save conversation",
		})
	}
	return c.JSON(fiber.Map{"saved": true})
}

// Snapshot returns the persisted snapshot without touching in-memory state.
func (h *ConversationHandler) Snapshot(c *fiber.Ctx) error {
	snapshot, err := h.conversation.LoadFromStorage(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load snapshot",
		})
	}
	if snapshot == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No saved conversation",
		})
	}
	return c.JSON(snapshot)
}

// Restore replaces the in-memory conversation with the persisted snapshot.
func (h *ConversationHandler) Restore(c *fiber.Ctx) error {
	snapshot, err := h.conversation.LoadFromStorage(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load snapshot",
		})
	}
	if snapshot == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No saved conversation",
		})
	}

	h.conversation.RestoreFromData(snapshot)
	return c.JSON(fiber.Map{
		"messages":    h.conversation.History(),
		"preferences": snapshot.Preferences,
	})
}

// Reset clears the in-memory conversation and note history. Persisted
// snapshots survive until the next save.
func (h *ConversationHandler) Reset(c *fiber.Ctx) error {
	h.conversation.Reset()
	h.notes.Reset()
	return c.JSON(fiber.Map{"reset": true})
}

// SystemPrompt returns the exact system prompt for the active preferences.
func (h *ConversationHandler) SystemPrompt(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"systemPrompt": h.conversation.SystemPrompt(),
	})
}
