package handlers

import (
	"context"
	"log"
	"time"

	"aetherscribe/internal/engine"

	"github.com/gofiber/contrib/websocket"
)

// ModelProgressHandler streams model download progress over a websocket so
// the client can render a loading bar while the engine pulls weights.
type ModelProgressHandler struct {
	client *engine.Client
}

// NewModelProgressHandler creates a model progress handler.
func NewModelProgressHandler(client *engine.Client) *ModelProgressHandler {
	return &ModelProgressHandler{client: client}
}

// Stream triggers an engine model pull and forwards each progress event as a
// JSON frame. The connection closes when the pull finishes or fails.
func (h *ModelProgressHandler) Stream(c *websocket.Conn) {
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	err := h.client.EnsureModel(ctx, func(event engine.ProgressEvent) {
		if writeErr := c.WriteJSON(event); writeErr != nil {
			cancel()
		}
	})
	if err != nil {
		log.Printf("❌ [MODEL] Pull failed: %v", err)
		_ = c.WriteJSON(map[string]string{"error": err.Error()})
		return
	}

	_ = c.WriteJSON(map[string]interface{}{
		"model": h.client.Model(),
		"done":  true,
	})
}
