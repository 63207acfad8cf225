package services

import (
	"context"

	"aetherscribe/internal/models"
)

// ChatEngine is the inference capability consumed by the conversation and
// note managers. It is opaque, potentially slow, and never retried.
type ChatEngine interface {
	ChatCompletion(ctx context.Context, messages []models.EngineMessage, temperature float64, maxTokens int) (string, error)
}
