package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"aetherscribe/internal/models"
	"aetherscribe/internal/storage"

	"github.com/google/uuid"
)

const conversationStorageKey = "aether_scribe_conversation"

// Generation settings for conversational turns.
const (
	turnTemperature = 0.7
	turnMaxTokens   = 512
)

// ConversationService is the single source of truth for the active dialogue
// and its durable persistence. Callers must not issue concurrent
// GenerateResponse calls for the same conversation; responses would
// interleave and corrupt turn order.
type ConversationService struct {
	engine  ChatEngine
	store   *storage.Store
	prompts *PromptBuilder
	metrics *Metrics

	mu       sync.Mutex
	messages []models.Message
	prefs    models.Preferences
	dirty    bool
}

// NewConversationService creates a conversation service. metrics may be nil.
func NewConversationService(eng ChatEngine, store *storage.Store, prompts *PromptBuilder, metrics *Metrics) *ConversationService {
	return &ConversationService{
		engine:  eng,
		store:   store,
		prompts: prompts,
		metrics: metrics,
	}
}

// StartConversation resets the message log to a single greeting derived from
// the preferences. Prior persisted snapshots are untouched until the next save.
func (s *ConversationService) StartConversation(prefs models.Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs = prefs
	greeting := fmt.Sprintf(
		"Ready to scribe this encounter. Note style: %s. Specialty: %s. Begin speaking when ready.",
		prefs.NoteStyle, prefs.Specialty,
	)
	s.messages = []models.Message{newMessage(models.RoleAssistant, greeting)}
	s.dirty = true

	log.Printf("💬 [CONVERSATION] Started (style=%s, specialty=%s)", prefs.NoteStyle, prefs.Specialty)
}

// GenerateResponse appends the user message, asks the engine for a reply and
// appends it. On engine failure the user message stays appended (no rollback)
// and the error is returned for the caller to surface; there is no retry.
func (s *ConversationService) GenerateResponse(ctx context.Context, userText string) (models.Message, error) {
	s.mu.Lock()
	userMsg := newMessage(models.RoleUser, userText)
	s.messages = append(s.messages, userMsg)
	s.dirty = true

	engineMessages := make([]models.EngineMessage, 0, len(s.messages)+1)
	engineMessages = append(engineMessages, models.EngineMessage{
		Role:    models.RoleSystem,
		Content: s.prompts.Build(s.prefs),
	})
	for _, m := range s.messages {
		engineMessages = append(engineMessages, models.EngineMessage{Role: m.Role, Content: m.Content})
	}
	s.mu.Unlock()

	content, err := s.engine.ChatCompletion(ctx, engineMessages, turnTemperature, turnMaxTokens)
	if err != nil {
		log.Printf("❌ [CONVERSATION] Generation failed: %v", err)
		return models.Message{}, fmt.Errorf("generation failed: %w", err)
	}

	reply := newMessage(models.RoleAssistant, content)

	s.mu.Lock()
	s.messages = append(s.messages, reply)
	s.dirty = true
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ConversationTurns.Inc()
	}
	return reply, nil
}

// History returns a copy of the in-memory message log.
func (s *ConversationService) History() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// SystemPrompt returns the exact prompt that would be sent for the current
// preferences. Used by the debug endpoint.
func (s *ConversationService) SystemPrompt() string {
	s.mu.Lock()
	prefs := s.prefs
	s.mu.Unlock()
	return s.prompts.Build(prefs)
}

// Preferences returns the preference snapshot the conversation was started with.
func (s *ConversationService) Preferences() models.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

// SaveToStorage overwrites the persisted snapshot with the whole current state.
func (s *ConversationService) SaveToStorage(ctx context.Context) error {
	s.mu.Lock()
	snapshot := models.SessionSnapshot{
		Messages:    make([]models.SnapshotMessage, 0, len(s.messages)),
		Preferences: s.prefs,
		SavedAt:     time.Now().UnixMilli(),
	}
	for _, m := range s.messages {
		snapshot.Messages = append(snapshot.Messages, models.SnapshotMessage{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	s.mu.Unlock()

	if err := s.store.Set(ctx, conversationStorageKey, snapshot); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}

	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
	return nil
}

// LoadFromStorage reads the persisted snapshot. A nil snapshot with a nil
// error means nothing is persisted.
func (s *ConversationService) LoadFromStorage(ctx context.Context) (*models.SessionSnapshot, error) {
	var snapshot models.SessionSnapshot
	found, err := s.store.Get(ctx, conversationStorageKey, &snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &snapshot, nil
}

// RestoreFromData replaces the entire in-memory log from a snapshot. Role,
// content and timestamp are restored verbatim as historical records.
func (s *ConversationService) RestoreFromData(snapshot *models.SessionSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs = snapshot.Preferences
	s.messages = make([]models.Message, 0, len(snapshot.Messages))
	for _, m := range snapshot.Messages {
		s.messages = append(s.messages, models.Message{
			ID:        uuid.NewString(),
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	s.dirty = false

	log.Printf("💬 [CONVERSATION] Restored %d messages from snapshot", len(s.messages))
}

// Reset clears the in-memory log without touching persisted storage. An
// explicit save is required to make the reset durable.
func (s *ConversationService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.dirty = true
}

// Dirty reports whether the in-memory state has changed since the last save.
func (s *ConversationService) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func newMessage(role, content string) models.Message {
	return models.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}
}
