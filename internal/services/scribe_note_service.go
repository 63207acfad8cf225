package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"aetherscribe/internal/models"
	"aetherscribe/internal/templates"
)

// Generation settings for note derivation. Low temperature favors
// faithfulness to the transcript over creativity.
const (
	noteTemperature = 0.3
	noteMaxTokens   = 1024
)

// ScribeNoteService derives structured notes from the conversation
// transcript and keeps its own append-only revision history, independent of
// the conversational turn log. Engine failures surface as a nil revision,
// never as a panic or an error the caller must branch on; absence is the
// failure signal.
type ScribeNoteService struct {
	conversation *ConversationService
	engine       ChatEngine
	templates    *templates.Set
	metrics      *Metrics

	mu          sync.Mutex
	history     []models.NoteRevision
	initialized bool
}

// NewScribeNoteService creates the note service. metrics may be nil.
func NewScribeNoteService(conversation *ConversationService, eng ChatEngine, set *templates.Set, metrics *Metrics) *ScribeNoteService {
	return &ScribeNoteService{
		conversation: conversation,
		engine:       eng,
		templates:    set,
		metrics:      metrics,
	}
}

// Init marks the service ready. Generation before Init is a no-op.
func (s *ScribeNoteService) Init() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
	log.Println("📝 [SCRIBE-NOTE] Initialized")
}

// GenerateNote serializes the full transcript into a generation prompt and
// appends the result as a "note" revision. Returns nil when the service is
// not initialized, no engine is available, or generation fails.
func (s *ScribeNoteService) GenerateNote(ctx context.Context, prefs models.Preferences) *models.NoteRevision {
	if !s.ready() {
		return nil
	}

	transcript := s.transcript()
	_, styleText := s.templates.NoteStyle(prefs.NoteStyle)
	specialtyText := s.templates.Specialty(prefs.Specialty)

	var systemPrompt strings.Builder
	systemPrompt.WriteString(templates.BaseScribeRole)
	systemPrompt.WriteString("\nYour task is to generate a comprehensive medical note based on the provided transcript.\n\n")
	systemPrompt.WriteString("FORMATTING STYLE:\n")
	systemPrompt.WriteString(styleText)
	systemPrompt.WriteString("\n\nSPECIALTY CONTEXT:\n")
	systemPrompt.WriteString(specialtyText)
	systemPrompt.WriteString("\n\nENCOUNTER CONTEXT:\n")
	systemPrompt.WriteString(prefs.CustomInstructions)
	systemPrompt.WriteString("\n\nTRANSCRIPT:\n")
	systemPrompt.WriteString(transcript)
	systemPrompt.WriteString("\n\nGenerate the note now. If details are missing, omit them. Do not hallucinate.")

	content, err := s.generate(ctx, systemPrompt.String(), "Please generate the note based on the transcript above.")
	if err != nil {
		log.Printf("❌ [SCRIBE-NOTE] Note generation error: %v", err)
		return nil
	}

	revision := s.append(models.RevisionNote, content)
	if s.metrics != nil {
		s.metrics.NotesGenerated.Inc()
	}
	return &revision
}

// RefineNote builds a prompt from the caller-resolved current note plus the
// user's free-text change request and appends the result as a "refinement"
// revision. Returns nil on failure.
func (s *ScribeNoteService) RefineNote(ctx context.Context, userRefinement, currentNote string) *models.NoteRevision {
	if !s.ready() {
		return nil
	}

	var systemPrompt strings.Builder
	systemPrompt.WriteString(templates.BaseScribeRole)
	systemPrompt.WriteString("\nYou have already generated a medical note. The user wants to refine it.\n\n")
	systemPrompt.WriteString("CURRENT NOTE:\n")
	systemPrompt.WriteString(currentNote)
	systemPrompt.WriteString("\n\nUSER REFINEMENT REQUEST:\n")
	systemPrompt.WriteString(fmt.Sprintf("%q", userRefinement))
	systemPrompt.WriteString("\n\nUpdate the note according to the user's request while maintaining professional standards.")

	content, err := s.generate(ctx, systemPrompt.String(), "Apply the refinement to the note.")
	if err != nil {
		log.Printf("❌ [SCRIBE-NOTE] Note refinement error: %v", err)
		return nil
	}

	revision := s.append(models.RevisionRefinement, content)
	return &revision
}

// CurrentNote resolves the latest revision (note or refinement), or nil when
// no note has been generated yet.
func (s *ScribeNoteService) CurrentNote() *models.NoteRevision {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) == 0 {
		return nil
	}
	latest := s.history[len(s.history)-1]
	return &latest
}

// History returns a copy of the revision history.
func (s *ScribeNoteService) History() []models.NoteRevision {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.NoteRevision, len(s.history))
	copy(out, s.history)
	return out
}

// Reset clears the revision history.
func (s *ScribeNoteService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

func (s *ScribeNoteService) ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized && s.engine != nil
}

func (s *ScribeNoteService) generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []models.EngineMessage{
		{Role: models.RoleSystem, Content: systemPrompt},
		{Role: models.RoleUser, Content: userPrompt},
	}
	return s.engine.ChatCompletion(ctx, messages, noteTemperature, noteMaxTokens)
}

func (s *ScribeNoteService) append(revisionType, content string) models.NoteRevision {
	revision := models.NoteRevision{
		Type:      revisionType,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}

	s.mu.Lock()
	s.history = append(s.history, revision)
	s.mu.Unlock()
	return revision
}

// transcript serializes the conversation role-labeled and chronological.
func (s *ScribeNoteService) transcript() string {
	history := s.conversation.History()
	lines := make([]string, 0, len(history))
	for _, m := range history {
		role := "Speaker"
		if m.Role == models.RoleAssistant {
			role = "AI Scribe"
		}
		lines = append(lines, role+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}
