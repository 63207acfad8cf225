package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"aetherscribe/internal/models"
	"aetherscribe/internal/templates"
)

func newTestNoteService(t *testing.T, eng ChatEngine) (*ScribeNoteService, *ConversationService) {
	t.Helper()
	conv := newTestConversation(t, eng)
	notes := NewScribeNoteService(conv, eng, templates.Builtin(), nil)
	return notes, conv
}

func TestGenerateNoteBeforeInit(t *testing.T) {
	notes, _ := newTestNoteService(t, &fakeEngine{})
	if revision := notes.GenerateNote(context.Background(), models.DefaultPreferences()); revision != nil {
		t.Errorf("expected nil revision before Init, got %+v", revision)
	}
}

func TestGenerateNote(t *testing.T) {
	eng := &fakeEngine{replies: []string{"reply", "S: chest pain\nO: stable"}}
	notes, conv := newTestNoteService(t, eng)
	notes.Init()

	conv.StartConversation(models.DefaultPreferences())
	if _, err := conv.GenerateResponse(context.Background(), "Patient reports chest pain."); err != nil {
		t.Fatalf("GenerateResponse failed: %v", err)
	}

	revision := notes.GenerateNote(context.Background(), models.DefaultPreferences())
	if revision == nil {
		t.Fatal("expected a note revision")
	}
	if revision.Type != models.RevisionNote {
		t.Errorf("revision type = %s, want %s", revision.Type, models.RevisionNote)
	}
	if revision.Content != "S: chest pain\nO: stable" {
		t.Errorf("revision content = %q", revision.Content)
	}

	// The note prompt is the second engine call (the first was the turn).
	sent := eng.calls[len(eng.calls)-1]
	systemPrompt := sent[0].Content
	if !strings.Contains(systemPrompt, "TRANSCRIPT:") {
		t.Error("note prompt is missing the transcript section")
	}
	if !strings.Contains(systemPrompt, "Speaker: Patient reports chest pain.") {
		t.Error("transcript is missing the role-labeled user line")
	}
	if !strings.Contains(systemPrompt, "AI Scribe:") {
		t.Error("transcript is missing the assistant label")
	}
}

func TestRefineNoteChain(t *testing.T) {
	eng := &fakeEngine{replies: []string{"first note", "refined note"}}
	notes, conv := newTestNoteService(t, eng)
	notes.Init()
	conv.StartConversation(models.DefaultPreferences())

	note := notes.GenerateNote(context.Background(), models.DefaultPreferences())
	if note == nil {
		t.Fatal("expected a note revision")
	}

	refined := notes.RefineNote(context.Background(), "add vitals", note.Content)
	if refined == nil {
		t.Fatal("expected a refinement revision")
	}
	if refined.Type != models.RevisionRefinement {
		t.Errorf("revision type = %s, want %s", refined.Type, models.RevisionRefinement)
	}

	history := notes.History()
	if len(history) != 2 {
		t.Fatalf("history has %d revisions, want 2", len(history))
	}
	if history[0].Type != models.RevisionNote || history[1].Type != models.RevisionRefinement {
		t.Errorf("history types = %s/%s", history[0].Type, history[1].Type)
	}

	current := notes.CurrentNote()
	if current == nil || current.Content != "refined note" {
		t.Errorf("current note = %+v, want the refinement", current)
	}

	// The refinement prompt carries the prior note and the quoted request.
	sent := eng.calls[len(eng.calls)-1]
	systemPrompt := sent[0].Content
	if !strings.Contains(systemPrompt, "CURRENT NOTE:\nfirst note") {
		t.Error("refinement prompt is missing the current note")
	}
	if !strings.Contains(systemPrompt, `"add vitals"`) {
		t.Error("refinement prompt is missing the quoted request")
	}
}

func TestGenerateNoteEngineFailure(t *testing.T) {
	notes, conv := newTestNoteService(t, &fakeEngine{err: errors.New("engine down")})
	notes.Init()
	conv.StartConversation(models.DefaultPreferences())

	if revision := notes.GenerateNote(context.Background(), models.DefaultPreferences()); revision != nil {
		t.Errorf("expected nil revision on engine failure, got %+v", revision)
	}
	if len(notes.History()) != 0 {
		t.Error("expected no revision recorded on failure")
	}
}

func TestNoteReset(t *testing.T) {
	eng := &fakeEngine{}
	notes, conv := newTestNoteService(t, eng)
	notes.Init()
	conv.StartConversation(models.DefaultPreferences())

	if notes.GenerateNote(context.Background(), models.DefaultPreferences()) == nil {
		t.Fatal("expected a note revision")
	}
	notes.Reset()

	if len(notes.History()) != 0 {
		t.Error("expected empty history after reset")
	}
	if notes.CurrentNote() != nil {
		t.Error("expected no current note after reset")
	}
}
