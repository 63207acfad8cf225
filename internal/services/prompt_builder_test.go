package services

import (
	"strings"
	"testing"

	"aetherscribe/internal/models"
	"aetherscribe/internal/templates"
)

func TestPromptBuilderSectionOrder(t *testing.T) {
	b := NewPromptBuilder(templates.Builtin())
	prefs := models.Preferences{
		NoteStyle:          "SOAP",
		Specialty:          "emergency",
		CustomInstructions: "62yo male, follow-up visit",
	}

	prompt := b.Build(prefs)

	sections := []string{
		"PATIENT & ENCOUNTER CONTEXT:",
		"NOTE FORMATTING STYLE:",
		"SPECIALTY GUIDANCE:",
		"IMPORTANT SCRIBING RULES:",
	}
	last := -1
	for _, section := range sections {
		idx := strings.Index(prompt, section)
		if idx == -1 {
			t.Fatalf("prompt is missing section %q", section)
		}
		if idx < last {
			t.Errorf("section %q appears out of order", section)
		}
		last = idx
	}

	if !strings.Contains(prompt, "62yo male, follow-up visit") {
		t.Error("prompt is missing the custom context")
	}
}

func TestPromptBuilderDefaults(t *testing.T) {
	b := NewPromptBuilder(templates.Builtin())

	prompt := b.Build(models.Preferences{})
	if !strings.Contains(prompt, "No specific patient context provided.") {
		t.Error("prompt is missing the default context line")
	}
	if !strings.Contains(prompt, "NOTE FORMATTING STYLE: SOAP") {
		t.Error("prompt did not fall back to the SOAP style")
	}
	if strings.Contains(prompt, "SPECIALTY GUIDANCE:") {
		t.Error("prompt carries specialty guidance for an unknown specialty")
	}
}

func TestPromptBuilderDeterministic(t *testing.T) {
	b := NewPromptBuilder(templates.Builtin())
	prefs := models.DefaultPreferences()

	if b.Build(prefs) != b.Build(prefs) {
		t.Error("identical preferences produced different prompts")
	}
}
