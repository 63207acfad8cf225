package services

import (
	"strings"

	"aetherscribe/internal/models"
	"aetherscribe/internal/templates"
)

// PromptBuilder constructs the scribe system prompt from preferences. The
// section order (base role, encounter context, formatting style, specialty
// guidance, rule list) is a contract: the debug endpoint displays the exact
// constructed prompt and downstream tooling depends on the layout.
type PromptBuilder struct {
	templates *templates.Set
}

// NewPromptBuilder creates a prompt builder over a template set.
func NewPromptBuilder(set *templates.Set) *PromptBuilder {
	return &PromptBuilder{templates: set}
}

// Build returns the system prompt for the given preferences. It is pure and
// deterministic: the same preferences always produce the same prompt.
func (b *PromptBuilder) Build(prefs models.Preferences) string {
	var prompt strings.Builder
	prompt.WriteString(templates.BaseScribeRole)
	prompt.WriteString("\n\n")

	// 1. Patient Context (Required)
	context := prefs.CustomInstructions
	if context == "" {
		context = "No specific patient context provided."
	}
	prompt.WriteString("PATIENT & ENCOUNTER CONTEXT:\n")
	prompt.WriteString(context)
	prompt.WriteString("\n\n")

	// 2. Note Style
	styleName, styleText := b.templates.NoteStyle(prefs.NoteStyle)
	prompt.WriteString("NOTE FORMATTING STYLE: ")
	prompt.WriteString(styleName)
	prompt.WriteString("\n")
	prompt.WriteString(styleText)
	prompt.WriteString("\n\n")

	// 3. Specialty Context
	if specialty := b.templates.Specialty(prefs.Specialty); specialty != "" {
		prompt.WriteString("SPECIALTY GUIDANCE:\n")
		prompt.WriteString(specialty)
		prompt.WriteString("\n\n")
	}

	// General Rules
	prompt.WriteString("IMPORTANT SCRIBING RULES:\n")
	prompt.WriteString("1. Extract ALL clinically relevant information from the transcript.\n")
	prompt.WriteString("2. Use professional medical terminology (e.g., 'erythematous' instead of 'red').\n")
	prompt.WriteString("3. Organise the note logically based on the chosen style.\n")
	prompt.WriteString("4. If information is missing (e.g., specific vitals), do not hallucinate them; leave placeholders or omit.\n")
	prompt.WriteString("5. Ignore irrelevant conversational filler.\n")

	return prompt.String()
}
