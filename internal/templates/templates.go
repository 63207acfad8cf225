package templates

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BaseScribeRole is the fixed role text every generated prompt starts with.
const BaseScribeRole = "You are a professional, highly skilled Medical Scribe. Your role is to listen to the clinical encounter and accurately record the details. Ignore background noise and irrelevant small talk. Focus on extracting clinical data, patient history, physical exam findings discussed, and the assessment/plan. Your output should be professional, precise, and use standard medical terminology."

// DefaultNoteStyle is used when a preference names an unknown style.
const DefaultNoteStyle = "SOAP"

// Set holds the note-style and specialty templates, with optional overrides
// loaded from a YAML file on top of the built-ins.
type Set struct {
	NoteStyles  map[string]string `yaml:"note_styles"`
	Specialties map[string]string `yaml:"specialties"`
}

// Builtin returns the built-in template set.
func Builtin() *Set {
	return &Set{
		NoteStyles: map[string]string{
			"SOAP": `Generate a structured SOAP note.
- SUBJECTIVE: Chief complaint, HPI (including OLD CARTS), ROS, relevant PMH/PSH/Social/Family history.
- OBJECTIVE: Physical exam findings, vital signs, relevant labs/imaging provided in the transcript.
- ASSESSMENT: Differential diagnosis and clinical reasoning.
- PLAN: Diagnostic tests, medications, follow-up, and patient education.`,

			"Narrative": `Generate a chronological narrative note.
Describe the patient encounter from start to finish in a professional, flowing paragraph or series of paragraphs. Include all relevant clinical details but maintain a storytelling format.`,

			"Consult": `Generate a specialist consultation note.
Focus on the specific reason for referral. Detail the relevant history, specialty-focused exam, and clear, actionable recommendations for the referring physician.`,

			"Discharge": `Generate a discharge summary.
Focus on the hospital course, stabilized conditions, medication changes, and detailed follow-up instructions for the patient and their primary care team.`,
		},
		Specialties: map[string]string{
			"pediatrics": "Focus on developmental milestones, growth parameters, vaccination status, and pediatric-specific history (birth history, social history regarding school/daycare). Ask about diet, sleep, and behavioral changes.",

			"internal_medicine": "Focus on chronic disease management (diabetes, hypertension, COPD). Emphasize review of systems, medication adherence, and longitudinal care plans. Detail cardiovascular and respiratory findings.",

			"emergency": "Focus on chief complaint, acuity, time of onset, and 'ruling out' life-threats. Emphasize physical exam findings relevant to the emergency and immediate diagnostic/treatment plan.",

			"psychiatry": "Focus on mental status exam, mood, affect, thought process, and safety assessment. Detail psychiatric history, stressors, and therapeutic interventions.",
		},
	}
}

// Load returns the built-in set, extended by the YAML file at path when one
// is given. File entries win over built-ins of the same name.
func Load(path string) (*Set, error) {
	set := Builtin()
	if path == "" {
		return set, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates file: %w", err)
	}

	var overrides Set
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse templates YAML: %w", err)
	}

	for name, text := range overrides.NoteStyles {
		set.NoteStyles[name] = text
	}
	for name, text := range overrides.Specialties {
		set.Specialties[name] = text
	}
	return set, nil
}

// NoteStyle resolves a style name, falling back to SOAP for unknown names.
func (s *Set) NoteStyle(name string) (string, string) {
	if name == "" {
		name = DefaultNoteStyle
	}
	if text, ok := s.NoteStyles[name]; ok {
		return name, text
	}
	return DefaultNoteStyle, s.NoteStyles[DefaultNoteStyle]
}

// Specialty resolves a specialty name; unknown names yield an empty string.
func (s *Set) Specialty(name string) string {
	return s.Specialties[name]
}
