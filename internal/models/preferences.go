package models

// Preferences holds the recognized user options. The preference store keeps
// the persisted document as a raw map so unknown keys from a prior version
// survive updates; this struct is the typed view of the recognized subset.
type Preferences struct {
	NoteStyle          string `json:"noteStyle"`
	Specialty          string `json:"specialty"`
	CustomInstructions string `json:"customInstructions"`
	Muted              bool   `json:"muted"`
	SelectedVoice      string `json:"selectedVoice"`
	DarkMode           bool   `json:"darkMode"`
	TutorInstruction   string `json:"tutorInstruction"` // Repurposed as specialty context
	TutorLanguage      string `json:"tutorLanguage"`
}

// DefaultPreferences returns the preference set used when nothing is persisted.
func DefaultPreferences() Preferences {
	return Preferences{
		NoteStyle:          "SOAP",
		Specialty:          "internal_medicine",
		CustomInstructions: "",
		Muted:              false,
		SelectedVoice:      "",
		DarkMode:           false,
		TutorInstruction:   "pediatrics",
		TutorLanguage:      "english",
	}
}
