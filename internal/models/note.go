package models

// Note revision types. The current note is always the last revision,
// whether it came from generation or refinement.
const (
	RevisionNote       = "note"
	RevisionRefinement = "refinement"
)

// NoteRevision is one entry in the append-only note history.
type NoteRevision struct {
	Type      string `json:"type"` // "note" or "refinement"
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
}
