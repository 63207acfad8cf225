package models

// Message roles, matching the wire format of the inference engine.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single message in the conversation log.
// Messages are immutable once created; ordering is insertion order.
type Message struct {
	ID        string `json:"id"`
	Role      string `json:"role"` // "system", "user", "assistant"
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
}

// SnapshotMessage is the persisted form of a message inside a session snapshot.
// Restored messages are verbatim historical records, never re-derived.
type SnapshotMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// SessionSnapshot is the whole-state conversation snapshot written on every
// save and read wholesale on resume. It is either fully present or absent.
type SessionSnapshot struct {
	Messages    []SnapshotMessage `json:"messages"`
	Preferences Preferences       `json:"preferences"`
	SavedAt     int64             `json:"savedAt"` // Unix milliseconds
}

// EngineMessage is the {role, content} pair sent to the inference engine.
type EngineMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
