package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionRow is a read-only view of a conversation session as stored by the
// upstream capture subsystem. SummaryEmbedding may be nil when the session
// summary has not been embedded yet.
type SessionRow struct {
	UUID             uuid.UUID `json:"uuid"`
	SessionID        string    `json:"session_id"`
	Title            string    `json:"title"`
	Type             string    `json:"type"`
	TriggerReason    string    `json:"trigger_reason"`
	CreatedAt        time.Time `json:"created_at"`
	SummaryEmbedding []float32 `json:"-"`
}

// MessageRow is a read-only view of a single chat message. Embedding may be
// nil when the message was never embedded.
type MessageRow struct {
	UUID      uuid.UUID `json:"uuid"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Embedding []float32 `json:"-"`
}

// EmbeddedRow is a row of the flat search corpus: the union of embedded
// messages and standalone memory records.
type EmbeddedRow struct {
	UUID      uuid.UUID `json:"uuid"`
	Source    string    `json:"source"` // "message" or "memory"
	SessionID string    `json:"session_id,omitempty"`
	Role      string    `json:"role,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Embedding []float32 `json:"-"`
}

const (
	SourceMessage = "message"
	SourceMemory  = "memory"
)

// RoleUser is the sender role used to resolve first-person positional
// queries ("what did I just say").
const RoleUser = "user"
