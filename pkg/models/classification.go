package models

// QueryType describes what kind of retrieval a conversational query calls for.
type QueryType string

const (
	QueryTypePositional QueryType = "positional"
	QueryTypeOverview   QueryType = "overview"
	QueryTypeTopical    QueryType = "topical"
	QueryTypeGeneral    QueryType = "general"
)

// ScopeKind selects the candidate session set for ranking.
type ScopeKind string

const (
	ScopeCurrentSession ScopeKind = "current_session"
	ScopeCrossSession   ScopeKind = "cross_session"
)

// Scope is an explicit sum type: either the current session (with its id) or
// all history. It is threaded through every retrieval call rather than
// inferred from a nullable session id.
type Scope struct {
	Kind      ScopeKind `json:"kind"`
	SessionID string    `json:"session_id,omitempty"`
}

func CurrentSessionScope(sessionID string) Scope {
	return Scope{Kind: ScopeCurrentSession, SessionID: sessionID}
}

func CrossSessionScope() Scope {
	return Scope{Kind: ScopeCrossSession}
}

// PositionKind identifies the flavor of a positional reference.
type PositionKind string

const (
	PositionFirst PositionKind = "first"
	PositionLast  PositionKind = "last"
	PositionNth   PositionKind = "nth"
	PositionAgo   PositionKind = "ago"
)

// PositionRef captures the resolved numeric detail of a positional query.
// Index is 1-based for PositionNth and a count for PositionAgo.
type PositionRef struct {
	Kind          PositionKind `json:"kind"`
	Index         int          `json:"index,omitempty"`
	SelfReference bool         `json:"self_reference,omitempty"`
}

// Classification is the best-effort verdict on a query. Classify never
// fails; a degraded backend yields a deterministic fallback classification.
type Classification struct {
	IsConversational bool         `json:"is_conversational"`
	Type             QueryType    `json:"type"`
	Scope            Scope        `json:"scope"`
	Position         *PositionRef `json:"position,omitempty"`
}
