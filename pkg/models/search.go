package models

import (
	"time"

	"github.com/google/uuid"
)

type SearchType string

const (
	SearchTypeSimilarity SearchType = "similarity"
	SearchTypeMMR        SearchType = "mmr"
)

// SearchPath identifies which retrieval strategy produced a result. Exposed
// for diagnosability and testing.
type SearchPath string

const (
	SearchPathTwoTierPositional SearchPath = "two_tier_positional"
	SearchPathTwoTierTopical    SearchPath = "two_tier_topical"
	SearchPathRecentFallback    SearchPath = "two_tier_recent_fallback"
	SearchPathLegacy            SearchPath = "legacy"
)

// SearchOptions are the caller-supplied knobs of a retrieval call. Zero
// values are filled in from config defaults.
type SearchOptions struct {
	Limit         int        `json:"limit,omitempty"         validate:"omitempty,gte=1,lte=100"`
	MinSimilarity float64    `json:"min_similarity,omitempty" validate:"omitempty,gte=-1,lte=1"`
	SessionID     string     `json:"session_id,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	SearchType    SearchType `json:"search_type,omitempty"   validate:"omitempty,oneof=similarity mmr"`
	MMRLambda     float32    `json:"mmr_lambda,omitempty"    validate:"omitempty,gte=0,lte=1"`
	MaxTokens     int        `json:"max_tokens,omitempty"    validate:"omitempty,gte=0"`
	// UseTwoTier defaults to true when unset.
	UseTwoTier *bool `json:"use_two_tier,omitempty"`
}

// TwoTierEnabled reports whether session-level retrieval should be attempted.
func (o SearchOptions) TwoTierEnabled() bool {
	return o.UseTwoTier == nil || *o.UseTwoTier
}

// RetrievedItem is one ranked message or memory record.
type RetrievedItem struct {
	UUID       uuid.UUID `json:"uuid"`
	SessionID  string    `json:"session_id,omitempty"`
	Role       string    `json:"role,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	Similarity float64   `json:"similarity"`
	Source     string    `json:"source"`
	Embedding  []float32 `json:"-"`
}

// SessionContext reports a session consulted while answering, with its
// summary similarity to the query.
type SessionContext struct {
	SessionID  string  `json:"session_id"`
	Title      string  `json:"title,omitempty"`
	Similarity float64 `json:"similarity"`
}

// SearchResult is the uniform response shape of every retrieval path.
// An empty result is not an error: Success stays true and Diagnostic
// explains which path was taken and why.
type SearchResult struct {
	Success        bool             `json:"success"`
	Query          string           `json:"query"`
	Results        []RetrievedItem  `json:"results"`
	Count          int              `json:"count"`
	SearchPath     SearchPath       `json:"search_path,omitempty"`
	SessionContext []SessionContext `json:"session_context,omitempty"`
	Diagnostic     string           `json:"diagnostic,omitempty"`
	Error          string           `json:"error,omitempty"`
}
