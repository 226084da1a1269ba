package models

import "context"

// Storage is the single read-only contract the retrieval engine holds
// against the backing store. Implementations must not mutate any entity.
type Storage interface {
	// QuerySessions returns the candidate sessions for the given scope.
	// Sessions without a summary embedding are included; callers decide
	// whether to skip them.
	QuerySessions(ctx context.Context, scope Scope) ([]SessionRow, error)
	// QueryMessages returns up to limitPerSession messages per session,
	// ordered by creation time in the given direction.
	QueryMessages(
		ctx context.Context,
		sessionIDs []string,
		order SortOrder,
		limitPerSession int,
	) ([]MessageRow, error)
	// QueryOffset returns the single message at the given offset from the
	// start (ascending) or end (descending) of a session, optionally
	// filtered to one sender role. Returns nil when no such message exists.
	QueryOffset(
		ctx context.Context,
		sessionID string,
		offset int,
		order SortOrder,
		roleFilter string,
	) (*MessageRow, error)
	// QueryCorpusUnion returns the union of embedded messages and memory
	// records for the legacy flat scan. Rows without an embedding are
	// excluded at the source.
	QueryCorpusUnion(ctx context.Context) ([]EmbeddedRow, error)
}

// SortOrder is the storage-level message ordering direction.
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)
