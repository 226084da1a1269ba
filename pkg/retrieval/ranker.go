package retrieval

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/mnemo-ai/mnemo/config"
	"github.com/mnemo-ai/mnemo/internal"
	"github.com/mnemo-ai/mnemo/pkg/models"
	"github.com/mnemo-ai/mnemo/pkg/search"
)

var log = internal.GetLogger()

// errNoSessionEmbeddings signals that no session in scope carries a summary
// embedding, so session-level ranking is impossible and the caller should
// escalate to the flat corpus scan.
var errNoSessionEmbeddings = errors.New("no session embeddings found")

// rankedSession is a session candidate scored against the query.
type rankedSession struct {
	Session    models.SessionRow
	Similarity float64
	Score      float64
}

// rankSessions scores the sessions in scope against the query embedding.
// A strict pass keeps sessions at or above the primary threshold. When the
// strict pass is empty and the query is conversational, a relaxed pass
// retries with a lowered threshold and a recency-weighted score. The
// returned slice is sorted descending by score and capped at
// max(2, ceil(limit/2)).
func rankSessions(
	ctx context.Context,
	store models.Storage,
	queryEmbedding []float32,
	scope models.Scope,
	conversational bool,
	limit int,
	cfg *config.RetrievalConfig,
) ([]rankedSession, error) {
	sessions, err := store.QuerySessions(ctx, scope)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	candidates := make([]rankedSession, 0, len(sessions))
	for i := range sessions {
		s := sessions[i]
		if len(s.SummaryEmbedding) == 0 {
			continue
		}
		sim, err := search.CosineSimilarity(queryEmbedding, s.SummaryEmbedding)
		if err != nil {
			var mismatch *models.DimensionMismatchError
			if errors.As(err, &mismatch) {
				log.Warnf("skipping session %s: %v", s.SessionID, err)
				continue
			}
			return nil, err
		}
		candidates = append(candidates, rankedSession{Session: s, Similarity: sim})
	}

	if len(candidates) == 0 {
		return nil, errNoSessionEmbeddings
	}

	ranked := make([]rankedSession, 0, len(candidates))
	for _, c := range candidates {
		if c.Similarity >= cfg.PrimaryThreshold {
			c.Score = c.Similarity
			ranked = append(ranked, c)
		}
	}

	if len(ranked) == 0 && conversational {
		relaxed := math.Max(cfg.RelaxedFloor, cfg.PrimaryThreshold*cfg.RelaxedFactor)
		for _, c := range candidates {
			if c.Similarity >= relaxed {
				c.Score = c.Similarity * recencyWeight(now, c.Session.CreatedAt, cfg.RecencyHalfLifeDays)
				ranked = append(ranked, c)
			}
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if budget := sessionBudget(limit); len(ranked) > budget {
		ranked = ranked[:budget]
	}

	return ranked, nil
}

// recencyWeight decays with session age: 1 / (1 + age_days/half_life).
func recencyWeight(now, createdAt time.Time, halfLifeDays float64) float64 {
	if halfLifeDays <= 0 {
		return 1.0
	}
	ageDays := now.Sub(createdAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return 1.0 / (1.0 + ageDays/halfLifeDays)
}

// sessionBudget returns the number of sessions to carry into message
// retrieval: max(2, ceil(limit/2)).
func sessionBudget(limit int) int {
	budget := (limit + 1) / 2
	if budget < 2 {
		budget = 2
	}
	return budget
}

func sessionIDs(sessions []rankedSession) []string {
	ids := make([]string, len(sessions))
	for i := range sessions {
		ids[i] = sessions[i].Session.SessionID
	}
	return ids
}

func sessionContexts(sessions []rankedSession) []models.SessionContext {
	contexts := make([]models.SessionContext, len(sessions))
	for i := range sessions {
		contexts[i] = models.SessionContext{
			SessionID:  sessions[i].Session.SessionID,
			Title:      sessions[i].Session.Title,
			Similarity: sessions[i].Similarity,
		}
	}
	return contexts
}
