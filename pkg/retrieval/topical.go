package retrieval

import (
	"context"
	"errors"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"github.com/mnemo-ai/mnemo/config"
	"github.com/mnemo-ai/mnemo/pkg/models"
	"github.com/mnemo-ai/mnemo/pkg/search"
)

// retrieveTopical samples a balanced per-session window of recent messages
// from the ranked sessions and scores each message by blending the session
// prior with the message embedding similarity. Messages without an embedding
// fall back to the session prior alone.
func retrieveTopical(
	ctx context.Context,
	store models.Storage,
	queryEmbedding []float32,
	sessions []rankedSession,
	limit int,
	cfg *config.RetrievalConfig,
) ([]models.RetrievedItem, error) {
	if len(sessions) == 0 {
		return nil, nil
	}

	perSession := ceilDiv(limit, len(sessions))
	messages, err := store.QueryMessages(ctx, sessionIDs(sessions), models.SortDescending, perSession)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}

	priors := make(map[string]float64, len(sessions))
	for _, s := range sessions {
		priors[s.Session.SessionID] = s.Similarity
	}

	items, err := scoreMessages(
		ctx,
		queryEmbedding,
		messages,
		priors,
		cfg.SessionPriorWeight,
		cfg.MessageWeight,
	)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Similarity > items[j].Similarity
	})
	if len(items) > limit {
		items = items[:limit]
	}

	return items, nil
}

// retrieveRecentFallback is the within-tier fallback for conversational
// queries whose ranked sessions produced nothing usable: it retries against
// the most recently created sessions regardless of threshold, with a fixed
// base prior. Callers tag the result path distinctly so confident and
// best-effort answers stay distinguishable.
func retrieveRecentFallback(
	ctx context.Context,
	store models.Storage,
	queryEmbedding []float32,
	limit int,
	cfg *config.RetrievalConfig,
) ([]models.RetrievedItem, []rankedSession, error) {
	sessions, err := store.QuerySessions(ctx, models.CrossSessionScope())
	if err != nil {
		return nil, nil, err
	}
	if len(sessions) == 0 {
		return nil, nil, nil
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	if len(sessions) > cfg.RecentFallbackSessions {
		sessions = sessions[:cfg.RecentFallbackSessions]
	}

	recent := make([]rankedSession, len(sessions))
	priors := make(map[string]float64, len(sessions))
	for i, s := range sessions {
		recent[i] = rankedSession{
			Session:    s,
			Similarity: cfg.RecentFallbackBase,
			Score:      cfg.RecentFallbackBase,
		}
		priors[s.SessionID] = cfg.RecentFallbackBase
	}

	perSession := ceilDiv(limit, len(recent))
	messages, err := store.QueryMessages(ctx, sessionIDs(recent), models.SortDescending, perSession)
	if err != nil {
		return nil, nil, err
	}
	if len(messages) == 0 {
		return nil, recent, nil
	}

	items, err := scoreMessages(
		ctx,
		queryEmbedding,
		messages,
		priors,
		cfg.RecentFallbackPriorWeight,
		1.0-cfg.RecentFallbackPriorWeight,
	)
	if err != nil {
		return nil, nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Similarity > items[j].Similarity
	})
	if len(items) > limit {
		items = items[:limit]
	}

	return items, recent, nil
}

// scoreMessages computes the blended similarity of each message
// concurrently. Scoring only reads the message's own embedding and the
// per-request query embedding, so no locking is needed.
func scoreMessages(
	ctx context.Context,
	queryEmbedding []float32,
	messages []models.MessageRow,
	priors map[string]float64,
	priorWeight float64,
	messageWeight float64,
) ([]models.RetrievedItem, error) {
	scorePool := pool.NewWithResults[models.RetrievedItem]().WithContext(ctx).
		WithCancelOnError().
		WithFirstError()

	for i := range messages {
		msg := messages[i]
		scorePool.Go(func(_ context.Context) (models.RetrievedItem, error) {
			prior := priors[msg.SessionID]

			similarity := prior
			if len(msg.Embedding) > 0 {
				semantic, err := search.CosineSimilarity(queryEmbedding, msg.Embedding)
				if err != nil {
					var mismatch *models.DimensionMismatchError
					if !errors.As(err, &mismatch) {
						return models.RetrievedItem{}, err
					}
					log.Warnf("skipping embedding of message %s: %v", msg.UUID, err)
				} else {
					similarity = prior*priorWeight + semantic*messageWeight
				}
			}

			return messageToItem(msg, similarity)
		})
	}

	return scorePool.Wait()
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}
