package retrieval

import (
	"context"
	"errors"
	"sort"

	"github.com/jinzhu/copier"

	"github.com/mnemo-ai/mnemo/config"
	"github.com/mnemo-ai/mnemo/pkg/models"
	"github.com/mnemo-ai/mnemo/pkg/search"
)

// positionDecay lowers the order-priority of each successive message from
// the chronological anchor so that the anchored message ranks first.
const positionDecay = 0.05

// retrievePositional resolves a positional reference against the ranked
// sessions. Exact positions (Nth, "N messages ago", self-referential "just
// said") fetch a single row by offset; first/last intent fetches a per
// session window ordered from the relevant end and blends order priority
// with semantic similarity. Positional results bypass the similarity
// threshold; an empty targeted session yields an empty result, not an error.
func retrievePositional(
	ctx context.Context,
	store models.Storage,
	queryEmbedding []float32,
	sessions []rankedSession,
	pos *models.PositionRef,
	limit int,
	cfg *config.RetrievalConfig,
) ([]models.RetrievedItem, error) {
	if len(sessions) == 0 || pos == nil {
		return nil, nil
	}

	switch pos.Kind {
	case models.PositionNth:
		return retrieveOffset(ctx, store, sessions[0], pos.Index-1, models.SortAscending, pos, cfg.NthBase)
	case models.PositionAgo:
		return retrieveOffset(ctx, store, sessions[0], pos.Index-1, models.SortDescending, pos, cfg.NthBase)
	case models.PositionLast:
		if pos.SelfReference {
			return retrieveOffset(ctx, store, sessions[0], 0, models.SortDescending, pos, cfg.LastBase)
		}
		return retrieveOrdered(ctx, store, queryEmbedding, sessions, models.SortDescending, limit, cfg.LastBase, cfg)
	case models.PositionFirst:
		return retrieveOrdered(ctx, store, queryEmbedding, sessions, models.SortAscending, limit, cfg.FirstBase, cfg)
	default:
		return nil, nil
	}
}

// retrieveOffset fetches the single message at a fixed offset within the top
// ranked session, optionally filtered to the requester's sender role for
// first-person phrasing.
func retrieveOffset(
	ctx context.Context,
	store models.Storage,
	session rankedSession,
	offset int,
	order models.SortOrder,
	pos *models.PositionRef,
	base float64,
) ([]models.RetrievedItem, error) {
	if offset < 0 {
		offset = 0
	}
	roleFilter := ""
	if pos.SelfReference {
		roleFilter = models.RoleUser
	}

	msg, err := store.QueryOffset(ctx, session.Session.SessionID, offset, order, roleFilter)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, nil
	}

	item, err := messageToItem(*msg, base)
	if err != nil {
		return nil, err
	}
	return []models.RetrievedItem{item}, nil
}

// retrieveOrdered serves whole-conversation first/last intent: a per-session
// window fetched from the relevant chronological end, scored by decaying
// order priority blended with semantic similarity where message embeddings
// exist.
func retrieveOrdered(
	ctx context.Context,
	store models.Storage,
	queryEmbedding []float32,
	sessions []rankedSession,
	order models.SortOrder,
	limit int,
	base float64,
	cfg *config.RetrievalConfig,
) ([]models.RetrievedItem, error) {
	messages, err := store.QueryMessages(ctx, sessionIDs(sessions), order, limit)
	if err != nil {
		return nil, err
	}

	perSessionRank := make(map[string]int, len(sessions))
	items := make([]models.RetrievedItem, 0, len(messages))
	for i := range messages {
		msg := messages[i]

		rank := perSessionRank[msg.SessionID]
		perSessionRank[msg.SessionID] = rank + 1

		orderScore := base - positionDecay*float64(rank)
		if orderScore < 0 {
			orderScore = 0
		}

		similarity := orderScore
		if len(msg.Embedding) > 0 {
			semantic, err := search.CosineSimilarity(queryEmbedding, msg.Embedding)
			if err != nil {
				var mismatch *models.DimensionMismatchError
				if !errors.As(err, &mismatch) {
					return nil, err
				}
				log.Warnf("skipping embedding of message %s: %v", msg.UUID, err)
			} else {
				similarity = orderScore*cfg.OrderWeight + semantic*cfg.OrderSemanticWeight
			}
		}

		item, err := messageToItem(msg, similarity)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Similarity > items[j].Similarity
	})
	if len(items) > limit {
		items = items[:limit]
	}

	return items, nil
}

func messageToItem(msg models.MessageRow, similarity float64) (models.RetrievedItem, error) {
	var item models.RetrievedItem
	if err := copier.Copy(&item, &msg); err != nil {
		return models.RetrievedItem{}, err
	}
	item.Similarity = similarity
	item.Source = models.SourceMessage
	return item, nil
}
