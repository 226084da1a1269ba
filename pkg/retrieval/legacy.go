package retrieval

import (
	"context"
	"errors"
	"sort"

	"github.com/jinzhu/copier"

	"github.com/mnemo-ai/mnemo/pkg/models"
	"github.com/mnemo-ai/mnemo/pkg/search"
)

// retrieveLegacy is the single-tier flat scan: union the embedded message
// and memory corpora, score each row against the query embedding, drop rows
// below the similarity floor, sort descending and truncate. Rows with a
// mismatched embedding width are skipped with a warning; an empty corpus is
// an empty result, never an error.
func retrieveLegacy(
	ctx context.Context,
	store models.Storage,
	queryEmbedding []float32,
	minSimilarity float64,
	limit int,
) ([]models.RetrievedItem, error) {
	rows, err := store.QueryCorpusUnion(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]models.RetrievedItem, 0, len(rows))
	for i := range rows {
		row := rows[i]
		if len(row.Embedding) == 0 {
			continue
		}
		similarity, err := search.CosineSimilarity(queryEmbedding, row.Embedding)
		if err != nil {
			var mismatch *models.DimensionMismatchError
			if !errors.As(err, &mismatch) {
				return nil, err
			}
			log.Warnf("skipping corpus row %s: %v", row.UUID, err)
			continue
		}
		if similarity < minSimilarity {
			continue
		}

		var item models.RetrievedItem
		if err := copier.Copy(&item, &row); err != nil {
			return nil, err
		}
		item.Similarity = similarity
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
