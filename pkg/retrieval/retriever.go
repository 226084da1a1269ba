package retrieval

import (
	"context"
	"errors"
	"time"

	"github.com/mnemo-ai/mnemo/config"
	"github.com/mnemo-ai/mnemo/pkg/classify"
	"github.com/mnemo-ai/mnemo/pkg/models"
	"github.com/mnemo-ai/mnemo/pkg/search"
)

var _ models.Searcher = &Retriever{}

// Retriever is the two-tier conversational memory retrieval engine. Each
// Search call runs a sequential pipeline: classify, rank sessions, retrieve
// messages, assemble. All per-call state is local; a Retriever is safe for
// concurrent use.
type Retriever struct {
	store      models.Storage
	embeddings models.EmbeddingsClient
	classifier *classify.Classifier
	llm        models.LLM
	cfg        *config.RetrievalConfig
}

func NewRetriever(
	store models.Storage,
	embeddings models.EmbeddingsClient,
	llm models.LLM,
	cfg *config.Config,
) *Retriever {
	timeout := classify.DefaultClassifyTimeout
	if cfg.Retrieval.ClassifierTimeoutSeconds > 0 {
		timeout = time.Duration(cfg.Retrieval.ClassifierTimeoutSeconds) * time.Second
	}
	return &Retriever{
		store:      store,
		embeddings: embeddings,
		classifier: classify.NewClassifier(llm, timeout),
		llm:        llm,
		cfg:        &cfg.Retrieval,
	}
}

// strategy is one retrieval path. Strategies are attempted in order; the
// first non-empty result wins.
type strategy struct {
	path models.SearchPath
	run  func(ctx context.Context) ([]models.RetrievedItem, []models.SessionContext, error)
}

// Search runs the full retrieval pipeline for one query. An empty result is
// a success; embedding and storage failures are surfaced as structured
// failure results rather than errors.
func (r *Retriever) Search(
	ctx context.Context,
	query string,
	opts models.SearchOptions,
) (*models.SearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = r.cfg.DefaultLimit
	}
	minSimilarity := opts.MinSimilarity
	if minSimilarity == 0 {
		minSimilarity = r.cfg.MinSimilarity
	}
	fetchLimit := limit
	if opts.SearchType == models.SearchTypeMMR {
		multiplier := r.cfg.MMRMultiplier
		if multiplier < 1 {
			multiplier = 1
		}
		fetchLimit = limit * multiplier
	}

	classification := r.classifier.Classify(ctx, query, opts.SessionID)

	queryEmbedding, err := r.embedQuery(ctx, query)
	if err != nil {
		embedErr := models.NewEmbeddingError("failed to embed query", err)
		log.Errorf("search failed: %v", embedErr)
		return failureResult(query, embedErr), nil
	}

	strategies, diagnostic := r.buildStrategies(
		classification,
		opts,
		queryEmbedding,
		fetchLimit,
		minSimilarity,
	)

	var (
		items          []models.RetrievedItem
		sessionContext []models.SessionContext
		path           models.SearchPath
		legacyOnly     bool
	)
	for _, s := range strategies {
		// Return the best partial result rather than block on an
		// expired deadline.
		if ctx.Err() != nil {
			break
		}
		if legacyOnly && s.path != models.SearchPathLegacy {
			continue
		}

		candidates, contexts, err := s.run(ctx)
		if err != nil {
			if errors.Is(err, errNoSessionEmbeddings) {
				// No session-level data exists, so the within-tier
				// fallback cannot help either.
				diagnostic = "no session embeddings found"
				legacyOnly = true
				continue
			}
			storageErr := models.NewStorageError("retrieval failed", err)
			log.Errorf("search failed: %v", storageErr)
			return failureResult(query, storageErr), nil
		}
		if contexts != nil {
			sessionContext = contexts
		}
		path = s.path

		candidates = filterWindow(candidates, opts.StartDate, opts.EndDate)
		if len(candidates) > 0 {
			items = candidates
			break
		}
	}

	return r.assemble(query, items, path, sessionContext, diagnostic, opts, queryEmbedding, limit), nil
}

func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := r.embeddings.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, errors.New("embedding backend returned no vector")
	}
	return vectors[0], nil
}

// buildStrategies models the fallback chain as an explicit ordered strategy
// list. Non-conversational queries and callers that disabled two-tier search
// go straight to the flat scan; positional queries skip the recent-session
// fallback, which only serves topical retrieval.
func (r *Retriever) buildStrategies(
	classification models.Classification,
	opts models.SearchOptions,
	queryEmbedding []float32,
	fetchLimit int,
	minSimilarity float64,
) ([]strategy, string) {
	legacy := strategy{
		path: models.SearchPathLegacy,
		run: func(ctx context.Context) ([]models.RetrievedItem, []models.SessionContext, error) {
			items, err := retrieveLegacy(ctx, r.store, queryEmbedding, minSimilarity, fetchLimit)
			return items, nil, err
		},
	}

	if !classification.IsConversational {
		return []strategy{legacy}, "query not conversational"
	}
	if !opts.TwoTierEnabled() {
		return []strategy{legacy}, "two-tier search disabled by request"
	}

	var ranked []rankedSession
	rankOnce := func(ctx context.Context) error {
		if ranked != nil {
			return nil
		}
		var err error
		ranked, err = rankSessions(
			ctx,
			r.store,
			queryEmbedding,
			classification.Scope,
			classification.IsConversational,
			fetchLimit,
			r.cfg,
		)
		return err
	}

	if classification.Type == models.QueryTypePositional {
		positional := strategy{
			path: models.SearchPathTwoTierPositional,
			run: func(ctx context.Context) ([]models.RetrievedItem, []models.SessionContext, error) {
				if err := rankOnce(ctx); err != nil {
					return nil, nil, err
				}
				items, err := retrievePositional(
					ctx,
					r.store,
					queryEmbedding,
					ranked,
					classification.Position,
					fetchLimit,
					r.cfg,
				)
				return items, sessionContexts(ranked), err
			},
		}
		return []strategy{positional, legacy}, ""
	}

	topical := strategy{
		path: models.SearchPathTwoTierTopical,
		run: func(ctx context.Context) ([]models.RetrievedItem, []models.SessionContext, error) {
			if err := rankOnce(ctx); err != nil {
				return nil, nil, err
			}
			items, err := retrieveTopical(ctx, r.store, queryEmbedding, ranked, fetchLimit, r.cfg)
			return items, sessionContexts(ranked), err
		},
	}
	recent := strategy{
		path: models.SearchPathRecentFallback,
		run: func(ctx context.Context) ([]models.RetrievedItem, []models.SessionContext, error) {
			items, sessions, err := retrieveRecentFallback(ctx, r.store, queryEmbedding, fetchLimit, r.cfg)
			if err != nil {
				return nil, nil, err
			}
			return items, sessionContexts(sessions), nil
		},
	}
	return []strategy{topical, recent, legacy}, ""
}

// assemble normalizes every retrieval path into the uniform result shape,
// applying optional MMR reranking and the optional token budget.
func (r *Retriever) assemble(
	query string,
	items []models.RetrievedItem,
	path models.SearchPath,
	sessionContext []models.SessionContext,
	diagnostic string,
	opts models.SearchOptions,
	queryEmbedding []float32,
	limit int,
) *models.SearchResult {
	if opts.SearchType == models.SearchTypeMMR && len(items) > limit {
		items = r.rerankMMR(items, queryEmbedding, opts.MMRLambda, limit)
	}
	if len(items) > limit {
		items = items[:limit]
	}
	if opts.MaxTokens > 0 {
		items = r.enforceTokenBudget(items, opts.MaxTokens)
	}

	if len(items) == 0 && diagnostic == "" {
		diagnostic = "no results above similarity floor"
	}
	if items == nil {
		items = []models.RetrievedItem{}
	}

	return &models.SearchResult{
		Success:        true,
		Query:          query,
		Results:        items,
		Count:          len(items),
		SearchPath:     path,
		SessionContext: sessionContext,
		Diagnostic:     diagnostic,
	}
}

// rerankMMR reorders candidates for diversity. Only candidates carrying an
// embedding participate; the rest keep their similarity order at the tail.
func (r *Retriever) rerankMMR(
	items []models.RetrievedItem,
	queryEmbedding []float32,
	lambda float32,
	limit int,
) []models.RetrievedItem {
	if lambda <= 0 {
		lambda = r.cfg.MMRLambda
	}

	embedded := make([]models.RetrievedItem, 0, len(items))
	rest := make([]models.RetrievedItem, 0)
	vectors := make([][]float32, 0, len(items))
	for i := range items {
		if len(items[i].Embedding) > 0 {
			embedded = append(embedded, items[i])
			vectors = append(vectors, items[i].Embedding)
		} else {
			rest = append(rest, items[i])
		}
	}
	if len(embedded) == 0 {
		return items
	}

	indices, err := search.MaximalMarginalRelevance(queryEmbedding, vectors, lambda, limit)
	if err != nil {
		log.Warnf("mmr rerank failed, keeping similarity order: %v", err)
		return items
	}

	reranked := make([]models.RetrievedItem, 0, limit)
	for _, idx := range indices {
		reranked = append(reranked, embedded[idx])
	}
	for _, item := range rest {
		if len(reranked) >= limit {
			break
		}
		reranked = append(reranked, item)
	}
	return reranked
}

// enforceTokenBudget truncates the result list once the cumulative token
// count of the returned content exceeds the caller's budget.
func (r *Retriever) enforceTokenBudget(
	items []models.RetrievedItem,
	maxTokens int,
) []models.RetrievedItem {
	if r.llm == nil {
		return items
	}
	total := 0
	for i := range items {
		tokens, err := r.llm.GetTokenCount(items[i].Content)
		if err != nil {
			log.Warnf("token count failed, skipping token budget: %v", err)
			return items
		}
		total += tokens
		if total > maxTokens {
			return items[:i]
		}
	}
	return items
}

func filterWindow(
	items []models.RetrievedItem,
	start *time.Time,
	end *time.Time,
) []models.RetrievedItem {
	if start == nil && end == nil {
		return items
	}
	filtered := make([]models.RetrievedItem, 0, len(items))
	for i := range items {
		if start != nil && items[i].CreatedAt.Before(*start) {
			continue
		}
		if end != nil && items[i].CreatedAt.After(*end) {
			continue
		}
		filtered = append(filtered, items[i])
	}
	return filtered
}

func failureResult(query string, err error) *models.SearchResult {
	return &models.SearchResult{
		Success: false,
		Query:   query,
		Results: []models.RetrievedItem{},
		Error:   err.Error(),
	}
}
