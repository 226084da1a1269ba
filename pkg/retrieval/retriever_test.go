package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemo-ai/mnemo/config"
	"github.com/mnemo-ai/mnemo/pkg/models"
)

func newTestRetriever(store models.Storage, verdict string) *Retriever {
	cfg := &config.Config{Retrieval: config.DefaultRetrievalConfig()}
	return NewRetriever(
		store,
		&fakeEmbedder{vector: []float32{1, 0}},
		&fakeLLM{response: verdict},
		cfg,
	)
}

func conversationMessages(sessionID string, base time.Time) []models.MessageRow {
	return []models.MessageRow{
		{UUID: uuid.New(), SessionID: sessionID, Role: "user", Content: "hello there", CreatedAt: base},
		{UUID: uuid.New(), SessionID: sessionID, Role: "assistant", Content: "hi, how can I help", CreatedAt: base.Add(time.Minute)},
		{UUID: uuid.New(), SessionID: sessionID, Role: "user", Content: "tell me about lisbon", CreatedAt: base.Add(2 * time.Minute)},
		{UUID: uuid.New(), SessionID: sessionID, Role: "assistant", Content: "lisbon is in portugal", CreatedAt: base.Add(3 * time.Minute)},
		{UUID: uuid.New(), SessionID: sessionID, Role: "user", Content: "book me a flight", CreatedAt: base.Add(4 * time.Minute)},
	}
}

func TestSearchFirstMessage(t *testing.T) {
	base := time.Now().UTC().Add(-time.Hour)
	msgs := conversationMessages("s1", base)
	store := &fakeStorage{
		sessions: []models.SessionRow{
			{SessionID: "s1", Title: "travel", CreatedAt: base, SummaryEmbedding: unitVector(0.9)},
		},
		messages: map[string][]models.MessageRow{"s1": msgs},
	}
	r := newTestRetriever(store, "CONVERSATIONAL CURRENT_SESSION")

	result, err := r.Search(context.Background(), "What was the first message?", models.SearchOptions{SessionID: "s1"})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotEmpty(t, result.Results)
	assert.Equal(t, models.SearchPathTwoTierPositional, result.SearchPath)
	assert.Equal(t, "hello there", result.Results[0].Content)
	assert.InDelta(t, 0.9, result.Results[0].Similarity, 0.001)
}

func TestSearchMessagesAgo(t *testing.T) {
	base := time.Now().UTC().Add(-time.Hour)
	msgs := conversationMessages("s1", base)
	store := &fakeStorage{
		sessions: []models.SessionRow{
			{SessionID: "s1", Title: "travel", CreatedAt: base, SummaryEmbedding: unitVector(0.9)},
		},
		messages: map[string][]models.MessageRow{"s1": msgs},
	}
	r := newTestRetriever(store, "CONVERSATIONAL CURRENT_SESSION")

	result, err := r.Search(context.Background(), "What did I say 3 messages ago?", models.SearchOptions{SessionID: "s1"})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, models.SearchPathTwoTierPositional, result.SearchPath)

	require.Len(t, store.offsetCalls, 1)
	call := store.offsetCalls[0]
	assert.Equal(t, "s1", call.SessionID)
	assert.Equal(t, 2, call.Offset)
	assert.Equal(t, models.SortDescending, call.Order)
	assert.Equal(t, models.RoleUser, call.RoleFilter)

	// user messages newest-first are indices 4, 2, 0; offset 2 lands on the
	// oldest user message
	require.Len(t, result.Results, 1)
	assert.Equal(t, "hello there", result.Results[0].Content)
	assert.Equal(t, models.RoleUser, result.Results[0].Role)
}

func TestSearchJustSaidSelfReference(t *testing.T) {
	base := time.Now().UTC().Add(-time.Hour)
	msgs := conversationMessages("s1", base)
	store := &fakeStorage{
		sessions: []models.SessionRow{
			{SessionID: "s1", CreatedAt: base, SummaryEmbedding: unitVector(0.9)},
		},
		messages: map[string][]models.MessageRow{"s1": msgs},
	}
	r := newTestRetriever(store, "CONVERSATIONAL CURRENT_SESSION")

	result, err := r.Search(context.Background(), "What did I just say?", models.SearchOptions{SessionID: "s1"})
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "book me a flight", result.Results[0].Content)

	require.Len(t, store.offsetCalls, 1)
	assert.Equal(t, 0, store.offsetCalls[0].Offset)
	assert.Equal(t, models.RoleUser, store.offsetCalls[0].RoleFilter)
}

func TestSearchOverviewTwoTier(t *testing.T) {
	base := time.Now().UTC().Add(-time.Hour)
	store := &fakeStorage{
		sessions: []models.SessionRow{
			{SessionID: "s1", Title: "travel", CreatedAt: base, SummaryEmbedding: unitVector(0.3)},
		},
		messages: map[string][]models.MessageRow{"s1": conversationMessages("s1", base)},
	}
	r := newTestRetriever(store, "CONVERSATIONAL CURRENT_SESSION")

	result, err := r.Search(
		context.Background(),
		"what's the summary of our conversation",
		models.SearchOptions{SessionID: "s1"},
	)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, models.SearchPathTwoTierTopical, result.SearchPath)
	require.NotEmpty(t, result.Results)

	require.Len(t, result.SessionContext, 1)
	assert.Equal(t, "s1", result.SessionContext[0].SessionID)
	assert.InDelta(t, 0.3, result.SessionContext[0].Similarity, 0.001)

	// messages carry no embeddings, so the session prior alone scores them
	assert.InDelta(t, 0.3, result.Results[0].Similarity, 0.001)
}

func TestSearchLegacyWhenNoSessionEmbeddings(t *testing.T) {
	store := &fakeStorage{
		sessions: []models.SessionRow{
			{SessionID: "s1", CreatedAt: time.Now()},
		},
	}
	r := newTestRetriever(store, "CONVERSATIONAL CROSS_SESSION")

	result, err := r.Search(context.Background(), "what did we talk about yesterday", models.SearchOptions{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.SearchPathLegacy, result.SearchPath)
	assert.Equal(t, 0, result.Count)
	assert.Equal(t, "no session embeddings found", result.Diagnostic)
}

func TestSearchRecentFallback(t *testing.T) {
	now := time.Now().UTC()
	store := &fakeStorage{
		sessions: []models.SessionRow{
			{SessionID: "old", CreatedAt: now.Add(-72 * time.Hour), SummaryEmbedding: unitVector(0.01)},
			{SessionID: "mid", CreatedAt: now.Add(-48 * time.Hour), SummaryEmbedding: unitVector(0.01)},
			{SessionID: "new", CreatedAt: now.Add(-24 * time.Hour), SummaryEmbedding: unitVector(0.01)},
		},
		messages: map[string][]models.MessageRow{
			"mid": conversationMessages("mid", now.Add(-48*time.Hour)),
			"new": conversationMessages("new", now.Add(-24*time.Hour)),
		},
	}
	r := newTestRetriever(store, "CONVERSATIONAL CROSS_SESSION")

	result, err := r.Search(context.Background(), "what have we talked about", models.SearchOptions{})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, models.SearchPathRecentFallback, result.SearchPath)
	require.NotEmpty(t, result.Results)
	assert.InDelta(t, 0.6, result.Results[0].Similarity, 0.001)

	require.Len(t, result.SessionContext, 2)
	assert.Equal(t, "new", result.SessionContext[0].SessionID)
	assert.Equal(t, "mid", result.SessionContext[1].SessionID)
}

func TestSearchGuardedQueryUsesLegacy(t *testing.T) {
	store := &fakeStorage{
		corpus: []models.EmbeddedRow{
			{UUID: uuid.New(), Source: models.SourceMemory, Content: "augustus founded the empire", CreatedAt: time.Now(), Embedding: unitVector(0.8)},
			{UUID: uuid.New(), Source: models.SourceMessage, Content: "lisbon is in portugal", CreatedAt: time.Now(), Embedding: unitVector(0.2)},
		},
	}
	r := newTestRetriever(store, "CONVERSATIONAL CROSS_SESSION")

	result, err := r.Search(
		context.Background(),
		"Who was the first emperor of Rome?",
		models.SearchOptions{MinSimilarity: 0.5},
	)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, models.SearchPathLegacy, result.SearchPath)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "augustus founded the empire", result.Results[0].Content)
	assert.Equal(t, models.SourceMemory, result.Results[0].Source)
}

func TestSearchTwoTierDisabled(t *testing.T) {
	base := time.Now().UTC()
	disabled := false
	store := &fakeStorage{
		sessions: []models.SessionRow{
			{SessionID: "s1", CreatedAt: base, SummaryEmbedding: unitVector(0.9)},
		},
		corpus: []models.EmbeddedRow{
			{UUID: uuid.New(), Source: models.SourceMessage, SessionID: "s1", Content: "hello there", CreatedAt: base, Embedding: unitVector(0.7)},
		},
	}
	r := newTestRetriever(store, "CONVERSATIONAL CURRENT_SESSION")

	result, err := r.Search(
		context.Background(),
		"what did we discuss",
		models.SearchOptions{SessionID: "s1", UseTwoTier: &disabled},
	)
	require.NoError(t, err)
	assert.Equal(t, models.SearchPathLegacy, result.SearchPath)
	require.Len(t, result.Results, 1)
}

func TestSearchEmbeddingFailure(t *testing.T) {
	cfg := &config.Config{Retrieval: config.DefaultRetrievalConfig()}
	r := NewRetriever(
		&fakeStorage{},
		&fakeEmbedder{err: errors.New("backend down")},
		&fakeLLM{response: "GENERAL CROSS_SESSION"},
		cfg,
	)

	result, err := r.Search(context.Background(), "anything at all", models.SearchOptions{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "embedding error")
	assert.Empty(t, result.Results)
}

func TestSearchStorageFailure(t *testing.T) {
	store := &fakeStorage{sessionsErr: errors.New("connection refused")}
	r := newTestRetriever(store, "CONVERSATIONAL CROSS_SESSION")

	result, err := r.Search(context.Background(), "what did we discuss", models.SearchOptions{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "storage error")
}

func TestSearchEmptyCorpusSucceeds(t *testing.T) {
	r := newTestRetriever(&fakeStorage{}, "GENERAL CROSS_SESSION")

	result, err := r.Search(context.Background(), "weather tomorrow", models.SearchOptions{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.Count)
	assert.NotNil(t, result.Results)
}

func TestSearchTokenBudget(t *testing.T) {
	now := time.Now()
	store := &fakeStorage{
		corpus: []models.EmbeddedRow{
			{UUID: uuid.New(), Source: models.SourceMemory, Content: "one two three four five", CreatedAt: now, Embedding: unitVector(0.9)},
			{UUID: uuid.New(), Source: models.SourceMemory, Content: "six seven eight nine ten", CreatedAt: now, Embedding: unitVector(0.8)},
			{UUID: uuid.New(), Source: models.SourceMemory, Content: "eleven twelve thirteen fourteen fifteen", CreatedAt: now, Embedding: unitVector(0.7)},
		},
	}
	r := newTestRetriever(store, "GENERAL CROSS_SESSION")

	result, err := r.Search(
		context.Background(),
		"not a conversational query",
		models.SearchOptions{MaxTokens: 10},
	)
	require.NoError(t, err)
	assert.Len(t, result.Results, 2)
}

func TestSearchMMRRerank(t *testing.T) {
	now := time.Now()
	near := unitVector(0.9)
	store := &fakeStorage{
		corpus: []models.EmbeddedRow{
			{UUID: uuid.New(), Source: models.SourceMemory, Content: "anchor", CreatedAt: now, Embedding: near},
			{UUID: uuid.New(), Source: models.SourceMemory, Content: "duplicate of anchor", CreatedAt: now, Embedding: near},
			{UUID: uuid.New(), Source: models.SourceMemory, Content: "different direction", CreatedAt: now, Embedding: []float32{0.6, -0.8}},
		},
	}
	r := newTestRetriever(store, "GENERAL CROSS_SESSION")

	result, err := r.Search(
		context.Background(),
		"never mind the phrasing",
		models.SearchOptions{
			Limit:      2,
			SearchType: models.SearchTypeMMR,
			MMRLambda:  0.5,
		},
	)
	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "anchor", result.Results[0].Content)
	assert.Equal(t, "different direction", result.Results[1].Content)
}

func TestSearchDateWindow(t *testing.T) {
	base := time.Now().UTC().Add(-time.Hour)
	msgs := conversationMessages("s1", base)
	store := &fakeStorage{
		sessions: []models.SessionRow{
			{SessionID: "s1", CreatedAt: base, SummaryEmbedding: unitVector(0.5)},
		},
		messages: map[string][]models.MessageRow{"s1": msgs},
	}
	r := newTestRetriever(store, "CONVERSATIONAL CURRENT_SESSION")

	start := base.Add(90 * time.Second)
	result, err := r.Search(
		context.Background(),
		"what did we discuss",
		models.SearchOptions{SessionID: "s1", StartDate: &start},
	)
	require.NoError(t, err)
	for _, item := range result.Results {
		assert.False(t, item.CreatedAt.Before(start))
	}
}
