package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemo-ai/mnemo/config"
	"github.com/mnemo-ai/mnemo/pkg/models"
)

type fakeSearcher struct {
	lastQuery string
	lastOpts  models.SearchOptions
	result    *models.SearchResult
	err       error
}

func (f *fakeSearcher) Search(
	_ context.Context,
	query string,
	opts models.SearchOptions,
) (*models.SearchResult, error) {
	f.lastQuery = query
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeStorage struct {
	sessions []models.SessionRow
	messages []models.MessageRow
}

func (f *fakeStorage) QuerySessions(_ context.Context, scope models.Scope) ([]models.SessionRow, error) {
	if scope.Kind == models.ScopeCurrentSession {
		for _, s := range f.sessions {
			if s.SessionID == scope.SessionID {
				return []models.SessionRow{s}, nil
			}
		}
		return nil, nil
	}
	return f.sessions, nil
}

func (f *fakeStorage) QueryMessages(
	_ context.Context,
	_ []string,
	_ models.SortOrder,
	limitPerSession int,
) ([]models.MessageRow, error) {
	if len(f.messages) > limitPerSession {
		return f.messages[:limitPerSession], nil
	}
	return f.messages, nil
}

func (f *fakeStorage) QueryOffset(
	_ context.Context, _ string, _ int, _ models.SortOrder, _ string,
) (*models.MessageRow, error) {
	return nil, nil
}

func (f *fakeStorage) QueryCorpusUnion(_ context.Context) ([]models.EmbeddedRow, error) {
	return nil, nil
}

func testAppState(searcher models.Searcher, storage models.Storage) *models.AppState {
	return &models.AppState{
		Searcher: searcher,
		Storage:  storage,
		Config:   &config.Config{Retrieval: config.DefaultRetrievalConfig()},
	}
}

func TestSearchRoute(t *testing.T) {
	searcher := &fakeSearcher{
		result: &models.SearchResult{
			Success:    true,
			Query:      "what did we discuss",
			Results:    []models.RetrievedItem{},
			SearchPath: models.SearchPathTwoTierTopical,
		},
	}
	router := setupRouter(testAppState(searcher, &fakeStorage{}))

	body, _ := json.Marshal(map[string]interface{}{
		"query": "what did we discuss",
		"limit": 5,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "what did we discuss", searcher.lastQuery)
	assert.Equal(t, 5, searcher.lastOpts.Limit)

	var result models.SearchResult
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, models.SearchPathTwoTierTopical, result.SearchPath)
}

func TestSearchRouteSessionScoped(t *testing.T) {
	searcher := &fakeSearcher{
		result: &models.SearchResult{Success: true, Results: []models.RetrievedItem{}},
	}
	router := setupRouter(testAppState(searcher, &fakeStorage{}))

	body, _ := json.Marshal(map[string]interface{}{"query": "first message"})
	req := httptest.NewRequest(
		http.MethodPost, "/api/v1/sessions/s42/search", bytes.NewReader(body),
	)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "s42", searcher.lastOpts.SessionID)
}

func TestSearchRouteMissingQuery(t *testing.T) {
	router := setupRouter(testAppState(&fakeSearcher{}, &fakeStorage{}))

	body, _ := json.Marshal(map[string]interface{}{"limit": 5})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestGetSessionRoute(t *testing.T) {
	storage := &fakeStorage{
		sessions: []models.SessionRow{
			{UUID: uuid.New(), SessionID: "s1", Title: "travel plans", CreatedAt: time.Now()},
		},
	}
	router := setupRouter(testAppState(&fakeSearcher{}, storage))

	t.Run("Found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1", nil)
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		require.Equal(t, http.StatusOK, res.Code)
		var session models.SessionRow
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &session))
		assert.Equal(t, "travel plans", session.Title)
	})

	t.Run("NotFound", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/missing", nil)
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		assert.Equal(t, http.StatusNotFound, res.Code)
	})
}

func TestGetSessionMessagesRoute(t *testing.T) {
	storage := &fakeStorage{
		messages: []models.MessageRow{
			{UUID: uuid.New(), SessionID: "s1", Role: "user", Content: "hello", CreatedAt: time.Now()},
			{UUID: uuid.New(), SessionID: "s1", Role: "assistant", Content: "hi", CreatedAt: time.Now()},
		},
	}
	router := setupRouter(testAppState(&fakeSearcher{}, storage))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1/messages?lastn=1", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var messages []models.MessageRow
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &messages))
	assert.Len(t, messages, 1)
}

func TestHealthzAndVersionHeader(t *testing.T) {
	router := setupRouter(testAppState(&fakeSearcher{}, &fakeStorage{}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, config.VersionString, res.Header().Get(versionHeader))
}

func TestAuthRequired(t *testing.T) {
	appState := testAppState(&fakeSearcher{}, &fakeStorage{})
	appState.Config.Auth = config.AuthConfig{Secret: "test-secret", Required: true}
	router := setupRouter(appState)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
}
