package retrieval

import (
	"context"
	"math"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/mnemo-ai/mnemo/internal"
	"github.com/mnemo-ai/mnemo/pkg/models"
)

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeLLM) GetTokenCount(text string) (int, error) {
	return len(strings.Fields(text)), nil
}

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = f.vector
	}
	return vectors, nil
}

type offsetCall struct {
	SessionID  string
	Offset     int
	Order      models.SortOrder
	RoleFilter string
}

type fakeStorage struct {
	sessions []models.SessionRow
	// messages per session, ascending by creation time
	messages map[string][]models.MessageRow
	corpus   []models.EmbeddedRow

	sessionsErr error
	messagesErr error
	corpusErr   error

	offsetCalls []offsetCall
}

func (f *fakeStorage) QuerySessions(_ context.Context, scope models.Scope) ([]models.SessionRow, error) {
	if f.sessionsErr != nil {
		return nil, f.sessionsErr
	}
	if scope.Kind == models.ScopeCurrentSession {
		matched := make([]models.SessionRow, 0, 1)
		for _, s := range f.sessions {
			if s.SessionID == scope.SessionID {
				matched = append(matched, s)
			}
		}
		return matched, nil
	}
	return append([]models.SessionRow(nil), f.sessions...), nil
}

func (f *fakeStorage) QueryMessages(
	_ context.Context,
	sessionIDs []string,
	order models.SortOrder,
	limitPerSession int,
) ([]models.MessageRow, error) {
	if f.messagesErr != nil {
		return nil, f.messagesErr
	}
	var out []models.MessageRow
	for _, id := range sessionIDs {
		msgs := append([]models.MessageRow(nil), f.messages[id]...)
		if order == models.SortDescending {
			internal.ReverseSlice(msgs)
		}
		if len(msgs) > limitPerSession {
			msgs = msgs[:limitPerSession]
		}
		out = append(out, msgs...)
	}
	return out, nil
}

func (f *fakeStorage) QueryOffset(
	_ context.Context,
	sessionID string,
	offset int,
	order models.SortOrder,
	roleFilter string,
) (*models.MessageRow, error) {
	f.offsetCalls = append(f.offsetCalls, offsetCall{
		SessionID:  sessionID,
		Offset:     offset,
		Order:      order,
		RoleFilter: roleFilter,
	})

	msgs := append([]models.MessageRow(nil), f.messages[sessionID]...)
	if order == models.SortDescending {
		internal.ReverseSlice(msgs)
	}
	if roleFilter != "" {
		filtered := msgs[:0]
		for _, m := range msgs {
			if m.Role == roleFilter {
				filtered = append(filtered, m)
			}
		}
		msgs = filtered
	}
	if offset >= len(msgs) {
		return nil, nil
	}
	msg := msgs[offset]
	return &msg, nil
}

func (f *fakeStorage) QueryCorpusUnion(_ context.Context) ([]models.EmbeddedRow, error) {
	if f.corpusErr != nil {
		return nil, f.corpusErr
	}
	return append([]models.EmbeddedRow(nil), f.corpus...), nil
}

// unitVector returns a vector whose cosine similarity against {1, 0} is
// exactly the given value.
func unitVector(similarity float64) []float32 {
	return []float32{
		float32(similarity),
		float32(math.Sqrt(1 - similarity*similarity)),
	}
}
