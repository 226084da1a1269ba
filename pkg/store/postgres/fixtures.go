package postgres

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"

	"github.com/mnemo-ai/mnemo/config"
	"github.com/mnemo-ai/mnemo/pkg/models"
)

var sessionTypes = []string{"chat", "task", "dictation"}

var triggerReasons = []string{"idle_timeout", "topic_shift", "manual", "app_start"}

func generateTimeLastNDays(nDays int) time.Time {
	now := time.Now()
	start := now.Add(time.Duration(-nDays) * 24 * time.Hour)
	return gofakeit.DateRange(start, now)
}

func randomEmbedding(dims int) pgvector.Vector {
	v := make([]float32, dims)
	for i := range v {
		v[i] = rand.Float32()*2 - 1 //nolint:gosec
	}
	return pgvector.NewVector(v)
}

// GenerateFixtureData populates the store with fake sessions, messages and
// memory records carrying random embeddings. Intended for local development
// and load testing against a real database.
func GenerateFixtureData(
	ctx context.Context,
	db *bun.DB,
	cfg *config.Config,
	sessionCount int,
	messagesPerSession int,
) error {
	fakerGlobal := gofakeit.NewUnlocked(0)
	gofakeit.SetGlobalFaker(fakerGlobal)

	dims := cfg.Embeddings.Dimensions
	if dims == 0 {
		dims = defaultEmbeddingDims
	}

	sessions := make([]SessionSchema, sessionCount)
	var messages []MessageSchema
	for i := 0; i < sessionCount; i++ {
		dateCreated := generateTimeLastNDays(14)
		sessionID := uuid.NewString()
		sessions[i] = SessionSchema{
			UUID:             uuid.New(),
			SessionID:        sessionID,
			Title:            gofakeit.Sentence(4),
			Type:             gofakeit.RandomString(sessionTypes),
			TriggerReason:    gofakeit.RandomString(triggerReasons),
			CreatedAt:        dateCreated,
			UpdatedAt:        dateCreated,
			Summary:          gofakeit.Paragraph(1, 3, 12, " "),
			SummaryEmbedding: randomEmbedding(dims),
			IsEmbedded:       true,
		}

		msgTime := dateCreated
		for j := 0; j < messagesPerSession; j++ {
			msgTime = msgTime.Add(time.Duration(gofakeit.Number(5, 120)) * time.Second)
			role := models.RoleUser
			if j%2 == 1 {
				role = "assistant"
			}
			messages = append(messages, MessageSchema{
				UUID:       uuid.New(),
				CreatedAt:  msgTime,
				UpdatedAt:  msgTime,
				SessionID:  sessionID,
				Role:       role,
				Content:    gofakeit.Sentence(12),
				Embedding:  randomEmbedding(dims),
				IsEmbedded: true,
			})
		}
	}

	memories := make([]MemorySchema, sessionCount)
	for i := range memories {
		dateCreated := generateTimeLastNDays(30)
		memories[i] = MemorySchema{
			UUID:       uuid.New(),
			CreatedAt:  dateCreated,
			UpdatedAt:  dateCreated,
			Content:    gofakeit.Sentence(10),
			Embedding:  randomEmbedding(dims),
			IsEmbedded: true,
		}
	}

	if _, err := db.NewInsert().Model(&sessions).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert session fixtures: %w", err)
	}
	if len(messages) > 0 {
		if _, err := db.NewInsert().Model(&messages).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert message fixtures: %w", err)
		}
	}
	if _, err := db.NewInsert().Model(&memories).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert memory fixtures: %w", err)
	}

	log.Infof(
		"generated %d sessions, %d messages and %d memory records",
		len(sessions), len(messages), len(memories),
	)
	return nil
}
