package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"github.com/mnemo-ai/mnemo/pkg/models"
)

var _ models.Storage = &Storage{}

// Storage is the read-only postgres view consumed by the retrieval engine.
type Storage struct {
	db *bun.DB
}

func NewStorage(db *bun.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) QuerySessions(
	ctx context.Context,
	scope models.Scope,
) ([]models.SessionRow, error) {
	var rows []SessionSchema
	q := s.db.NewSelect().Model(&rows)
	if scope.Kind == models.ScopeCurrentSession {
		q = q.Where("session_id = ?", scope.SessionID)
	}
	if err := q.Order("created_at DESC").Scan(ctx); err != nil {
		return nil, models.NewStorageError("failed to query sessions", err)
	}

	sessions := make([]models.SessionRow, len(rows))
	for i, row := range rows {
		sessions[i] = models.SessionRow{
			UUID:             row.UUID,
			SessionID:        row.SessionID,
			Title:            row.Title,
			Type:             row.Type,
			TriggerReason:    row.TriggerReason,
			CreatedAt:        row.CreatedAt,
			SummaryEmbedding: row.SummaryEmbedding.Slice(),
		}
	}
	return sessions, nil
}

func (s *Storage) QueryMessages(
	ctx context.Context,
	sessionIDs []string,
	order models.SortOrder,
	limitPerSession int,
) ([]models.MessageRow, error) {
	messages := make([]models.MessageRow, 0, len(sessionIDs)*limitPerSession)
	for _, sessionID := range sessionIDs {
		var rows []MessageSchema
		err := s.db.NewSelect().
			Model(&rows).
			Where("session_id = ?", sessionID).
			Order(orderExpr("id", order)).
			Limit(limitPerSession).
			Scan(ctx)
		if err != nil {
			return nil, models.NewStorageError("failed to query messages", err)
		}
		for _, row := range rows {
			messages = append(messages, messageRow(row))
		}
	}
	return messages, nil
}

func (s *Storage) QueryOffset(
	ctx context.Context,
	sessionID string,
	offset int,
	order models.SortOrder,
	roleFilter string,
) (*models.MessageRow, error) {
	var row MessageSchema
	q := s.db.NewSelect().
		Model(&row).
		Where("session_id = ?", sessionID)
	if roleFilter != "" {
		q = q.Where("role = ?", roleFilter)
	}
	err := q.Order(orderExpr("id", order)).
		Offset(offset).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, models.NewStorageError("failed to query message offset", err)
	}

	msg := messageRow(row)
	return &msg, nil
}

func (s *Storage) QueryCorpusUnion(ctx context.Context) ([]models.EmbeddedRow, error) {
	var messages []MessageSchema
	err := s.db.NewSelect().
		Model(&messages).
		Where("embedding IS NOT NULL").
		Scan(ctx)
	if err != nil {
		return nil, models.NewStorageError("failed to query embedded messages", err)
	}

	var memories []MemorySchema
	err = s.db.NewSelect().
		Model(&memories).
		Where("embedding IS NOT NULL").
		Scan(ctx)
	if err != nil {
		return nil, models.NewStorageError("failed to query memory records", err)
	}

	corpus := make([]models.EmbeddedRow, 0, len(messages)+len(memories))
	for _, row := range messages {
		corpus = append(corpus, models.EmbeddedRow{
			UUID:      row.UUID,
			Source:    models.SourceMessage,
			SessionID: row.SessionID,
			Role:      row.Role,
			Content:   row.Content,
			CreatedAt: row.CreatedAt,
			Embedding: row.Embedding.Slice(),
		})
	}
	for _, row := range memories {
		corpus = append(corpus, models.EmbeddedRow{
			UUID:      row.UUID,
			Source:    models.SourceMemory,
			Content:   row.Content,
			CreatedAt: row.CreatedAt,
			Embedding: row.Embedding.Slice(),
		})
	}
	return corpus, nil
}

func orderExpr(column string, order models.SortOrder) string {
	if order == models.SortDescending {
		return column + " DESC"
	}
	return column + " ASC"
}

func messageRow(row MessageSchema) models.MessageRow {
	return models.MessageRow{
		UUID:      row.UUID,
		SessionID: row.SessionID,
		Role:      row.Role,
		Content:   row.Content,
		CreatedAt: row.CreatedAt,
		Embedding: row.Embedding.Slice(),
	}
}
