package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oiime/logrusbun"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/mnemo-ai/mnemo/config"
	"github.com/mnemo-ai/mnemo/internal"
)

var log = internal.GetLogger()

const defaultEmbeddingDims = 384

type SessionSchema struct {
	bun.BaseModel `bun:"table:session,alias:s"`

	UUID      uuid.UUID `bun:",pk,type:uuid,default:gen_random_uuid()"`
	ID        int64     `bun:",autoincrement"`
	SessionID string    `bun:",unique,notnull"`
	Title     string    `bun:",nullzero"`
	Type      string    `bun:",nullzero"`
	// TriggerReason records why the capture subsystem opened this session.
	TriggerReason    string          `bun:",nullzero"`
	CreatedAt        time.Time       `bun:"type:timestamptz,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time       `bun:"type:timestamptz,nullzero,notnull,default:current_timestamp"`
	DeletedAt        time.Time       `bun:"type:timestamptz,soft_delete,nullzero"`
	Summary          string          `bun:",nullzero"`
	SummaryEmbedding pgvector.Vector `bun:"type:vector(384),nullzero"`
	IsEmbedded       bool            `bun:"type:bool,notnull,default:false"`
}

var _ bun.BeforeAppendModelHook = (*SessionSchema)(nil)

func (s *SessionSchema) BeforeAppendModel(_ context.Context, query bun.Query) error {
	if _, ok := query.(*bun.UpdateQuery); ok {
		s.UpdatedAt = time.Now()
	}
	return nil
}

func (s *SessionSchema) BeforeCreateTable(
	_ context.Context,
	_ *bun.CreateTableQuery,
) error {
	return nil
}

type MessageSchema struct {
	bun.BaseModel `bun:"table:message,alias:m"`

	UUID uuid.UUID `bun:",pk,type:uuid,default:gen_random_uuid()"`
	// ID is used for sorting and slicing as CreatedAt ties for messages
	// created simultaneously
	ID         int64           `bun:",autoincrement"`
	CreatedAt  time.Time       `bun:"type:timestamptz,notnull,default:current_timestamp"`
	UpdatedAt  time.Time       `bun:"type:timestamptz,nullzero,default:current_timestamp"`
	DeletedAt  time.Time       `bun:"type:timestamptz,soft_delete,nullzero"`
	SessionID  string          `bun:",notnull"`
	Role       string          `bun:",notnull"`
	Content    string          `bun:",notnull"`
	TokenCount int             `bun:",nullzero"`
	Embedding  pgvector.Vector `bun:"type:vector(384),nullzero"`
	IsEmbedded bool            `bun:"type:bool,notnull,default:false"`
	Session    *SessionSchema  `bun:"rel:belongs-to,join:session_id=session_id,on_delete:cascade"`
}

var _ bun.BeforeAppendModelHook = (*MessageSchema)(nil)

func (s *MessageSchema) BeforeAppendModel(_ context.Context, query bun.Query) error {
	if _, ok := query.(*bun.UpdateQuery); ok {
		s.UpdatedAt = time.Now()
	}
	return nil
}

func (s *MessageSchema) BeforeCreateTable(
	_ context.Context,
	_ *bun.CreateTableQuery,
) error {
	return nil
}

// MemorySchema stores standalone memory records outside any session. Part of
// the flat search corpus alongside embedded messages.
type MemorySchema struct {
	bun.BaseModel `bun:"table:memory,alias:mem"`

	UUID       uuid.UUID       `bun:",pk,type:uuid,default:gen_random_uuid()"`
	ID         int64           `bun:",autoincrement"`
	CreatedAt  time.Time       `bun:"type:timestamptz,notnull,default:current_timestamp"`
	UpdatedAt  time.Time       `bun:"type:timestamptz,nullzero,default:current_timestamp"`
	DeletedAt  time.Time       `bun:"type:timestamptz,soft_delete,nullzero"`
	Content    string          `bun:",notnull"`
	Embedding  pgvector.Vector `bun:"type:vector(384),nullzero"`
	IsEmbedded bool            `bun:"type:bool,notnull,default:false"`
}

var _ bun.BeforeAppendModelHook = (*MemorySchema)(nil)

func (s *MemorySchema) BeforeAppendModel(_ context.Context, query bun.Query) error {
	if _, ok := query.(*bun.UpdateQuery); ok {
		s.UpdatedAt = time.Now()
	}
	return nil
}

func (s *MemorySchema) BeforeCreateTable(
	_ context.Context,
	_ *bun.CreateTableQuery,
) error {
	return nil
}

var tableList = []bun.BeforeCreateTableHook{
	&MemorySchema{},
	&MessageSchema{},
	&SessionSchema{},
}

// CreateSchema creates the db schema and vector columns if they do not exist.
func CreateSchema(ctx context.Context, db *bun.DB, cfg *config.Config) error {
	// iterate in reverse order to create tables with foreign keys last
	for i := len(tableList) - 1; i >= 0; i-- {
		schema := tableList[i]
		_, err := db.NewCreateTable().
			Model(schema).
			IfNotExists().
			WithForeignKeys().
			Exec(ctx)
		if err != nil {
			// bun still trying to create indexes despite IfNotExists flag
			if strings.Contains(err.Error(), "already exists") {
				continue
			}
			return fmt.Errorf("error creating table for schema %T: %w", schema, err)
		}
	}

	if err := checkEmbeddingDims(ctx, db, cfg); err != nil {
		return fmt.Errorf("error checking embedding dimensions: %w", err)
	}

	return nil
}

// checkEmbeddingDims checks the vector column widths against the configured
// embedding model. If they do not match, the columns are dropped and
// recreated with the configured width.
func checkEmbeddingDims(ctx context.Context, db *bun.DB, cfg *config.Config) error {
	dims := cfg.Embeddings.Dimensions
	if dims == 0 {
		dims = defaultEmbeddingDims
	}

	alter := []struct {
		model  interface{}
		table  string
		column string
	}{
		{(*SessionSchema)(nil), "session", "summary_embedding"},
		{(*MessageSchema)(nil), "message", "embedding"},
		{(*MemorySchema)(nil), "memory", "embedding"},
	}
	for _, a := range alter {
		width, err := getEmbeddingColumnWidth(ctx, db, a.table, a.column)
		if err != nil {
			return err
		}
		if width == dims {
			continue
		}

		log.Warnf(
			"column %s.%s width is %d, expected %d. migrating may result in loss of existing embedding vectors",
			a.table, a.column, width, dims,
		)
		_, err = db.NewDropColumn().
			Model(a.model).
			Column(a.column).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("error dropping column %s.%s: %w", a.table, a.column, err)
		}
		_, err = db.NewAddColumn().
			Model(a.model).
			ColumnExpr(fmt.Sprintf("%s vector(%d)", a.column, dims)).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("error adding column %s.%s: %w", a.table, a.column, err)
		}
	}

	return nil
}

// getEmbeddingColumnWidth returns the width of a vector column.
func getEmbeddingColumnWidth(
	ctx context.Context,
	db *bun.DB,
	tableName string,
	columnName string,
) (int, error) {
	var width int
	err := db.NewSelect().
		Table("pg_attribute").
		ColumnExpr("atttypmod"). // vector width is stored in atttypmod
		Where("attrelid = ?::regclass", tableName).
		Where("attname = ?", columnName).
		Scan(ctx, &width)
	if err != nil {
		return 0, fmt.Errorf(
			"error getting width of column %s.%s: %w", tableName, columnName, err,
		)
	}
	return width, nil
}

func enablePgVectorExtension(_ context.Context, db *bun.DB) error {
	_, err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("error creating pgvector extension: %w", err)
	}

	// a no-op if the extension is already up to date
	_, err = db.Exec("ALTER EXTENSION vector UPDATE")
	if err != nil {
		return fmt.Errorf("error updating pgvector extension: %w", err)
	}

	return nil
}

// NewPostgresConn creates a new bun.DB connection using the configured DSN.
// The connection pool is sized from the number of PROCs available.
func NewPostgresConn(cfg *config.Config) (*bun.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	maxOpenConns := 4 * runtime.GOMAXPROCS(0)

	sqldb := sql.OpenDB(
		pgdriver.NewConnector(
			pgdriver.WithDSN(cfg.Store.Postgres.DSN),
			pgdriver.WithReadTimeout(1*time.Minute),
		),
	)
	sqldb.SetMaxOpenConns(maxOpenConns)
	sqldb.SetMaxIdleConns(maxOpenConns)

	db := bun.NewDB(sqldb, pgdialect.New())

	if err := enablePgVectorExtension(ctx, db); err != nil {
		log.Error("error enabling pgvector extension: ", err)
		return nil, err
	}

	return db, nil
}

// SetUpDBLogging routes bun query logging through logrus.
func SetUpDBLogging(db *bun.DB, log logrus.FieldLogger) {
	db.AddQueryHook(logrusbun.NewQueryHook(logrusbun.QueryHookOptions{
		LogSlow:         time.Second,
		Logger:          log,
		QueryLevel:      logrus.DebugLevel,
		ErrorLevel:      logrus.ErrorLevel,
		SlowLevel:       logrus.WarnLevel,
		MessageTemplate: "{{.Operation}}[{{.Duration}}]: {{.Query}}",
		ErrorTemplate:   "{{.Operation}}[{{.Duration}}]: {{.Query}}: {{.Error}}",
	}))
}
