// Package postgres persists the domain in PostgreSQL through
// database/sql on the pgx stdlib driver. One unit of work maps to one
// SQL transaction; optimistic concurrency on bugs is enforced with a
// version-guarded UPDATE at commit.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/bugline/bugline"
	"github.com/bugline/bugline/domain"
)

// DefaultSchema is the schema all tables live in.
const DefaultSchema = "bugline"

// Store holds the database handle shared by every unit of work.
type Store struct {
	db     *sql.DB
	schema string
	codec  bugline.PayloadCodec
	logger bugline.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithSchema overrides the schema name.
func WithSchema(schema string) Option {
	return func(s *Store) { s.schema = schema }
}

// WithCodec sets the codec used for event-store payloads. The default
// is JSON; a store must be read with the codec it was written with.
func WithCodec(codec bugline.PayloadCodec) Option {
	return func(s *Store) { s.codec = codec }
}

// WithLogger sets the store's logger.
func WithLogger(l bugline.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore wraps an existing database handle.
func NewStore(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		schema: DefaultSchema,
		codec:  bugline.JSONCodec{},
		logger: bugline.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to the database at url and pings it.
func Open(ctx context.Context, url string, opts ...Option) (*Store, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}
	return NewStore(db, opts...), nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Factory returns a unit-of-work factory bound to this store.
func (s *Store) Factory() domain.UnitOfWorkFactory {
	return domain.UnitOfWorkFactoryFunc(func() domain.UnitOfWork {
		return NewUnitOfWork(s)
	})
}

func (s *Store) table(name string) string {
	return s.schema + "." + name
}

// Migrate creates the schema and all tables. Statements are idempotent
// so reruns are safe.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, s.schema),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			seq                  BIGSERIAL,
			id                   UUID PRIMARY KEY,
			create_dt            TIMESTAMPTZ NOT NULL,
			update_dt            TIMESTAMPTZ NOT NULL,
			username             TEXT NOT NULL,
			email                TEXT NOT NULL,
			password_hash        TEXT NOT NULL,
			user_type            TEXT NOT NULL,
			status               TEXT NOT NULL,
			is_admin             BOOLEAN NOT NULL,
			security_question    TEXT NOT NULL DEFAULT '',
			security_answer_hash TEXT NOT NULL DEFAULT ''
		)`, s.table("users")),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS users_active_email_idx
			ON %s (email) WHERE status = 'active'`, s.table("users")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			seq           BIGSERIAL,
			id            UUID PRIMARY KEY,
			create_dt     TIMESTAMPTZ NOT NULL,
			update_dt     TIMESTAMPTZ NOT NULL,
			title         TEXT NOT NULL,
			author_id     UUID NOT NULL,
			assignee_id   UUID,
			description   TEXT NOT NULL,
			environment   TEXT NOT NULL,
			urgency       TEXT NOT NULL,
			status        TEXT NOT NULL,
			record_status TEXT NOT NULL,
			edited        BOOLEAN NOT NULL,
			images        JSONB NOT NULL DEFAULT '[]',
			version       INTEGER NOT NULL
		)`, s.table("bugs")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id         UUID PRIMARY KEY,
			bug_id     UUID NOT NULL,
			author_id  UUID NOT NULL,
			create_dt  TIMESTAMPTZ NOT NULL,
			update_dt  TIMESTAMPTZ NOT NULL,
			body       TEXT NOT NULL,
			vote_count INTEGER NOT NULL,
			edited     BOOLEAN NOT NULL,
			position   INTEGER NOT NULL
		)`, s.table("comments")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS comments_bug_idx ON %s (bug_id)`, s.table("comments")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			seq       BIGSERIAL,
			id        UUID PRIMARY KEY,
			create_dt TIMESTAMPTZ NOT NULL,
			update_dt TIMESTAMPTZ NOT NULL,
			name      TEXT NOT NULL UNIQUE
		)`, s.table("tags")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			bug_id   UUID NOT NULL,
			tag_id   UUID NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (bug_id, tag_id)
		)`, s.table("bug_tags")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			seq          BIGSERIAL PRIMARY KEY,
			id           UUID NOT NULL UNIQUE,
			create_dt    TIMESTAMPTZ NOT NULL,
			aggregate_id UUID NOT NULL,
			event_name   TEXT NOT NULL,
			event_data   BYTEA NOT NULL
		)`, s.table("event_store")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS event_store_aggregate_idx
			ON %s (aggregate_id, seq)`, s.table("event_store")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			seq  BIGSERIAL,
			id   UUID PRIMARY KEY,
			data JSONB NOT NULL
		)`, s.table("user_views")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			seq  BIGSERIAL,
			id   UUID PRIMARY KEY,
			data JSONB NOT NULL
		)`, s.table("bug_views")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			seq    BIGSERIAL,
			id     UUID PRIMARY KEY,
			bug_id UUID NOT NULL,
			data   JSONB NOT NULL
		)`, s.table("comment_views")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS comment_views_bug_idx ON %s (bug_id)`, s.table("comment_views")),
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrating: %w", err)
		}
	}
	s.logger.Info("schema migrated", "schema", s.schema)
	return nil
}
