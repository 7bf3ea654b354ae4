package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bugline/bugline"
	"github.com/bugline/bugline/domain"
)

var _ domain.ReadModelStore = (*readModelStore)(nil)

// readModelStore keeps the denormalized views as JSONB documents.
// Writes execute directly on the scope's transaction, so a rolled-back
// projection leaves no trace.
type readModelStore struct {
	uow *UnitOfWork
}

func newReadModelStore(uow *UnitOfWork) *readModelStore {
	return &readModelStore{uow: uow}
}

func (s *readModelStore) put(ctx context.Context, table string, id uuid.UUID, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("postgres: encoding view: %w", err)
	}
	_, err = s.uow.tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, data) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
		s.uow.store.table(table)), id, data)
	if err != nil {
		return fmt.Errorf("postgres: writing view: %w", err)
	}
	return nil
}

func (s *readModelStore) get(ctx context.Context, table, kind string, id uuid.UUID, dst any) error {
	var data []byte
	row := s.uow.tx.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT data FROM %s WHERE id = $1`, s.uow.store.table(table)), id)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return bugline.NewNotFoundError(kind, id)
		}
		return fmt.Errorf("postgres: reading view: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("postgres: decoding view: %w", err)
	}
	return nil
}

func (s *readModelStore) PutUser(ctx context.Context, m *domain.UserReadModel) error {
	return s.put(ctx, "user_views", m.ID, m)
}

func (s *readModelStore) GetUser(ctx context.Context, id uuid.UUID) (*domain.UserReadModel, error) {
	m := &domain.UserReadModel{}
	if err := s.get(ctx, "user_views", "user", id, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *readModelStore) ListUsers(ctx context.Context) ([]*domain.UserReadModel, error) {
	rows, err := s.uow.tx.QueryContext(ctx, fmt.Sprintf(
		`SELECT data FROM %s ORDER BY seq`, s.uow.store.table("user_views")))
	if err != nil {
		return nil, fmt.Errorf("postgres: listing user views: %w", err)
	}
	defer rows.Close()

	var out []*domain.UserReadModel
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("postgres: scanning user view: %w", err)
		}
		m := &domain.UserReadModel{}
		if err := json.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("postgres: decoding user view: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: reading user views: %w", err)
	}
	return out, nil
}

func (s *readModelStore) PutBug(ctx context.Context, m *domain.BugReadModel) error {
	return s.put(ctx, "bug_views", m.ID, m)
}

func (s *readModelStore) GetBug(ctx context.Context, id uuid.UUID) (*domain.BugReadModel, error) {
	m := &domain.BugReadModel{}
	if err := s.get(ctx, "bug_views", "bug", id, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *readModelStore) ListBugs(ctx context.Context, f domain.BugFilter) ([]*domain.BugReadModel, error) {
	rows, err := s.uow.tx.QueryContext(ctx, fmt.Sprintf(
		`SELECT data FROM %s ORDER BY seq`, s.uow.store.table("bug_views")))
	if err != nil {
		return nil, fmt.Errorf("postgres: listing bug views: %w", err)
	}
	defer rows.Close()

	var out []*domain.BugReadModel
	skipped := 0
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("postgres: scanning bug view: %w", err)
		}
		m := &domain.BugReadModel{}
		if err := json.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("postgres: decoding bug view: %w", err)
		}
		if !f.MatchesView(m) {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, m)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: reading bug views: %w", err)
	}
	return out, nil
}

func (s *readModelStore) PutComment(ctx context.Context, m *domain.CommentReadModel) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("postgres: encoding comment view: %w", err)
	}
	_, err = s.uow.tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, bug_id, data) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
		s.uow.store.table("comment_views")), m.ID, m.BugID, data)
	if err != nil {
		return fmt.Errorf("postgres: writing comment view: %w", err)
	}
	return nil
}

func (s *readModelStore) GetComment(ctx context.Context, id uuid.UUID) (*domain.CommentReadModel, error) {
	m := &domain.CommentReadModel{}
	if err := s.get(ctx, "comment_views", "comment", id, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *readModelStore) ListComments(ctx context.Context, bugID uuid.UUID) ([]*domain.CommentReadModel, error) {
	rows, err := s.uow.tx.QueryContext(ctx, fmt.Sprintf(
		`SELECT data FROM %s WHERE bug_id = $1 ORDER BY seq`,
		s.uow.store.table("comment_views")), bugID)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing comment views: %w", err)
	}
	defer rows.Close()

	var out []*domain.CommentReadModel
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("postgres: scanning comment view: %w", err)
		}
		m := &domain.CommentReadModel{}
		if err := json.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("postgres: decoding comment view: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: reading comment views: %w", err)
	}
	return out, nil
}

func (s *readModelStore) DeleteComment(ctx context.Context, id uuid.UUID) error {
	_, err := s.uow.tx.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE id = $1`, s.uow.store.table("comment_views")), id)
	if err != nil {
		return fmt.Errorf("postgres: deleting comment view: %w", err)
	}
	return nil
}
