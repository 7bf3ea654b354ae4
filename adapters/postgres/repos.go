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

var (
	_ domain.BugRepository  = (*bugRepo)(nil)
	_ domain.UserRepository = (*userRepo)(nil)
	_ domain.TagRepository  = (*tagRepo)(nil)
)

// bugRepo tracks Bug aggregates touched in this scope. Loaded bugs
// remember the version they were fetched at so Commit can guard the
// UPDATE with it.
type bugRepo struct {
	uow          *UnitOfWork
	working      map[uuid.UUID]*domain.Bug
	added        map[uuid.UUID]bool
	baseVersions map[uuid.UUID]int
	order        []uuid.UUID
}

func newBugRepo(uow *UnitOfWork) *bugRepo {
	return &bugRepo{
		uow:          uow,
		working:      make(map[uuid.UUID]*domain.Bug),
		added:        make(map[uuid.UUID]bool),
		baseVersions: make(map[uuid.UUID]int),
	}
}

func (r *bugRepo) track(b *domain.Bug, added bool) {
	if _, ok := r.working[b.ID]; !ok {
		r.order = append(r.order, b.ID)
	}
	r.working[b.ID] = b
	if added {
		r.added[b.ID] = true
	}
	r.uow.seeBug(b)
}

func (r *bugRepo) Add(ctx context.Context, b *domain.Bug) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.track(b, true)
	return nil
}

func (r *bugRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Bug, error) {
	if b, ok := r.working[id]; ok {
		return b, nil
	}

	b, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	r.baseVersions[id] = b.Version
	r.track(b, false)
	return b, nil
}

func (r *bugRepo) load(ctx context.Context, id uuid.UUID) (*domain.Bug, error) {
	row := r.uow.tx.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, create_dt, update_dt, title, author_id, assignee_id, description,
			environment, urgency, status, record_status, edited, images, version
		FROM %s WHERE id = $1`,
		r.uow.store.table("bugs")), id)

	b, err := scanBug(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bugline.NewNotFoundError("bug", id)
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *bugRepo) loadChildren(ctx context.Context, b *domain.Bug) error {
	rows, err := r.uow.tx.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, author_id, create_dt, update_dt, body, vote_count, edited
		FROM %s WHERE bug_id = $1 ORDER BY position`,
		r.uow.store.table("comments")), b.ID)
	if err != nil {
		return fmt.Errorf("postgres: loading comments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		c := &domain.Comment{BugID: b.ID}
		if err := rows.Scan(&c.ID, &c.AuthorID, &c.CreateDT, &c.UpdateDT, &c.Text, &c.VoteCount, &c.Edited); err != nil {
			return fmt.Errorf("postgres: scanning comment: %w", err)
		}
		b.Comments = append(b.Comments, c)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("postgres: reading comments: %w", err)
	}

	tagRows, err := r.uow.tx.QueryContext(ctx, fmt.Sprintf(`
		SELECT tag_id FROM %s WHERE bug_id = $1 ORDER BY position`,
		r.uow.store.table("bug_tags")), b.ID)
	if err != nil {
		return fmt.Errorf("postgres: loading bug tags: %w", err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var tagID uuid.UUID
		if err := tagRows.Scan(&tagID); err != nil {
			return fmt.Errorf("postgres: scanning bug tag: %w", err)
		}
		b.TagIDs = append(b.TagIDs, tagID)
	}
	if err := tagRows.Err(); err != nil {
		return fmt.Errorf("postgres: reading bug tags: %w", err)
	}
	return nil
}

func (r *bugRepo) List(ctx context.Context, f domain.BugFilter) ([]*domain.Bug, error) {
	rows, err := r.uow.tx.QueryContext(ctx, fmt.Sprintf(
		`SELECT id FROM %s ORDER BY seq`, r.uow.store.table("bugs")))
	if err != nil {
		return nil, fmt.Errorf("postgres: listing bugs: %w", err)
	}
	ids, err := collectIDs(rows)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Bug, 0, len(ids))
	skipped := 0
	for _, id := range ids {
		b, tracked := r.working[id]
		if !tracked {
			b, err = r.load(ctx, id)
			if err != nil {
				return nil, err
			}
		}
		if !f.Matches(b) {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, b)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func scanBug(row *sql.Row) (*domain.Bug, error) {
	b := &domain.Bug{}
	var (
		assignee uuid.NullUUID
		images   []byte
	)
	err := row.Scan(&b.ID, &b.CreateDT, &b.UpdateDT, &b.Title, &b.AuthorID, &assignee,
		&b.Description, &b.Environment, &b.Urgency, &b.Status, &b.RecordStatus,
		&b.Edited, &images, &b.Version)
	if err != nil {
		return nil, err
	}
	if assignee.Valid {
		id := assignee.UUID
		b.AssigneeID = &id
	}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &b.Images); err != nil {
			return nil, fmt.Errorf("postgres: decoding images: %w", err)
		}
	}
	return b, nil
}

// userRepo tracks User aggregates touched in this scope.
type userRepo struct {
	uow     *UnitOfWork
	working map[uuid.UUID]*domain.User
	added   map[uuid.UUID]bool
	order   []uuid.UUID
}

func newUserRepo(uow *UnitOfWork) *userRepo {
	return &userRepo{
		uow:     uow,
		working: make(map[uuid.UUID]*domain.User),
		added:   make(map[uuid.UUID]bool),
	}
}

func (r *userRepo) track(u *domain.User, added bool) {
	if _, ok := r.working[u.ID]; !ok {
		r.order = append(r.order, u.ID)
	}
	r.working[u.ID] = u
	if added {
		r.added[u.ID] = true
	}
	r.uow.seeUser(u)
}

func (r *userRepo) Add(ctx context.Context, u *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.track(u, true)
	return nil
}

const userColumns = `id, create_dt, update_dt, username, email, password_hash,
	user_type, status, is_admin, security_question, security_answer_hash`

func (r *userRepo) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if u, ok := r.working[id]; ok {
		return u, nil
	}

	row := r.uow.tx.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE id = $1`, userColumns, r.uow.store.table("users")), id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bugline.NewNotFoundError("user", id)
	}
	if err != nil {
		return nil, err
	}
	r.track(u, false)
	return u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range r.working {
		if u.Email == email {
			return u, nil
		}
	}

	// Prefer the active account when a deleted one shares the email.
	row := r.uow.tx.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM %s WHERE email = $1
		ORDER BY (status = 'active') DESC, seq DESC LIMIT 1`,
		userColumns, r.uow.store.table("users")), email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bugline.NewNotFoundError("user", uuid.Nil)
	}
	if err != nil {
		return nil, err
	}
	r.track(u, false)
	return u, nil
}

func (r *userRepo) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.uow.tx.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM %s ORDER BY seq`, userColumns, r.uow.store.table("users")))
	if err != nil {
		return nil, fmt.Errorf("postgres: listing users: %w", err)
	}
	defer rows.Close()

	var out []*domain.User
	for rows.Next() {
		u := &domain.User{}
		if err := rows.Scan(&u.ID, &u.CreateDT, &u.UpdateDT, &u.Username, &u.Email,
			&u.PasswordHash, &u.UserType, &u.Status, &u.IsAdmin,
			&u.SecurityQuestion, &u.SecurityAnswerHash); err != nil {
			return nil, fmt.Errorf("postgres: scanning user: %w", err)
		}
		if tracked, ok := r.working[u.ID]; ok {
			out = append(out, tracked)
			continue
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: reading users: %w", err)
	}
	return out, nil
}

func scanUser(row *sql.Row) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.CreateDT, &u.UpdateDT, &u.Username, &u.Email,
		&u.PasswordHash, &u.UserType, &u.Status, &u.IsAdmin,
		&u.SecurityQuestion, &u.SecurityAnswerHash)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// tagRepo tracks Tag aggregates touched in this scope.
type tagRepo struct {
	uow     *UnitOfWork
	working map[uuid.UUID]*domain.Tag
	added   map[uuid.UUID]bool
	order   []uuid.UUID
}

func newTagRepo(uow *UnitOfWork) *tagRepo {
	return &tagRepo{
		uow:     uow,
		working: make(map[uuid.UUID]*domain.Tag),
		added:   make(map[uuid.UUID]bool),
	}
}

func (r *tagRepo) track(t *domain.Tag, added bool) {
	if _, ok := r.working[t.ID]; !ok {
		r.order = append(r.order, t.ID)
	}
	r.working[t.ID] = t
	if added {
		r.added[t.ID] = true
	}
	r.uow.seeTag(t)
}

func (r *tagRepo) Add(ctx context.Context, t *domain.Tag) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.track(t, true)
	return nil
}

func (r *tagRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Tag, error) {
	if t, ok := r.working[id]; ok {
		return t, nil
	}

	t := &domain.Tag{}
	row := r.uow.tx.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT id, create_dt, update_dt, name FROM %s WHERE id = $1`,
		r.uow.store.table("tags")), id)
	err := row.Scan(&t.ID, &t.CreateDT, &t.UpdateDT, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bugline.NewNotFoundError("tag", id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning tag: %w", err)
	}
	r.track(t, false)
	return t, nil
}

func (r *tagRepo) GetByName(ctx context.Context, name string) (*domain.Tag, error) {
	for _, t := range r.working {
		if t.Name == name {
			return t, nil
		}
	}

	t := &domain.Tag{}
	row := r.uow.tx.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT id, create_dt, update_dt, name FROM %s WHERE name = $1`,
		r.uow.store.table("tags")), name)
	err := row.Scan(&t.ID, &t.CreateDT, &t.UpdateDT, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bugline.NewNotFoundError("tag", uuid.Nil)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning tag: %w", err)
	}
	r.track(t, false)
	return t, nil
}

func (r *tagRepo) List(ctx context.Context) ([]*domain.Tag, error) {
	rows, err := r.uow.tx.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, create_dt, update_dt, name FROM %s ORDER BY seq`,
		r.uow.store.table("tags")))
	if err != nil {
		return nil, fmt.Errorf("postgres: listing tags: %w", err)
	}
	defer rows.Close()

	var out []*domain.Tag
	for rows.Next() {
		t := &domain.Tag{}
		if err := rows.Scan(&t.ID, &t.CreateDT, &t.UpdateDT, &t.Name); err != nil {
			return nil, fmt.Errorf("postgres: scanning tag: %w", err)
		}
		if tracked, ok := r.working[t.ID]; ok {
			out = append(out, tracked)
			continue
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: reading tags: %w", err)
	}
	return out, nil
}

func collectIDs(rows *sql.Rows) ([]uuid.UUID, error) {
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: reading ids: %w", err)
	}
	return ids, nil
}
