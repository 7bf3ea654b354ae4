package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bugline/bugline"
	"github.com/bugline/bugline/domain"
)

// ErrNoActiveScope indicates a commit or rollback outside a
// Begin/Release scope.
var ErrNoActiveScope = errors.New("postgres: no active unit-of-work scope")

const uniqueViolation = "23505"

var _ domain.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork is the SQL transactional scope. Aggregates are tracked in
// working maps and flushed at Commit; read-model writes and event-store
// reads go straight through the transaction, so a rollback discards
// everything at once.
//
// Seen-aggregate tracking survives Release so the bus can drain pending
// events after the owning handler has closed its scope.
type UnitOfWork struct {
	store *Store
	tx    *sql.Tx

	active    bool
	committed bool

	bugs  *bugRepo
	users *userRepo
	tags  *tagRepo
	es    *eventStore
	views *readModelStore

	seenBugs  []bugline.Aggregate
	seenUsers []bugline.Aggregate
	seenTags  []bugline.Aggregate
}

// NewUnitOfWork creates a unit of work bound to the store. Begin must
// be called before the repositories are used.
func NewUnitOfWork(store *Store) *UnitOfWork {
	u := &UnitOfWork{store: store}
	u.reset()
	return u
}

func (u *UnitOfWork) reset() {
	u.bugs = newBugRepo(u)
	u.users = newUserRepo(u)
	u.tags = newTagRepo(u)
	u.es = newEventStore(u)
	u.views = newReadModelStore(u)
}

// Begin opens a transaction and a fresh scope with empty seen sets.
func (u *UnitOfWork) Begin(ctx context.Context) error {
	tx, err := u.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: beginning transaction: %w", err)
	}
	u.tx = tx
	u.reset()
	u.seenBugs = nil
	u.seenUsers = nil
	u.seenTags = nil
	u.active = true
	u.committed = false
	return nil
}

// Commit flushes every tracked aggregate and staged event record, then
// commits the transaction. A bug whose stored version moved since it
// was fetched aborts the whole transaction with a ConcurrencyError;
// nothing partial becomes visible.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if !u.active {
		return ErrNoActiveScope
	}

	if err := u.flush(ctx); err != nil {
		u.abort()
		return err
	}
	if err := u.tx.Commit(); err != nil {
		u.abort()
		return fmt.Errorf("postgres: committing transaction: %w", err)
	}
	u.reset()
	u.committed = true
	u.active = false
	return nil
}

// Rollback aborts the transaction and discards all staged writes.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if !u.active {
		return ErrNoActiveScope
	}
	u.abort()
	return nil
}

// Release ends the scope, rolling back unless Commit succeeded first.
// It is idempotent. Seen-aggregate sets survive for the event drain.
func (u *UnitOfWork) Release() {
	if u.active && !u.committed {
		u.abort()
	}
	u.active = false
}

func (u *UnitOfWork) abort() {
	if u.tx != nil {
		if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			u.store.logger.Warn("transaction rollback failed", "error", err)
		}
		u.tx = nil
	}
	u.reset()
	u.active = false
}

func (u *UnitOfWork) flush(ctx context.Context) error {
	for _, id := range u.users.order {
		usr := u.users.working[id]
		if u.users.added[id] {
			if err := u.insertUser(ctx, usr); err != nil {
				return err
			}
		} else if err := u.updateUser(ctx, usr); err != nil {
			return err
		}
	}
	for _, id := range u.tags.order {
		t := u.tags.working[id]
		if u.tags.added[id] {
			if err := u.insertTag(ctx, t); err != nil {
				return err
			}
		}
	}
	for _, id := range u.bugs.order {
		b := u.bugs.working[id]
		if u.bugs.added[id] {
			if err := u.insertBug(ctx, b); err != nil {
				return err
			}
		} else if err := u.updateBug(ctx, b, u.bugs.baseVersions[id]); err != nil {
			return err
		}
	}
	for _, rec := range u.es.staged {
		if err := u.insertEventRecord(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (u *UnitOfWork) insertUser(ctx context.Context, usr *domain.User) error {
	_, err := u.tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, create_dt, update_dt, username, email, password_hash,
			user_type, status, is_admin, security_question, security_answer_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		u.store.table("users")),
		usr.ID, usr.CreateDT, usr.UpdateDT, usr.Username, usr.Email, usr.PasswordHash,
		string(usr.UserType), string(usr.Status), usr.IsAdmin, usr.SecurityQuestion, usr.SecurityAnswerHash,
	)
	if isUniqueViolation(err) {
		return bugline.NewDuplicateRecordError("user", "email", usr.Email)
	}
	if err != nil {
		return fmt.Errorf("postgres: inserting user: %w", err)
	}
	return nil
}

func (u *UnitOfWork) updateUser(ctx context.Context, usr *domain.User) error {
	_, err := u.tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET update_dt = $2, username = $3, email = $4, password_hash = $5,
			user_type = $6, status = $7, is_admin = $8, security_question = $9,
			security_answer_hash = $10
		WHERE id = $1`,
		u.store.table("users")),
		usr.ID, usr.UpdateDT, usr.Username, usr.Email, usr.PasswordHash,
		string(usr.UserType), string(usr.Status), usr.IsAdmin, usr.SecurityQuestion, usr.SecurityAnswerHash,
	)
	if isUniqueViolation(err) {
		return bugline.NewDuplicateRecordError("user", "email", usr.Email)
	}
	if err != nil {
		return fmt.Errorf("postgres: updating user: %w", err)
	}
	return nil
}

func (u *UnitOfWork) insertTag(ctx context.Context, t *domain.Tag) error {
	_, err := u.tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, create_dt, update_dt, name) VALUES ($1, $2, $3, $4)`,
		u.store.table("tags")),
		t.ID, t.CreateDT, t.UpdateDT, t.Name,
	)
	if isUniqueViolation(err) {
		return bugline.NewDuplicateRecordError("tag", "name", t.Name)
	}
	if err != nil {
		return fmt.Errorf("postgres: inserting tag: %w", err)
	}
	return nil
}

func (u *UnitOfWork) insertBug(ctx context.Context, b *domain.Bug) error {
	images, err := json.Marshal(b.Images)
	if err != nil {
		return fmt.Errorf("postgres: encoding images: %w", err)
	}
	_, err = u.tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, create_dt, update_dt, title, author_id, assignee_id,
			description, environment, urgency, status, record_status, edited, images, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		u.store.table("bugs")),
		b.ID, b.CreateDT, b.UpdateDT, b.Title, b.AuthorID, assigneeValue(b),
		b.Description, string(b.Environment), string(b.Urgency), string(b.Status),
		string(b.RecordStatus), b.Edited, images, b.Version,
	)
	if err != nil {
		return fmt.Errorf("postgres: inserting bug: %w", err)
	}
	return u.writeBugChildren(ctx, b)
}

func (u *UnitOfWork) updateBug(ctx context.Context, b *domain.Bug, baseVersion int) error {
	images, err := json.Marshal(b.Images)
	if err != nil {
		return fmt.Errorf("postgres: encoding images: %w", err)
	}
	res, err := u.tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET update_dt = $2, title = $3, assignee_id = $4, description = $5,
			environment = $6, urgency = $7, status = $8, record_status = $9,
			edited = $10, images = $11, version = $12
		WHERE id = $1 AND version = $13`,
		u.store.table("bugs")),
		b.ID, b.UpdateDT, b.Title, assigneeValue(b), b.Description,
		string(b.Environment), string(b.Urgency), string(b.Status), string(b.RecordStatus),
		b.Edited, images, b.Version, baseVersion,
	)
	if err != nil {
		return fmt.Errorf("postgres: updating bug: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: checking bug update: %w", err)
	}
	if rows == 0 {
		actual := baseVersion
		row := u.tx.QueryRowContext(ctx, fmt.Sprintf(
			`SELECT version FROM %s WHERE id = $1`, u.store.table("bugs")), b.ID)
		_ = row.Scan(&actual)
		return bugline.NewConcurrencyError(b.ID, b.Version, actual)
	}
	return u.writeBugChildren(ctx, b)
}

// writeBugChildren rewrites the bug's comments and tag links. The sets
// are small and owned wholly by the bug, so delete-and-reinsert keeps
// ordering exact without per-row diffing.
func (u *UnitOfWork) writeBugChildren(ctx context.Context, b *domain.Bug) error {
	if _, err := u.tx.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE bug_id = $1`, u.store.table("comments")), b.ID); err != nil {
		return fmt.Errorf("postgres: clearing comments: %w", err)
	}
	for i, c := range b.Comments {
		if _, err := u.tx.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (id, bug_id, author_id, create_dt, update_dt, body, vote_count, edited, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			u.store.table("comments")),
			c.ID, b.ID, c.AuthorID, c.CreateDT, c.UpdateDT, c.Text, c.VoteCount, c.Edited, i,
		); err != nil {
			return fmt.Errorf("postgres: inserting comment: %w", err)
		}
	}

	if _, err := u.tx.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE bug_id = $1`, u.store.table("bug_tags")), b.ID); err != nil {
		return fmt.Errorf("postgres: clearing bug tags: %w", err)
	}
	for i, tagID := range b.TagIDs {
		if _, err := u.tx.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (bug_id, tag_id, position) VALUES ($1, $2, $3)`,
			u.store.table("bug_tags")),
			b.ID, tagID, i,
		); err != nil {
			return fmt.Errorf("postgres: inserting bug tag: %w", err)
		}
	}
	return nil
}

func (u *UnitOfWork) insertEventRecord(ctx context.Context, rec bugline.EventRecord) error {
	data, err := u.store.codec.Encode(rec.EventData)
	if err != nil {
		return fmt.Errorf("postgres: encoding event payload: %w", err)
	}
	if _, err := u.tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, create_dt, aggregate_id, event_name, event_data)
		VALUES ($1, $2, $3, $4, $5)`,
		u.store.table("event_store")),
		rec.ID, rec.CreateDT, rec.AggregateID, rec.EventName, data,
	); err != nil {
		return fmt.Errorf("postgres: inserting event record: %w", err)
	}
	return nil
}

// CollectNewEvents drains pending events from every seen aggregate, in
// repository-registration order (bugs, users, tags) and FIFO within
// each aggregate. The drain is destructive and therefore idempotent
// per scope.
func (u *UnitOfWork) CollectNewEvents() []bugline.Event {
	var out []bugline.Event
	for _, set := range [][]bugline.Aggregate{u.seenBugs, u.seenUsers, u.seenTags} {
		for _, agg := range set {
			for {
				ev, ok := agg.PopEvent()
				if !ok {
					break
				}
				out = append(out, ev)
			}
		}
	}
	return out
}

// Bugs returns the bug repository of the current scope.
func (u *UnitOfWork) Bugs() domain.BugRepository { return u.bugs }

// Users returns the user repository of the current scope.
func (u *UnitOfWork) Users() domain.UserRepository { return u.users }

// Tags returns the tag repository of the current scope.
func (u *UnitOfWork) Tags() domain.TagRepository { return u.tags }

// EventStore returns the event store of the current scope.
func (u *UnitOfWork) EventStore() bugline.EventStore { return u.es }

// ReadModels returns the read-model store of the current scope.
func (u *UnitOfWork) ReadModels() domain.ReadModelStore { return u.views }

func (u *UnitOfWork) seeBug(b *domain.Bug) {
	for _, seen := range u.seenBugs {
		if seen == bugline.Aggregate(b) {
			return
		}
	}
	u.seenBugs = append(u.seenBugs, b)
}

func (u *UnitOfWork) seeUser(usr *domain.User) {
	for _, seen := range u.seenUsers {
		if seen == bugline.Aggregate(usr) {
			return
		}
	}
	u.seenUsers = append(u.seenUsers, usr)
}

func (u *UnitOfWork) seeTag(t *domain.Tag) {
	for _, seen := range u.seenTags {
		if seen == bugline.Aggregate(t) {
			return
		}
	}
	u.seenTags = append(u.seenTags, t)
}

func assigneeValue(b *domain.Bug) any {
	if b.AssigneeID == nil {
		return nil
	}
	return *b.AssigneeID
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
