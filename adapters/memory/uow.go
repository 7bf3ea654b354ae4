package memory

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/bugline/bugline"
	"github.com/bugline/bugline/domain"
)

// ErrNoActiveScope indicates a commit or rollback outside a
// Begin/Release scope.
var ErrNoActiveScope = errors.New("memory: no active unit-of-work scope")

var _ domain.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork is the in-memory transactional scope. Repository writes
// are staged on working clones and applied to the shared Store at
// Commit under a single lock; Bug versions are checked there and a
// stale write rolls the scope back with a ConcurrencyError.
//
// Seen-aggregate tracking survives Release so the bus can drain
// pending events after the owning handler has closed its scope. Begin
// starts a fresh scope and resets the seen sets.
type UnitOfWork struct {
	store *Store

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

// Begin opens a new scope with fresh repositories and empty seen sets.
func (u *UnitOfWork) Begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.reset()
	u.seenBugs = nil
	u.seenUsers = nil
	u.seenTags = nil
	u.active = true
	u.committed = false
	return nil
}

// Commit applies all staged writes to the shared store atomically.
// A Bug whose stored version moved since it was fetched fails the
// whole commit with a ConcurrencyError after discarding the staged
// writes; nothing partial becomes visible.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if !u.active {
		return ErrNoActiveScope
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, base := range u.bugs.baseVersions {
		if cur, ok := s.bugs[id]; ok && cur.Version != base {
			staged := u.bugs.working[id]
			expected := base
			if staged != nil {
				expected = staged.Version
			}
			u.discard()
			return bugline.NewConcurrencyError(id, expected, cur.Version)
		}
	}

	for id, b := range u.bugs.working {
		if _, ok := s.bugs[id]; !ok {
			s.bugOrder = append(s.bugOrder, id)
		}
		s.bugs[id] = b.Clone()
	}
	for id, usr := range u.users.working {
		if _, ok := s.users[id]; !ok {
			s.userOrder = append(s.userOrder, id)
		}
		s.users[id] = usr.Clone()
	}
	for id, t := range u.tags.working {
		if _, ok := s.tags[id]; !ok {
			s.tagOrder = append(s.tagOrder, id)
		}
		s.tags[id] = t.Clone()
	}

	s.records = append(s.records, u.es.staged...)

	for _, id := range u.views.userOrder {
		s.userViews[id] = u.views.users[id].Clone()
	}
	for _, id := range u.views.bugOrder {
		s.bugViews[id] = u.views.bugs[id].Clone()
	}
	for _, id := range u.views.commentOrder {
		if _, ok := s.commentViews[id]; !ok {
			s.commentOrder = append(s.commentOrder, id)
		}
		s.commentViews[id] = u.views.comments[id].Clone()
	}
	for id := range u.views.deletedComments {
		delete(s.commentViews, id)
		for i, cid := range s.commentOrder {
			if cid == id {
				s.commentOrder = append(s.commentOrder[:i], s.commentOrder[i+1:]...)
				break
			}
		}
	}

	u.discard()
	u.committed = true
	return nil
}

// Rollback discards all staged writes of the current scope.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if !u.active {
		return ErrNoActiveScope
	}
	u.discard()
	return nil
}

// Release ends the scope, rolling back unless Commit succeeded first.
// It is idempotent. Seen-aggregate sets survive for the event drain.
func (u *UnitOfWork) Release() {
	if u.active && !u.committed {
		u.discard()
	}
	u.active = false
}

// discard drops staged writes but keeps the seen sets: drained events
// must still surface for aggregates the handler touched.
func (u *UnitOfWork) discard() {
	u.bugs.working = make(map[uuid.UUID]*domain.Bug)
	u.bugs.baseVersions = make(map[uuid.UUID]int)
	u.users.working = make(map[uuid.UUID]*domain.User)
	u.tags.working = make(map[uuid.UUID]*domain.Tag)
	u.es.staged = nil
	u.views.clear()
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
