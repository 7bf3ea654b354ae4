// Package memory provides an in-memory persistence adapter: unit of
// work, repositories, event store, and read-model store backed by a
// shared Store. It is thread-safe and intended for tests, development,
// and the "memory" database driver.
package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/bugline/bugline"
	"github.com/bugline/bugline/domain"
)

// Store holds the committed state shared by all units of work created
// from it. Aggregates handed out by repositories are clones; nothing
// outside a commit mutates the Store.
type Store struct {
	mu sync.Mutex

	users map[uuid.UUID]*domain.User
	bugs  map[uuid.UUID]*domain.Bug
	tags  map[uuid.UUID]*domain.Tag

	userOrder []uuid.UUID
	bugOrder  []uuid.UUID
	tagOrder  []uuid.UUID

	records []bugline.EventRecord

	userViews    map[uuid.UUID]*domain.UserReadModel
	bugViews     map[uuid.UUID]*domain.BugReadModel
	commentViews map[uuid.UUID]*domain.CommentReadModel
	commentOrder []uuid.UUID
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		users:        make(map[uuid.UUID]*domain.User),
		bugs:         make(map[uuid.UUID]*domain.Bug),
		tags:         make(map[uuid.UUID]*domain.Tag),
		userViews:    make(map[uuid.UUID]*domain.UserReadModel),
		bugViews:     make(map[uuid.UUID]*domain.BugReadModel),
		commentViews: make(map[uuid.UUID]*domain.CommentReadModel),
	}
}

// Factory returns a unit-of-work factory bound to this store.
func (s *Store) Factory() domain.UnitOfWorkFactory {
	return domain.UnitOfWorkFactoryFunc(func() domain.UnitOfWork {
		return NewUnitOfWork(s)
	})
}

// EventRecordCount returns the number of committed event records.
func (s *Store) EventRecordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
