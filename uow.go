package bugline

import "context"

// UnitOfWork owns one transactional scope: one persistence session, the
// repositories bound to it, and the drain protocol that surfaces domain
// events to the bus.
//
// Usage inside a handler:
//
//	if err := uow.Begin(ctx); err != nil { ... }
//	defer uow.Release()
//	// mutate aggregates through the repositories
//	if err := uow.Commit(ctx); err != nil { ... }
//
// Begin may be called again after Release on the same instance; each
// Begin/Release pair is an independent scope with fresh repositories. The
// seen-aggregate sets of the previous scope survive Release so the bus can
// drain events after the handler returns.
type UnitOfWork interface {
	// Begin opens the transactional resource and instantiates the
	// repositories for a new scope.
	Begin(ctx context.Context) error

	// Commit durably persists all changes made through the owned
	// repositories in this scope. A stale write (version mismatch on an
	// optimistically locked aggregate) rolls the scope back and returns a
	// ConcurrencyError; partial writes are never left visible.
	Commit(ctx context.Context) error

	// Rollback discards all changes made through the owned repositories
	// in this scope.
	Rollback(ctx context.Context) error

	// Release ends the scope, rolling back unless an explicit Commit
	// occurred first. It is idempotent and safe to defer. Callers must
	// not assume a scope auto-commits.
	Release()

	// CollectNewEvents drains, in repository-registration order and then
	// in FIFO order within each aggregate's queue, every pending event on
	// every aggregate any repository in this scope has seen (added, or
	// fetched and mutated). The drain is destructive: calling it twice
	// without an intervening mutation yields the first sequence, then
	// nothing.
	CollectNewEvents() []Event
}

// UnitOfWorkFactory creates one UnitOfWork per logical request.
// Implementations live in the adapters packages.
type UnitOfWorkFactory interface {
	New() UnitOfWork
}

// UnitOfWorkFactoryFunc adapts a function to the UnitOfWorkFactory interface.
type UnitOfWorkFactoryFunc func() UnitOfWork

// New implements UnitOfWorkFactory.
func (f UnitOfWorkFactoryFunc) New() UnitOfWork {
	return f()
}
