// Package bugline provides the command/event dispatch core of the bugline
// issue-tracking backend.
//
// The package implements a lightweight, in-process CQRS pipeline: commands
// and events are routed through a per-request MessageBus to statically
// registered handlers, persistence is scoped by a transactional UnitOfWork,
// and every domain mutation is captured as an immutable EventRecord in an
// append-only event store.
//
// # Messages
//
// A Command is a request to change state and has exactly one handler; its
// result (and any error) is returned to the caller. An Event is a fact that
// already happened and may have any number of handlers; event handlers are
// best-effort projections whose failures never surface to the caller.
//
// # Dispatch
//
// The bus maintains a FIFO queue seeded with one message. After every
// handler invocation it drains newly emitted events from the UnitOfWork and
// appends them to the queue, so events become visible only after the
// transaction that produced them has had its chance to commit:
//
//	factory := bugline.NewBusFactory(registry, uowFactory, bind)
//	bus := factory.New() // one bus per logical request
//	result, err := bus.Handle(ctx, commands.CreateBug{...})
//
// # Aggregates
//
// Aggregate roots embed AggregateBase and append exactly one event to their
// pending queue as the last effect of every domain-significant mutation.
// The UnitOfWork drains those queues in repository-registration order when
// the bus asks for new events.
//
// There is no network transport here: all dispatch is synchronous within a
// single request, and undelivered messages do not survive the process.
package bugline

// Version returns the library version string.
func Version() string {
	return "0.3.0"
}
