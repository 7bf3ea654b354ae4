package bugline

import (
	"context"
	"runtime/debug"
	"time"
)

// EventObserver is notified after every event-handler invocation.
// It exists for metrics; observers must not block.
type EventObserver func(ev Event, err error, elapsed time.Duration)

// MessageBus runs the FIFO dispatch loop for one logical request.
//
// Given a starting command or event, the bus processes its queue until
// empty: a command is routed to its single handler (through the middleware
// chain) and its result recorded; an event fans out to every registered
// handler in registration order. After each handler invocation — success
// or failure — the bus drains newly emitted events from the unit of work
// and appends them to the queue, so cascaded events are processed only
// after the mutation that produced them has had its chance to commit.
//
// Command-handler errors propagate unchanged to the caller. Event-handler
// errors (panics included) are logged and swallowed: projections are
// best-effort, and one projection's failure must not block its siblings or
// fail a command that already committed.
//
// A bus is constructed fresh per request by a BusFactory and is not safe
// for concurrent use; the dispatch loop is single-threaded.
type MessageBus[D any] struct {
	uow        UnitOfWork
	deps       D
	registry   *Registry[D]
	middleware []Middleware
	logger     Logger
	observer   EventObserver
	queue      []any
}

// Handle dispatches one command or event and runs the loop to completion.
// For a command, the handler's return value is the only value returned;
// events produce no result. Passing anything that is neither a Command nor
// an Event returns ErrUnknownMessage.
func (b *MessageBus[D]) Handle(ctx context.Context, msg any) (any, error) {
	b.queue = append(b.queue[:0], msg)

	var (
		result   any
		resolved bool
	)

	for len(b.queue) > 0 {
		head := b.queue[0]
		b.queue = b.queue[1:]

		switch m := head.(type) {
		case Command:
			res, err := b.handleCommand(ctx, m)
			if err != nil {
				return nil, err
			}
			if !resolved {
				result = res
				resolved = true
			}
		case Event:
			b.handleEvent(ctx, m)
		default:
			return nil, ErrUnknownMessage
		}
	}

	return result, nil
}

// handleCommand invokes the command's single handler through the
// middleware chain, then drains new events regardless of the outcome.
func (b *MessageBus[D]) handleCommand(ctx context.Context, cmd Command) (any, error) {
	handler := b.registry.CommandHandler(cmd.CommandName())
	if handler == nil {
		return nil, NewHandlerNotFoundError(cmd.CommandName())
	}

	invoke := func(ctx context.Context, cmd Command) (any, error) {
		return handler(ctx, cmd, b.deps)
	}
	for i := len(b.middleware) - 1; i >= 0; i-- {
		invoke = b.middleware[i](invoke)
	}

	res, err := invoke(ctx, cmd)
	b.drain()
	return res, err
}

// handleEvent fans the event out to its handlers in registration order.
// Each handler failure is contained: logged, observed, and skipped.
func (b *MessageBus[D]) handleEvent(ctx context.Context, ev Event) {
	for _, handler := range b.registry.EventHandlers(ev.EventName()) {
		start := time.Now()
		err := b.invokeEventHandler(ctx, ev, handler)
		if err != nil {
			b.logger.Error("event handler failed",
				"event", ev.EventName(),
				"error", err,
			)
		}
		if b.observer != nil {
			b.observer(ev, err, time.Since(start))
		}
		b.drain()
	}
}

// invokeEventHandler converts handler panics into errors so a programming
// error in one projection is visible in the logs instead of taking the
// request down.
func (b *MessageBus[D]) invokeEventHandler(ctx context.Context, ev Event, handler EventHandlerFunc[D]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPanicError(ev.EventName(), r, string(debug.Stack()))
		}
	}()
	return handler(ctx, ev, b.deps)
}

// drain moves newly emitted events from the unit of work onto the queue.
func (b *MessageBus[D]) drain() {
	for _, ev := range b.uow.CollectNewEvents() {
		b.queue = append(b.queue, ev)
	}
}

// BusFactory constructs one MessageBus per logical request. It holds the
// process-wide pieces (registry, unit-of-work factory, dependency binder,
// middleware) and binds a fresh unit of work into the handler dependencies
// for every bus it creates. There is no process-global mutable bus.
type BusFactory[D any] struct {
	registry   *Registry[D]
	uowFactory UnitOfWorkFactory
	bind       func(uow UnitOfWork) D
	middleware []Middleware
	logger     Logger
	observer   EventObserver
}

// FactoryOption configures a BusFactory.
type FactoryOption[D any] func(*BusFactory[D])

// WithMiddleware appends middleware applied to every command dispatch,
// in the order given.
func WithMiddleware[D any](mw ...Middleware) FactoryOption[D] {
	return func(f *BusFactory[D]) {
		f.middleware = append(f.middleware, mw...)
	}
}

// WithLogger sets the logger used by buses created by this factory.
func WithLogger[D any](l Logger) FactoryOption[D] {
	return func(f *BusFactory[D]) {
		f.logger = l
	}
}

// WithEventObserver sets the observer notified after each event-handler
// invocation.
func WithEventObserver[D any](obs EventObserver) FactoryOption[D] {
	return func(f *BusFactory[D]) {
		f.observer = obs
	}
}

// NewBusFactory creates a BusFactory. bind receives the request's fresh
// unit of work and returns the dependency struct passed to every handler.
func NewBusFactory[D any](registry *Registry[D], uowFactory UnitOfWorkFactory, bind func(uow UnitOfWork) D, opts ...FactoryOption[D]) *BusFactory[D] {
	f := &BusFactory[D]{
		registry:   registry,
		uowFactory: uowFactory,
		bind:       bind,
		logger:     NopLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// New creates a MessageBus with an isolated unit of work.
func (f *BusFactory[D]) New() *MessageBus[D] {
	uow := f.uowFactory.New()
	return &MessageBus[D]{
		uow:        uow,
		deps:       f.bind(uow),
		registry:   f.registry,
		middleware: f.middleware,
		logger:     f.logger,
		observer:   f.observer,
	}
}
