package bugline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugline/bugline"
)

type pingCommand struct {
	Fail bool
}

func (pingCommand) CommandName() string { return "test.ping" }
func (pingCommand) Validate() error     { return nil }

type badCommand struct{}

func (badCommand) CommandName() string { return "test.bad" }
func (badCommand) Validate() error {
	return bugline.NewValidationError("test.bad", "", "always invalid")
}

type pingedEvent struct {
	Cascade bool
}

func (pingedEvent) EventName() string { return "test.pinged" }
func (pingedEvent) Payload() map[string]any {
	return map[string]any{}
}

type cascadedEvent struct{}

func (cascadedEvent) EventName() string { return "test.cascaded" }
func (cascadedEvent) Payload() map[string]any {
	return map[string]any{}
}

// queueUoW hands out pre-staged event batches, one per drain, the way a
// real unit of work surfaces pending aggregate events.
type queueUoW struct {
	batches  [][]bugline.Event
	released bool
}

func (u *queueUoW) Begin(context.Context) error    { return nil }
func (u *queueUoW) Commit(context.Context) error   { return nil }
func (u *queueUoW) Rollback(context.Context) error { return nil }
func (u *queueUoW) Release()                       { u.released = true }

func (u *queueUoW) CollectNewEvents() []bugline.Event {
	if len(u.batches) == 0 {
		return nil
	}
	batch := u.batches[0]
	u.batches = u.batches[1:]
	return batch
}

func (u *queueUoW) stage(evs ...bugline.Event) {
	u.batches = append(u.batches, evs)
}

type testDeps struct {
	uow *queueUoW
	log *recordingLogger
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *recordingLogger) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, msg)
}

func (l *recordingLogger) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.record(msg) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.record(msg) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.record(msg) }
func (l *recordingLogger) Error(msg string, args ...any) { l.record(msg) }

func newTestFactory(t *testing.T, registry *bugline.Registry[testDeps], opts ...bugline.FactoryOption[testDeps]) (*bugline.BusFactory[testDeps], *queueUoW, *recordingLogger) {
	t.Helper()
	uow := &queueUoW{}
	log := &recordingLogger{}
	bind := func(u bugline.UnitOfWork) testDeps {
		return testDeps{uow: u.(*queueUoW), log: log}
	}
	factory := bugline.NewBusFactory(registry,
		bugline.UnitOfWorkFactoryFunc(func() bugline.UnitOfWork { return uow }),
		bind,
		append([]bugline.FactoryOption[testDeps]{bugline.WithLogger[testDeps](log)}, opts...)...,
	)
	return factory, uow, log
}

func TestBusDispatchesCommand(t *testing.T) {
	registry := bugline.NewRegistry[testDeps]()
	bugline.HandleCommand(registry, func(ctx context.Context, cmd pingCommand, deps testDeps) (any, error) {
		if cmd.Fail {
			return nil, errors.New("boom")
		}
		return "pong", nil
	})
	factory, _, _ := newTestFactory(t, registry)

	t.Run("result propagates", func(t *testing.T) {
		res, err := factory.New().Handle(context.Background(), pingCommand{})
		require.NoError(t, err)
		assert.Equal(t, "pong", res)
	})

	t.Run("handler error propagates", func(t *testing.T) {
		res, err := factory.New().Handle(context.Background(), pingCommand{Fail: true})
		assert.EqualError(t, err, "boom")
		assert.Nil(t, res)
	})

	t.Run("unregistered command", func(t *testing.T) {
		_, err := factory.New().Handle(context.Background(), badCommand{})
		assert.ErrorIs(t, err, bugline.ErrHandlerNotFound)
		var hnf *bugline.HandlerNotFoundError
		require.ErrorAs(t, err, &hnf)
		assert.Equal(t, "test.bad", hnf.CommandName)
	})

	t.Run("unknown message type", func(t *testing.T) {
		_, err := factory.New().Handle(context.Background(), 42)
		assert.ErrorIs(t, err, bugline.ErrUnknownMessage)
	})
}

func TestBusDrainsAndCascades(t *testing.T) {
	var order []string

	registry := bugline.NewRegistry[testDeps]()
	bugline.HandleCommand(registry, func(ctx context.Context, cmd pingCommand, deps testDeps) (any, error) {
		order = append(order, "command")
		deps.uow.stage(pingedEvent{Cascade: true})
		return nil, nil
	})
	bugline.HandleEvent(registry, func(ctx context.Context, ev pingedEvent, deps testDeps) error {
		order = append(order, "pinged")
		if ev.Cascade {
			deps.uow.stage(cascadedEvent{})
		}
		return nil
	})
	bugline.HandleEvent(registry, func(ctx context.Context, ev cascadedEvent, deps testDeps) error {
		order = append(order, "cascaded")
		return nil
	})

	factory, _, _ := newTestFactory(t, registry)
	_, err := factory.New().Handle(context.Background(), pingCommand{})
	require.NoError(t, err)

	// The cascaded event is queued behind the drain of the first event
	// handler, never processed inline.
	assert.Equal(t, []string{"command", "pinged", "cascaded"}, order)
}

func TestBusEventHandlerOrderAndContainment(t *testing.T) {
	var order []string

	registry := bugline.NewRegistry[testDeps]()
	bugline.HandleCommand(registry, func(ctx context.Context, cmd pingCommand, deps testDeps) (any, error) {
		deps.uow.stage(pingedEvent{})
		return "done", nil
	})
	bugline.HandleEvent(registry, func(ctx context.Context, ev pingedEvent, deps testDeps) error {
		order = append(order, "first")
		return errors.New("projection failed")
	})
	bugline.HandleEvent(registry, func(ctx context.Context, ev pingedEvent, deps testDeps) error {
		order = append(order, "second")
		panic("projection panicked")
	})
	bugline.HandleEvent(registry, func(ctx context.Context, ev pingedEvent, deps testDeps) error {
		order = append(order, "third")
		return nil
	})

	var observed []error
	observer := func(ev bugline.Event, err error, elapsed time.Duration) {
		observed = append(observed, err)
	}

	factory, _, log := newTestFactory(t, registry, bugline.WithEventObserver[testDeps](observer))
	res, err := factory.New().Handle(context.Background(), pingCommand{})

	// Neither the error nor the panic reaches the caller.
	require.NoError(t, err)
	assert.Equal(t, "done", res)
	assert.Equal(t, []string{"first", "second", "third"}, order)

	require.Len(t, observed, 3)
	assert.Error(t, observed[0])
	assert.ErrorIs(t, observed[1], bugline.ErrHandlerPanicked)
	assert.NoError(t, observed[2])

	failures := 0
	for _, msg := range log.messages() {
		if msg == "event handler failed" {
			failures++
		}
	}
	assert.Equal(t, 2, failures)
}

func TestBusMiddlewareWrapsCommandsOnly(t *testing.T) {
	var order []string

	registry := bugline.NewRegistry[testDeps]()
	bugline.HandleCommand(registry, func(ctx context.Context, cmd pingCommand, deps testDeps) (any, error) {
		order = append(order, "handler")
		deps.uow.stage(pingedEvent{})
		return nil, nil
	})
	bugline.HandleEvent(registry, func(ctx context.Context, ev pingedEvent, deps testDeps) error {
		order = append(order, "event")
		return nil
	})

	tag := func(name string) bugline.Middleware {
		return func(next bugline.MiddlewareFunc) bugline.MiddlewareFunc {
			return func(ctx context.Context, cmd bugline.Command) (any, error) {
				order = append(order, name)
				return next(ctx, cmd)
			}
		}
	}

	factory, _, _ := newTestFactory(t, registry,
		bugline.WithMiddleware[testDeps](tag("outer"), tag("inner")))
	_, err := factory.New().Handle(context.Background(), pingCommand{})
	require.NoError(t, err)

	// Middleware runs once for the command, not again for the event.
	assert.Equal(t, []string{"outer", "inner", "handler", "event"}, order)
}

func TestBusValidationShortCircuits(t *testing.T) {
	invoked := false
	registry := bugline.NewRegistry[testDeps]()
	bugline.HandleCommand(registry, func(ctx context.Context, cmd badCommand, deps testDeps) (any, error) {
		invoked = true
		return nil, nil
	})

	factory, _, _ := newTestFactory(t, registry,
		bugline.WithMiddleware[testDeps](bugline.ValidationMiddleware()))
	_, err := factory.New().Handle(context.Background(), badCommand{})

	assert.ErrorIs(t, err, bugline.ErrValidationFailed)
	assert.False(t, invoked)
}

func TestBusRecoveryContainsCommandPanics(t *testing.T) {
	registry := bugline.NewRegistry[testDeps]()
	bugline.HandleCommand(registry, func(ctx context.Context, cmd pingCommand, deps testDeps) (any, error) {
		panic("handler exploded")
	})

	factory, _, _ := newTestFactory(t, registry,
		bugline.WithMiddleware[testDeps](bugline.RecoveryMiddleware()))
	_, err := factory.New().Handle(context.Background(), pingCommand{})

	require.ErrorIs(t, err, bugline.ErrHandlerPanicked)
	var pe *bugline.PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "test.ping", pe.MessageName)
	assert.Equal(t, "handler exploded", pe.Value)
	assert.NotEmpty(t, pe.Stack)
}
