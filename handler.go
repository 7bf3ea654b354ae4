package bugline

import (
	"context"
	"fmt"
	"sync"
)

// CommandHandlerFunc processes one command. D is the handler-dependency
// struct bound at bus construction (unit of work, password hasher, token
// issuer, ...): dependencies are explicit fields on D, never discovered by
// reflection.
type CommandHandlerFunc[D any] func(ctx context.Context, cmd Command, deps D) (any, error)

// EventHandlerFunc processes one event. Event handlers return an error for
// logging only; the bus never propagates it.
type EventHandlerFunc[D any] func(ctx context.Context, ev Event, deps D) error

// Registry is the static, build-time-populated mapping from message name
// to handler(s). Exactly one handler per command name; zero or more per
// event name, invoked in registration order.
//
// A Registry is shared by every bus instance; registration happens once at
// startup, lookup on every dispatch.
type Registry[D any] struct {
	mu       sync.RWMutex
	commands map[string]CommandHandlerFunc[D]
	events   map[string][]EventHandlerFunc[D]
}

// NewRegistry creates an empty Registry.
func NewRegistry[D any]() *Registry[D] {
	return &Registry[D]{
		commands: make(map[string]CommandHandlerFunc[D]),
		events:   make(map[string][]EventHandlerFunc[D]),
	}
}

// RegisterCommand maps a command name to its single handler.
// Registering the same name twice replaces the previous handler.
func (r *Registry[D]) RegisterCommand(name string, fn CommandHandlerFunc[D]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = fn
}

// RegisterEvent appends a handler to the event's handler list.
func (r *Registry[D]) RegisterEvent(name string, fn EventHandlerFunc[D]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[name] = append(r.events[name], fn)
}

// CommandHandler returns the handler for a command name, or nil.
func (r *Registry[D]) CommandHandler(name string) CommandHandlerFunc[D] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commands[name]
}

// EventHandlers returns the handler list for an event name, possibly empty.
func (r *Registry[D]) EventHandlers(name string) []EventHandlerFunc[D] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handlers := make([]EventHandlerFunc[D], len(r.events[name]))
	copy(handlers, r.events[name])
	return handlers
}

// HasCommand reports whether a handler is registered for the command name.
func (r *Registry[D]) HasCommand(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.commands[name]
	return ok
}

// CommandCount returns the number of registered command handlers.
func (r *Registry[D]) CommandCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// EventHandlerCount returns the number of handlers registered for an event.
func (r *Registry[D]) EventHandlerCount(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events[name])
}

// CommandNames returns all registered command names.
func (r *Registry[D]) CommandNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for n := range r.commands {
		names = append(names, n)
	}
	return names
}

// HandleCommand registers a type-safe handler for command type C.
// The wrapper asserts the concrete type once, so handler bodies receive
// the typed command.
func HandleCommand[C Command, D any](r *Registry[D], fn func(ctx context.Context, cmd C, deps D) (any, error)) {
	var zero C
	r.RegisterCommand(zero.CommandName(), func(ctx context.Context, cmd Command, deps D) (any, error) {
		typed, ok := cmd.(C)
		if !ok {
			return nil, fmt.Errorf("bugline: expected command type %T, got %T", zero, cmd)
		}
		return fn(ctx, typed, deps)
	})
}

// HandleEvent registers a type-safe handler for event type E.
func HandleEvent[E Event, D any](r *Registry[D], fn func(ctx context.Context, ev E, deps D) error) {
	var zero E
	r.RegisterEvent(zero.EventName(), func(ctx context.Context, ev Event, deps D) error {
		typed, ok := ev.(E)
		if !ok {
			return fmt.Errorf("bugline: expected event type %T, got %T", zero, ev)
		}
		return fn(ctx, typed, deps)
	})
}
