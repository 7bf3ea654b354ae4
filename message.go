package bugline

// Command represents an intent to change state in the system.
// Commands are immutable value objects handled by exactly one handler;
// dispatching a command with no registered handler is a configuration
// error, not a recoverable runtime condition.
type Command interface {
	// CommandName returns the type identifier for this command
	// (e.g. "CreateBug"). Handler lookup is by exact name.
	CommandName() string

	// Validate checks if the command is well formed.
	// Returns nil if valid, or an error describing validation failures.
	Validate() error
}

// Event represents a fact that already happened, emitted by an aggregate
// mutation. Events are immutable value objects handled by zero or more
// handlers; a handler failure never aborts sibling handlers or the
// triggering command.
type Event interface {
	// EventName returns the canonical name of the event
	// (e.g. "BugCreated"). It is the event-store discriminator.
	EventName() string

	// Payload returns a plain key-value representation of the event's
	// fields. The map must be JSON-serializable; UUID-typed fields are
	// rendered as strings. Absent (nil-valued) optional fields are
	// omitted, which is how partial updates are represented.
	Payload() map[string]any
}
