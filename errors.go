package bugline

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors for common error conditions.
// Use errors.Is() to check for these errors.
var (
	// ErrItemNotFound indicates a referenced aggregate or child entity is
	// missing or already soft-deleted.
	ErrItemNotFound = errors.New("bugline: item not found")

	// ErrUnauthorized indicates a credential mismatch.
	ErrUnauthorized = errors.New("bugline: unauthorized")

	// ErrForbidden indicates the caller is authenticated but not entitled
	// to the target aggregate, or presented an invalid token grant.
	ErrForbidden = errors.New("bugline: forbidden")

	// ErrDuplicateRecord indicates a uniqueness violation caught before write.
	ErrDuplicateRecord = errors.New("bugline: duplicate record")

	// ErrConcurrency indicates an optimistic-lock version conflict detected
	// at commit. Callers should treat it as retryable: re-fetch and re-apply.
	ErrConcurrency = errors.New("bugline: concurrency conflict")

	// ErrHandlerNotFound indicates no handler is registered for a command.
	ErrHandlerNotFound = errors.New("bugline: handler not found")

	// ErrUnknownMessage indicates a message that is neither a Command nor
	// an Event was dispatched.
	ErrUnknownMessage = errors.New("bugline: message is neither command nor event")

	// ErrValidationFailed indicates command validation failed.
	ErrValidationFailed = errors.New("bugline: validation failed")

	// ErrHandlerPanicked indicates a handler panicked during execution.
	ErrHandlerPanicked = errors.New("bugline: handler panicked")

	// ErrNoPendingEvents indicates an event-store record was requested for
	// an aggregate whose pending queue is empty.
	ErrNoPendingEvents = errors.New("bugline: aggregate has no pending events")

	// ErrTokenExpired indicates an expired authentication token.
	ErrTokenExpired = errors.New("bugline: token expired")

	// ErrTokenInvalid indicates a malformed or tampered authentication token.
	ErrTokenInvalid = errors.New("bugline: token invalid")
)

// NotFoundError provides detailed information about a missing item.
type NotFoundError struct {
	// Kind is the aggregate or entity kind (e.g. "bug", "user", "comment").
	Kind string

	// ID is the identifier that was looked up.
	ID uuid.UUID
}

// Error returns the error message.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("bugline: %s with id %s not found", e.Kind, e.ID)
}

// Is reports whether this error matches the target error.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrItemNotFound
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *NotFoundError) Unwrap() error {
	return ErrItemNotFound
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(kind string, id uuid.UUID) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// ConcurrencyError provides detailed information about a stale write
// detected at commit time.
type ConcurrencyError struct {
	AggregateID     uuid.UUID
	ExpectedVersion int
	ActualVersion   int
}

// Error returns the error message.
func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("bugline: concurrency conflict on aggregate %s: expected version %d, actual version %d",
		e.AggregateID, e.ExpectedVersion, e.ActualVersion)
}

// Is reports whether this error matches the target error.
func (e *ConcurrencyError) Is(target error) bool {
	return target == ErrConcurrency
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *ConcurrencyError) Unwrap() error {
	return ErrConcurrency
}

// NewConcurrencyError creates a new ConcurrencyError.
func NewConcurrencyError(aggregateID uuid.UUID, expected, actual int) *ConcurrencyError {
	return &ConcurrencyError{
		AggregateID:     aggregateID,
		ExpectedVersion: expected,
		ActualVersion:   actual,
	}
}

// DuplicateRecordError provides detailed information about a uniqueness
// violation caught before write.
type DuplicateRecordError struct {
	// Kind is the aggregate kind (e.g. "user").
	Kind string

	// Field is the field whose value collided (e.g. "email").
	Field string

	// Value is the colliding value.
	Value string
}

// Error returns the error message.
func (e *DuplicateRecordError) Error() string {
	return fmt.Sprintf("bugline: %s with %s %q already exists", e.Kind, e.Field, e.Value)
}

// Is reports whether this error matches the target error.
func (e *DuplicateRecordError) Is(target error) bool {
	return target == ErrDuplicateRecord
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DuplicateRecordError) Unwrap() error {
	return ErrDuplicateRecord
}

// NewDuplicateRecordError creates a new DuplicateRecordError.
func NewDuplicateRecordError(kind, field, value string) *DuplicateRecordError {
	return &DuplicateRecordError{Kind: kind, Field: field, Value: value}
}

// HandlerNotFoundError provides detailed information about a missing
// command handler. Dispatching a command nobody handles is a programming
// error, not a runtime condition to recover from.
type HandlerNotFoundError struct {
	CommandName string
}

// Error returns the error message.
func (e *HandlerNotFoundError) Error() string {
	return fmt.Sprintf("bugline: no handler registered for command %q", e.CommandName)
}

// Is reports whether this error matches the target error.
func (e *HandlerNotFoundError) Is(target error) bool {
	return target == ErrHandlerNotFound
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *HandlerNotFoundError) Unwrap() error {
	return ErrHandlerNotFound
}

// NewHandlerNotFoundError creates a new HandlerNotFoundError.
func NewHandlerNotFoundError(commandName string) *HandlerNotFoundError {
	return &HandlerNotFoundError{CommandName: commandName}
}

// ValidationError represents a command validation failure.
type ValidationError struct {
	// CommandName is the name of the command that failed validation.
	CommandName string

	// Field is the field that failed validation (optional).
	Field string

	// Message describes the validation failure.
	Message string
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("bugline: validation failed for command %q field %q: %s",
			e.CommandName, e.Field, e.Message)
	}
	return fmt.Sprintf("bugline: validation failed for command %q: %s",
		e.CommandName, e.Message)
}

// Is reports whether this error matches the target error.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// NewValidationError creates a new ValidationError.
func NewValidationError(commandName, field, message string) *ValidationError {
	return &ValidationError{CommandName: commandName, Field: field, Message: message}
}

// PanicError provides detailed information about a handler panic.
type PanicError struct {
	// MessageName is the command or event name being processed.
	MessageName string

	// Value is the recovered panic value.
	Value any

	// Stack is the goroutine stack at the time of the panic.
	Stack string
}

// Error returns the error message.
func (e *PanicError) Error() string {
	return fmt.Sprintf("bugline: handler panicked while processing %q: %v", e.MessageName, e.Value)
}

// Is reports whether this error matches the target error.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanicked
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *PanicError) Unwrap() error {
	return ErrHandlerPanicked
}

// NewPanicError creates a new PanicError.
func NewPanicError(messageName string, value any, stack string) *PanicError {
	return &PanicError{MessageName: messageName, Value: value, Stack: stack}
}
