// Package domain holds the aggregate roots of the issue tracker (Bug,
// User, Tag), the tagged-union event variants they emit, and the
// repository contracts the persistence adapters implement.
//
// Aggregates follow the event-queue protocol of the bugline core: every
// domain-significant mutation appends exactly one event to the pending
// queue as its last effect. Relations between aggregates are id-based;
// no aggregate holds a live reference to another aggregate's root.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidTransition indicates a bug status change that moves the
// workflow backwards or targets an unknown status.
var ErrInvalidTransition = errors.New("domain: invalid status transition")

// Entity carries the identity and bookkeeping timestamps shared by all
// aggregate roots. Equality is by ID.
type Entity struct {
	ID       uuid.UUID
	CreateDT time.Time
	UpdateDT time.Time
}

// AggregateID returns the entity's unique identifier.
func (e *Entity) AggregateID() uuid.UUID {
	return e.ID
}

func newEntity() Entity {
	now := time.Now().UTC()
	return Entity{
		ID:       uuid.New(),
		CreateDT: now,
		UpdateDT: now,
	}
}

func (e *Entity) touch() {
	e.UpdateDT = time.Now().UTC()
}
