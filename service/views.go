package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bugline/bugline"
	"github.com/bugline/bugline/domain"
)

// ReadModelCache is an optional read-through cache in front of the
// read-model store. Implementations are best-effort: a miss or a
// failed set never surfaces to the caller.
type ReadModelCache interface {
	GetUser(ctx context.Context, id uuid.UUID) (*domain.UserReadModel, bool)
	SetUser(ctx context.Context, m *domain.UserReadModel)
	DropUser(ctx context.Context, id uuid.UUID)

	GetBug(ctx context.Context, id uuid.UUID) (*domain.BugReadModel, bool)
	SetBug(ctx context.Context, m *domain.BugReadModel)
	DropBug(ctx context.Context, id uuid.UUID)
}

// BugDetail is a bug view joined with its comments.
type BugDetail struct {
	Bug      *domain.BugReadModel       `json:"bug"`
	Comments []*domain.CommentReadModel `json:"comments"`
}

// Views is the query side: it reads the denormalized read models only,
// never the aggregates, optionally through a cache. Each call opens
// its own short-lived unit-of-work scope.
type Views struct {
	factory domain.UnitOfWorkFactory
	cache   ReadModelCache
	events  *bugline.EventRegistry
}

// NewViews creates the query-side facade. cache may be nil.
func NewViews(factory domain.UnitOfWorkFactory, cache ReadModelCache) *Views {
	events := bugline.NewEventRegistry()
	domain.RegisterEvents(events)
	return &Views{factory: factory, cache: cache, events: events}
}

// User returns one user view. Soft-deleted users are reported as
// missing.
func (v *Views) User(ctx context.Context, id uuid.UUID) (*domain.UserReadModel, error) {
	if v.cache != nil {
		if m, ok := v.cache.GetUser(ctx, id); ok {
			if m.Status == domain.RecordStatusDeleted {
				return nil, bugline.NewNotFoundError("user", id)
			}
			return m, nil
		}
	}

	uow := v.factory.New()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Release()

	m, err := uow.ReadModels().GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.cache != nil {
		v.cache.SetUser(ctx, m)
	}
	if m.Status == domain.RecordStatusDeleted {
		return nil, bugline.NewNotFoundError("user", id)
	}
	return m, nil
}

// Users returns all user views, deleted ones included.
func (v *Views) Users(ctx context.Context) ([]*domain.UserReadModel, error) {
	uow := v.factory.New()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Release()

	return uow.ReadModels().ListUsers(ctx)
}

// Bug returns one bug view joined with its comments. Soft-deleted bugs
// are reported as missing.
func (v *Views) Bug(ctx context.Context, id uuid.UUID) (*BugDetail, error) {
	uow := v.factory.New()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Release()

	var m *domain.BugReadModel
	if v.cache != nil {
		if cached, ok := v.cache.GetBug(ctx, id); ok {
			m = cached
		}
	}
	if m == nil {
		loaded, err := uow.ReadModels().GetBug(ctx, id)
		if err != nil {
			return nil, err
		}
		m = loaded
		if v.cache != nil {
			v.cache.SetBug(ctx, m)
		}
	}
	if m.RecordStatus == domain.RecordStatusDeleted {
		return nil, bugline.NewNotFoundError("bug", id)
	}

	comments, err := uow.ReadModels().ListComments(ctx, id)
	if err != nil {
		return nil, err
	}
	return &BugDetail{Bug: m, Comments: comments}, nil
}

// Bugs returns the bug views matching the filter.
func (v *Views) Bugs(ctx context.Context, f domain.BugFilter) ([]*domain.BugReadModel, error) {
	uow := v.factory.New()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Release()

	return uow.ReadModels().ListBugs(ctx, f)
}

// Tags returns all tags.
func (v *Views) Tags(ctx context.Context) ([]*domain.Tag, error) {
	uow := v.factory.New()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Release()

	return uow.Tags().List(ctx)
}

// History returns the event-store records of one aggregate in insertion
// order: the canonical audit trail of its mutations. Every record is
// rehydrated through the event registry, so payloads come back in the
// canonical typed form and a record whose event is not registered is an
// error, not silent garbage.
func (v *Views) History(ctx context.Context, aggregateID uuid.UUID) ([]bugline.EventRecord, error) {
	uow := v.factory.New()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Release()

	recs, err := uow.EventStore().EventsFor(ctx, aggregateID)
	if err != nil {
		return nil, err
	}
	for i, rec := range recs {
		ev, err := v.events.DecodeRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("service: rehydrating record %s: %w", rec.ID, err)
		}
		recs[i].EventData = ev.Payload()
	}
	return recs, nil
}
