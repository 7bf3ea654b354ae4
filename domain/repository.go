package domain

import (
	"context"

	"github.com/google/uuid"

	"github.com/bugline/bugline"
)

// UserRepository stores User aggregates. Get and GetByEmail return
// soft-deleted users too; callers decide whether deleted matters.
// Every aggregate added or fetched is tracked as "seen" for the unit
// of work's event drain.
type UserRepository interface {
	Add(ctx context.Context, u *User) error
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
}

// BugRepository stores Bug aggregates with their owned comments and
// tag set.
type BugRepository interface {
	Add(ctx context.Context, b *Bug) error
	Get(ctx context.Context, id uuid.UUID) (*Bug, error)
	List(ctx context.Context, f BugFilter) ([]*Bug, error)
}

// TagRepository stores Tag aggregates.
type TagRepository interface {
	Add(ctx context.Context, t *Tag) error
	Get(ctx context.Context, id uuid.UUID) (*Tag, error)
	GetByName(ctx context.Context, name string) (*Tag, error)
	List(ctx context.Context) ([]*Tag, error)
}

// BugFilter narrows BugRepository.List. Zero values mean "any".
type BugFilter struct {
	AuthorID       uuid.UUID
	AssigneeID     uuid.UUID
	Status         BugStatus
	Urgency        Urgency
	Environment    Environment
	TagID          uuid.UUID
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// Matches reports whether a bug satisfies the filter (Limit and Offset
// excluded; those are applied by the caller).
func (f BugFilter) Matches(b *Bug) bool {
	if !f.IncludeDeleted && b.RecordStatus == RecordStatusDeleted {
		return false
	}
	if f.AuthorID != uuid.Nil && b.AuthorID != f.AuthorID {
		return false
	}
	if f.AssigneeID != uuid.Nil && (b.AssigneeID == nil || *b.AssigneeID != f.AssigneeID) {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.Urgency != "" && b.Urgency != f.Urgency {
		return false
	}
	if f.Environment != "" && b.Environment != f.Environment {
		return false
	}
	if f.TagID != uuid.Nil && !b.HasTag(f.TagID) {
		return false
	}
	return true
}

// MatchesView is Matches for the denormalized bug view.
func (f BugFilter) MatchesView(m *BugReadModel) bool {
	if !f.IncludeDeleted && m.RecordStatus == RecordStatusDeleted {
		return false
	}
	if f.AuthorID != uuid.Nil && m.AuthorID != f.AuthorID {
		return false
	}
	if f.AssigneeID != uuid.Nil && (m.AssigneeID == nil || *m.AssigneeID != f.AssigneeID) {
		return false
	}
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	if f.Urgency != "" && m.Urgency != f.Urgency {
		return false
	}
	if f.Environment != "" && m.Environment != f.Environment {
		return false
	}
	if f.TagID != uuid.Nil {
		found := false
		for _, id := range m.TagIDs {
			if id == f.TagID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ReadModelStore persists the denormalized query-side views. Writes
// participate in the unit of work's transaction so a rolled-back
// projection leaves no trace.
type ReadModelStore interface {
	PutUser(ctx context.Context, m *UserReadModel) error
	GetUser(ctx context.Context, id uuid.UUID) (*UserReadModel, error)
	ListUsers(ctx context.Context) ([]*UserReadModel, error)

	PutBug(ctx context.Context, m *BugReadModel) error
	GetBug(ctx context.Context, id uuid.UUID) (*BugReadModel, error)
	ListBugs(ctx context.Context, f BugFilter) ([]*BugReadModel, error)

	PutComment(ctx context.Context, m *CommentReadModel) error
	GetComment(ctx context.Context, id uuid.UUID) (*CommentReadModel, error)
	ListComments(ctx context.Context, bugID uuid.UUID) ([]*CommentReadModel, error)
	DeleteComment(ctx context.Context, id uuid.UUID) error
}

// UnitOfWork extends the core unit-of-work contract with the typed
// repositories of this domain. The drain order of CollectNewEvents is
// the repository-registration order: bugs first, then users, then
// tags.
type UnitOfWork interface {
	bugline.UnitOfWork

	Bugs() BugRepository
	Users() UserRepository
	Tags() TagRepository
	EventStore() bugline.EventStore
	ReadModels() ReadModelStore
}

// UnitOfWorkFactory creates one UnitOfWork per logical request.
type UnitOfWorkFactory interface {
	New() UnitOfWork
}

// UnitOfWorkFactoryFunc adapts a function to UnitOfWorkFactory.
type UnitOfWorkFactoryFunc func() UnitOfWork

// New calls f.
func (f UnitOfWorkFactoryFunc) New() UnitOfWork { return f() }
