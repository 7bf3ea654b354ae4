package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/bugline/bugline"
	"github.com/bugline/bugline/domain"
)

var (
	_ domain.BugRepository  = (*bugRepo)(nil)
	_ domain.UserRepository = (*userRepo)(nil)
	_ domain.TagRepository  = (*tagRepo)(nil)
)

// bugRepo stages Bug writes on working clones. The version the bug had
// when fetched is remembered so Commit can detect stale writes.
type bugRepo struct {
	uow          *UnitOfWork
	working      map[uuid.UUID]*domain.Bug
	baseVersions map[uuid.UUID]int
}

func newBugRepo(uow *UnitOfWork) *bugRepo {
	return &bugRepo{
		uow:          uow,
		working:      make(map[uuid.UUID]*domain.Bug),
		baseVersions: make(map[uuid.UUID]int),
	}
}

func (r *bugRepo) Add(ctx context.Context, b *domain.Bug) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.working[b.ID] = b
	r.uow.seeBug(b)
	return nil
}

func (r *bugRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Bug, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b, ok := r.working[id]; ok {
		return b, nil
	}

	s := r.uow.store
	s.mu.Lock()
	stored, ok := s.bugs[id]
	var clone *domain.Bug
	if ok {
		clone = stored.Clone()
	}
	s.mu.Unlock()

	if !ok {
		return nil, bugline.NewNotFoundError("bug", id)
	}
	r.working[id] = clone
	r.baseVersions[id] = clone.Version
	r.uow.seeBug(clone)
	return clone, nil
}

func (r *bugRepo) List(ctx context.Context, f domain.BugFilter) ([]*domain.Bug, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := r.uow.store
	s.mu.Lock()
	all := make([]*domain.Bug, 0, len(s.bugOrder))
	for _, id := range s.bugOrder {
		if b, tracked := r.working[id]; tracked {
			all = append(all, b)
			continue
		}
		all = append(all, s.bugs[id].Clone())
	}
	s.mu.Unlock()

	out := make([]*domain.Bug, 0, len(all))
	skipped := 0
	for _, b := range all {
		if !f.Matches(b) {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, b)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// userRepo stages User writes on working clones.
type userRepo struct {
	uow     *UnitOfWork
	working map[uuid.UUID]*domain.User
}

func newUserRepo(uow *UnitOfWork) *userRepo {
	return &userRepo{
		uow:     uow,
		working: make(map[uuid.UUID]*domain.User),
	}
}

func (r *userRepo) Add(ctx context.Context, u *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.working[u.ID] = u
	r.uow.seeUser(u)
	return nil
}

func (r *userRepo) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if u, ok := r.working[id]; ok {
		return u, nil
	}

	s := r.uow.store
	s.mu.Lock()
	stored, ok := s.users[id]
	var clone *domain.User
	if ok {
		clone = stored.Clone()
	}
	s.mu.Unlock()

	if !ok {
		return nil, bugline.NewNotFoundError("user", id)
	}
	r.working[id] = clone
	r.uow.seeUser(clone)
	return clone, nil
}

// GetByEmail resolves an email to a user, preferring the active account
// over soft-deleted ones: a deleted account's email may be reused, and
// duplicate checks and login must see the live account.
func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var workingDeleted *domain.User
	for _, u := range r.working {
		if u.Email != email {
			continue
		}
		if !u.Deleted() {
			return u, nil
		}
		workingDeleted = u
	}

	s := r.uow.store
	s.mu.Lock()
	var active, deleted *domain.User
	for _, id := range s.userOrder {
		u := s.users[id]
		if u.Email != email {
			continue
		}
		if _, tracked := r.working[id]; tracked {
			continue
		}
		if u.Deleted() {
			deleted = u
		} else {
			active = u
		}
	}
	pick := active
	if pick == nil {
		pick = deleted
	}
	var clone *domain.User
	if pick != nil {
		clone = pick.Clone()
	}
	s.mu.Unlock()

	if clone == nil {
		if workingDeleted != nil {
			return workingDeleted, nil
		}
		return nil, bugline.NewNotFoundError("user", uuid.Nil)
	}
	r.working[clone.ID] = clone
	r.uow.seeUser(clone)
	return clone, nil
}

func (r *userRepo) List(ctx context.Context) ([]*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		if u, tracked := r.working[id]; tracked {
			out = append(out, u)
			continue
		}
		out = append(out, s.users[id].Clone())
	}
	return out, nil
}

// tagRepo stages Tag writes on working clones.
type tagRepo struct {
	uow     *UnitOfWork
	working map[uuid.UUID]*domain.Tag
}

func newTagRepo(uow *UnitOfWork) *tagRepo {
	return &tagRepo{
		uow:     uow,
		working: make(map[uuid.UUID]*domain.Tag),
	}
}

func (r *tagRepo) Add(ctx context.Context, t *domain.Tag) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.working[t.ID] = t
	r.uow.seeTag(t)
	return nil
}

func (r *tagRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t, ok := r.working[id]; ok {
		return t, nil
	}

	s := r.uow.store
	s.mu.Lock()
	stored, ok := s.tags[id]
	var clone *domain.Tag
	if ok {
		clone = stored.Clone()
	}
	s.mu.Unlock()

	if !ok {
		return nil, bugline.NewNotFoundError("tag", id)
	}
	r.working[id] = clone
	r.uow.seeTag(clone)
	return clone, nil
}

func (r *tagRepo) GetByName(ctx context.Context, name string) (*domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, t := range r.working {
		if t.Name == name {
			return t, nil
		}
	}

	s := r.uow.store
	s.mu.Lock()
	var clone *domain.Tag
	for _, id := range s.tagOrder {
		if s.tags[id].Name == name {
			clone = s.tags[id].Clone()
			break
		}
	}
	s.mu.Unlock()

	if clone == nil {
		return nil, bugline.NewNotFoundError("tag", uuid.Nil)
	}
	r.working[clone.ID] = clone
	r.uow.seeTag(clone)
	return clone, nil
}

func (r *tagRepo) List(ctx context.Context) ([]*domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Tag, 0, len(s.tagOrder))
	for _, id := range s.tagOrder {
		if t, tracked := r.working[id]; tracked {
			out = append(out, t)
			continue
		}
		out = append(out, s.tags[id].Clone())
	}
	return out, nil
}
