package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/bugline/bugline"
	"github.com/bugline/bugline/domain"
)

var _ domain.ReadModelStore = (*readModelStore)(nil)

// readModelStore stages read-model writes in the current scope so a
// rolled-back projection leaves no trace in the shared store.
type readModelStore struct {
	uow *UnitOfWork

	users     map[uuid.UUID]*domain.UserReadModel
	userOrder []uuid.UUID

	bugs     map[uuid.UUID]*domain.BugReadModel
	bugOrder []uuid.UUID

	comments     map[uuid.UUID]*domain.CommentReadModel
	commentOrder []uuid.UUID

	deletedComments map[uuid.UUID]struct{}
}

func newReadModelStore(uow *UnitOfWork) *readModelStore {
	r := &readModelStore{uow: uow}
	r.clear()
	return r
}

func (r *readModelStore) clear() {
	r.users = make(map[uuid.UUID]*domain.UserReadModel)
	r.userOrder = nil
	r.bugs = make(map[uuid.UUID]*domain.BugReadModel)
	r.bugOrder = nil
	r.comments = make(map[uuid.UUID]*domain.CommentReadModel)
	r.commentOrder = nil
	r.deletedComments = make(map[uuid.UUID]struct{})
}

func (r *readModelStore) PutUser(ctx context.Context, m *domain.UserReadModel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := r.users[m.ID]; !ok {
		r.userOrder = append(r.userOrder, m.ID)
	}
	r.users[m.ID] = m
	return nil
}

func (r *readModelStore) GetUser(ctx context.Context, id uuid.UUID) (*domain.UserReadModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m, ok := r.users[id]; ok {
		return m, nil
	}

	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.userViews[id]; ok {
		return m.Clone(), nil
	}
	return nil, bugline.NewNotFoundError("user", id)
}

func (r *readModelStore) ListUsers(ctx context.Context) ([]*domain.UserReadModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := r.uow.store
	s.mu.Lock()
	out := make([]*domain.UserReadModel, 0, len(s.userViews))
	for _, id := range s.userOrder {
		if m, ok := s.userViews[id]; ok {
			if staged, overridden := r.users[id]; overridden {
				out = append(out, staged)
				continue
			}
			out = append(out, m.Clone())
		}
	}
	s.mu.Unlock()

	for _, id := range r.userOrder {
		s.mu.Lock()
		_, committed := s.userViews[id]
		s.mu.Unlock()
		if !committed {
			out = append(out, r.users[id])
		}
	}
	return out, nil
}

func (r *readModelStore) PutBug(ctx context.Context, m *domain.BugReadModel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := r.bugs[m.ID]; !ok {
		r.bugOrder = append(r.bugOrder, m.ID)
	}
	r.bugs[m.ID] = m
	return nil
}

func (r *readModelStore) GetBug(ctx context.Context, id uuid.UUID) (*domain.BugReadModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m, ok := r.bugs[id]; ok {
		return m, nil
	}

	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.bugViews[id]; ok {
		return m.Clone(), nil
	}
	return nil, bugline.NewNotFoundError("bug", id)
}

func (r *readModelStore) ListBugs(ctx context.Context, f domain.BugFilter) ([]*domain.BugReadModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := r.uow.store
	s.mu.Lock()
	all := make([]*domain.BugReadModel, 0, len(s.bugViews))
	seen := make(map[uuid.UUID]struct{})
	for id, m := range s.bugViews {
		seen[id] = struct{}{}
		if staged, overridden := r.bugs[id]; overridden {
			all = append(all, staged)
			continue
		}
		all = append(all, m.Clone())
	}
	s.mu.Unlock()

	for _, id := range r.bugOrder {
		if _, committed := seen[id]; !committed {
			all = append(all, r.bugs[id])
		}
	}

	out := make([]*domain.BugReadModel, 0, len(all))
	skipped := 0
	for _, m := range all {
		if !f.MatchesView(m) {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, m)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (r *readModelStore) PutComment(ctx context.Context, m *domain.CommentReadModel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	delete(r.deletedComments, m.ID)
	if _, ok := r.comments[m.ID]; !ok {
		r.commentOrder = append(r.commentOrder, m.ID)
	}
	r.comments[m.ID] = m
	return nil
}

func (r *readModelStore) GetComment(ctx context.Context, id uuid.UUID) (*domain.CommentReadModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, deleted := r.deletedComments[id]; deleted {
		return nil, bugline.NewNotFoundError("comment", id)
	}
	if m, ok := r.comments[id]; ok {
		return m, nil
	}

	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.commentViews[id]; ok {
		return m.Clone(), nil
	}
	return nil, bugline.NewNotFoundError("comment", id)
}

func (r *readModelStore) ListComments(ctx context.Context, bugID uuid.UUID) ([]*domain.CommentReadModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := r.uow.store
	s.mu.Lock()
	out := make([]*domain.CommentReadModel, 0)
	committed := make(map[uuid.UUID]struct{})
	for _, id := range s.commentOrder {
		m, ok := s.commentViews[id]
		if !ok || m.BugID != bugID {
			continue
		}
		committed[id] = struct{}{}
		if _, deleted := r.deletedComments[id]; deleted {
			continue
		}
		if staged, overridden := r.comments[id]; overridden {
			out = append(out, staged)
			continue
		}
		out = append(out, m.Clone())
	}
	s.mu.Unlock()

	for _, id := range r.commentOrder {
		if _, ok := committed[id]; ok {
			continue
		}
		if _, deleted := r.deletedComments[id]; deleted {
			continue
		}
		if m := r.comments[id]; m.BugID == bugID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *readModelStore) DeleteComment(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := r.comments[id]; ok {
		delete(r.comments, id)
		for i, cid := range r.commentOrder {
			if cid == id {
				r.commentOrder = append(r.commentOrder[:i], r.commentOrder[i+1:]...)
				break
			}
		}
	}
	r.deletedComments[id] = struct{}{}
	return nil
}
