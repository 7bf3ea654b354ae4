package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugline/bugline"
	"github.com/bugline/bugline/domain"
)

func seedUser(t *testing.T, store *Store) *domain.User {
	t.Helper()
	ctx := context.Background()

	uow := NewUnitOfWork(store)
	require.NoError(t, uow.Begin(ctx))
	defer uow.Release()

	u := domain.NewUser("kpatel", "kpatel@example.com", "$argon2id$hash", domain.UserTypeQA, false, "favorite city", "$argon2id$answer")
	require.NoError(t, uow.Users().Add(ctx, u))
	require.NoError(t, uow.Commit(ctx))
	uow.CollectNewEvents()
	return u
}

func seedBug(t *testing.T, store *Store, authorID uuid.UUID) *domain.Bug {
	t.Helper()
	ctx := context.Background()

	uow := NewUnitOfWork(store)
	require.NoError(t, uow.Begin(ctx))
	defer uow.Release()

	b := domain.NewBug("search results stale", authorID, nil, "cache not invalidated", domain.EnvProd, domain.UrgencyMedium, nil)
	require.NoError(t, uow.Bugs().Add(ctx, b))
	rec, err := bugline.RecordOf(b)
	require.NoError(t, err)
	uow.EventStore().Add(rec)
	require.NoError(t, uow.Commit(ctx))
	uow.CollectNewEvents()
	return b
}

func TestUnitOfWorkCommit(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	u := seedUser(t, store)

	t.Run("committed aggregate is visible to a later scope", func(t *testing.T) {
		uow := NewUnitOfWork(store)
		require.NoError(t, uow.Begin(ctx))
		defer uow.Release()

		got, err := uow.Users().Get(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "kpatel", got.Username)
		assert.False(t, got.HasPendingEvents(), "loaded aggregates start with an empty queue")
	})

	t.Run("get of missing aggregate fails with ErrItemNotFound", func(t *testing.T) {
		uow := NewUnitOfWork(store)
		require.NoError(t, uow.Begin(ctx))
		defer uow.Release()

		_, err := uow.Users().Get(ctx, uuid.New())
		assert.ErrorIs(t, err, bugline.ErrItemNotFound)
	})

	t.Run("commit outside a scope fails", func(t *testing.T) {
		uow := NewUnitOfWork(store)
		assert.ErrorIs(t, uow.Commit(ctx), ErrNoActiveScope)
	})
}

func TestUnitOfWorkRollback(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	uow := NewUnitOfWork(store)
	require.NoError(t, uow.Begin(ctx))
	u := domain.NewUser("ghost", "ghost@example.com", "$argon2id$hash", domain.UserTypePM, false, "q", "$argon2id$a")
	require.NoError(t, uow.Users().Add(ctx, u))
	require.NoError(t, uow.Rollback(ctx))
	uow.Release()

	check := NewUnitOfWork(store)
	require.NoError(t, check.Begin(ctx))
	defer check.Release()
	_, err := check.Users().Get(ctx, u.ID)
	assert.ErrorIs(t, err, bugline.ErrItemNotFound)
}

func TestUnitOfWorkReleaseWithoutCommit(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	uow := NewUnitOfWork(store)
	require.NoError(t, uow.Begin(ctx))
	u := domain.NewUser("dropped", "dropped@example.com", "$argon2id$hash", domain.UserTypeDevOps, false, "q", "$argon2id$a")
	require.NoError(t, uow.Users().Add(ctx, u))
	uow.Release()

	check := NewUnitOfWork(store)
	require.NoError(t, check.Begin(ctx))
	defer check.Release()
	_, err := check.Users().Get(ctx, u.ID)
	assert.ErrorIs(t, err, bugline.ErrItemNotFound, "scopes must not auto-commit")
}

func TestCollectNewEvents(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	t.Run("drains in registration order, bugs before users", func(t *testing.T) {
		uow := NewUnitOfWork(store)
		require.NoError(t, uow.Begin(ctx))
		defer uow.Release()

		u := domain.NewUser("order", "order@example.com", "$argon2id$hash", domain.UserTypeBackend, false, "q", "$argon2id$a")
		require.NoError(t, uow.Users().Add(ctx, u))
		b := domain.NewBug("b", u.ID, nil, "d", domain.EnvCI, domain.UrgencyLow, nil)
		require.NoError(t, uow.Bugs().Add(ctx, b))
		require.NoError(t, uow.Commit(ctx))

		events := uow.CollectNewEvents()
		require.Len(t, events, 2)
		assert.Equal(t, domain.EventBugCreated, events[0].EventName())
		assert.Equal(t, domain.EventUserCreated, events[1].EventName())
	})

	t.Run("drain is destructive and idempotent", func(t *testing.T) {
		uow := NewUnitOfWork(store)
		require.NoError(t, uow.Begin(ctx))
		defer uow.Release()

		u := domain.NewUser("drain", "drain@example.com", "$argon2id$hash", domain.UserTypeBackend, false, "q", "$argon2id$a")
		require.NoError(t, uow.Users().Add(ctx, u))
		require.NoError(t, uow.Commit(ctx))

		first := uow.CollectNewEvents()
		assert.Len(t, first, 1)
		assert.Empty(t, uow.CollectNewEvents())
	})

	t.Run("events survive Release for the post-scope drain", func(t *testing.T) {
		uow := NewUnitOfWork(store)
		require.NoError(t, uow.Begin(ctx))
		u := domain.NewUser("late", "late@example.com", "$argon2id$hash", domain.UserTypeBackend, false, "q", "$argon2id$a")
		require.NoError(t, uow.Users().Add(ctx, u))
		require.NoError(t, uow.Commit(ctx))
		uow.Release()

		events := uow.CollectNewEvents()
		require.Len(t, events, 1)
		assert.Equal(t, domain.EventUserCreated, events[0].EventName())
	})
}

func TestOptimisticConcurrency(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	author := seedUser(t, store)
	b := seedBug(t, store, author.ID)

	first := NewUnitOfWork(store)
	require.NoError(t, first.Begin(ctx))
	second := NewUnitOfWork(store)
	require.NoError(t, second.Begin(ctx))

	b1, err := first.Bugs().Get(ctx, b.ID)
	require.NoError(t, err)
	b2, err := second.Bugs().Get(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, b1.Version, b2.Version)

	title1 := "first writer"
	require.NoError(t, b1.Update(domain.BugPatch{Title: &title1}))
	require.NoError(t, first.Commit(ctx))
	first.Release()

	title2 := "second writer"
	require.NoError(t, b2.Update(domain.BugPatch{Title: &title2}))
	err = second.Commit(ctx)
	second.Release()

	require.Error(t, err)
	assert.ErrorIs(t, err, bugline.ErrConcurrency)

	var conflict *bugline.ConcurrencyError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, b.ID, conflict.AggregateID)

	check := NewUnitOfWork(store)
	require.NoError(t, check.Begin(ctx))
	defer check.Release()
	current, err := check.Bugs().Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "first writer", current.Title, "losing write must leave no trace")
}

func TestEventStore(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	author := seedUser(t, store)
	b := seedBug(t, store, author.ID)

	uow := NewUnitOfWork(store)
	require.NoError(t, uow.Begin(ctx))

	got, err := uow.Bugs().Get(ctx, b.ID)
	require.NoError(t, err)
	title := "updated twice"
	require.NoError(t, got.Update(domain.BugPatch{Title: &title}))
	rec, err := bugline.RecordOf(got)
	require.NoError(t, err)
	uow.EventStore().Add(rec)

	t.Run("scope reads its staged records", func(t *testing.T) {
		recs, err := uow.EventStore().EventsFor(ctx, b.ID)
		require.NoError(t, err)
		assert.Len(t, recs, 2)
	})

	require.NoError(t, uow.Commit(ctx))
	uow.Release()

	t.Run("records are durable and ordered after commit", func(t *testing.T) {
		check := NewUnitOfWork(store)
		require.NoError(t, check.Begin(ctx))
		defer check.Release()

		recs, err := check.EventStore().EventsFor(ctx, b.ID)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, domain.EventBugCreated, recs[0].EventName)
		assert.Equal(t, domain.EventBugUpdated, recs[1].EventName)
	})

	t.Run("rolled-back records are not persisted", func(t *testing.T) {
		uow := NewUnitOfWork(store)
		require.NoError(t, uow.Begin(ctx))
		uow.EventStore().Add(bugline.NewEventRecord(b.ID, domain.BugSoftDeleted{BugID: b.ID, Version: 99}))
		require.NoError(t, uow.Rollback(ctx))
		uow.Release()

		assert.Equal(t, 2, store.EventRecordCount())
	})
}

func TestReadModelStore(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	uow := NewUnitOfWork(store)
	require.NoError(t, uow.Begin(ctx))

	view := &domain.UserReadModel{
		ID:       uuid.New(),
		Username: "viewer",
		Email:    "viewer@example.com",
		UserType: domain.UserTypeFrontend,
		Status:   domain.RecordStatusActive,
	}
	require.NoError(t, uow.ReadModels().PutUser(ctx, view))

	got, err := uow.ReadModels().GetUser(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "viewer", got.Username)

	require.NoError(t, uow.Commit(ctx))
	uow.Release()

	check := NewUnitOfWork(store)
	require.NoError(t, check.Begin(ctx))
	defer check.Release()

	got, err = check.ReadModels().GetUser(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "viewer", got.Username)

	users, err := check.ReadModels().ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestReadModelComments(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	bugID := uuid.New()

	uow := NewUnitOfWork(store)
	require.NoError(t, uow.Begin(ctx))

	c1 := &domain.CommentReadModel{ID: uuid.New(), BugID: bugID, Text: "first"}
	c2 := &domain.CommentReadModel{ID: uuid.New(), BugID: bugID, Text: "second"}
	require.NoError(t, uow.ReadModels().PutComment(ctx, c1))
	require.NoError(t, uow.ReadModels().PutComment(ctx, c2))
	require.NoError(t, uow.Commit(ctx))
	uow.Release()

	uow = NewUnitOfWork(store)
	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.ReadModels().DeleteComment(ctx, c1.ID))

	comments, err := uow.ReadModels().ListComments(ctx, bugID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "second", comments[0].Text)

	require.NoError(t, uow.Commit(ctx))
	uow.Release()

	check := NewUnitOfWork(store)
	require.NoError(t, check.Begin(ctx))
	defer check.Release()
	_, err = check.ReadModels().GetComment(ctx, c1.ID)
	assert.ErrorIs(t, err, bugline.ErrItemNotFound)
}

func TestGetByEmailPrefersActiveAccount(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	old := seedUser(t, store)

	// Soft-delete the account, then register a new one with the same email.
	uow := NewUnitOfWork(store)
	require.NoError(t, uow.Begin(ctx))
	got, err := uow.Users().Get(ctx, old.ID)
	require.NoError(t, err)
	require.NoError(t, got.SoftDelete())
	require.NoError(t, uow.Commit(ctx))
	uow.Release()
	uow.CollectNewEvents()

	replacement := domain.NewUser("kpatel2", "kpatel@example.com", "$argon2id$hash2", domain.UserTypeQA, false, "favorite city", "$argon2id$answer")
	uow = NewUnitOfWork(store)
	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.Users().Add(ctx, replacement))
	require.NoError(t, uow.Commit(ctx))
	uow.Release()
	uow.CollectNewEvents()

	t.Run("active account wins the lookup", func(t *testing.T) {
		uow := NewUnitOfWork(store)
		require.NoError(t, uow.Begin(ctx))
		defer uow.Release()

		found, err := uow.Users().GetByEmail(ctx, "kpatel@example.com")
		require.NoError(t, err)
		assert.Equal(t, replacement.ID, found.ID)
		assert.False(t, found.Deleted())
	})

	t.Run("deleted account is the fallback", func(t *testing.T) {
		uow := NewUnitOfWork(store)
		require.NoError(t, uow.Begin(ctx))
		defer uow.Release()

		got, err := uow.Users().Get(ctx, replacement.ID)
		require.NoError(t, err)
		require.NoError(t, got.SoftDelete())
		require.NoError(t, uow.Commit(ctx))
		uow.CollectNewEvents()

		uow2 := NewUnitOfWork(store)
		require.NoError(t, uow2.Begin(ctx))
		defer uow2.Release()

		found, err := uow2.Users().GetByEmail(ctx, "kpatel@example.com")
		require.NoError(t, err)
		assert.True(t, found.Deleted())
	})
}
