package service_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugline/bugline"
	"github.com/bugline/bugline/adapters/memory"
	"github.com/bugline/bugline/domain"
	"github.com/bugline/bugline/service"
)

type fakeHasher struct {
	rehash bool
}

func (f fakeHasher) Hash(plain string) (string, error) {
	return "hash:" + plain, nil
}

func (f fakeHasher) Verify(encoded, plain string) error {
	if encoded == "hash:"+plain {
		return nil
	}
	return bugline.ErrUnauthorized
}

func (f fakeHasher) NeedsRehash(string) bool { return f.rehash }

type fakeTokens struct{}

func (fakeTokens) IssueAccessToken(c service.Claims) (string, error) {
	return "access:" + c.Subject.String(), nil
}

func (fakeTokens) IssueRefreshToken(userID uuid.UUID, _ domain.UserType) (string, error) {
	return "refresh:" + userID.String(), nil
}

func (fakeTokens) ValidateRefreshToken(token string) (uuid.UUID, error) {
	raw, ok := strings.CutPrefix(token, "refresh:")
	if !ok {
		return uuid.Nil, bugline.ErrTokenInvalid
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, bugline.ErrTokenInvalid
	}
	return id, nil
}

type env struct {
	store   *memory.Store
	factory *bugline.BusFactory[service.Deps]
	views   *service.Views
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.NewStore()
	factory := service.NewBusFactory(
		service.NewRegistry(),
		store.Factory(),
		fakeHasher{},
		fakeTokens{},
		nil,
		bugline.NopLogger(),
	)
	return &env{
		store:   store,
		factory: factory,
		views:   service.NewViews(store.Factory(), nil),
	}
}

func (e *env) dispatch(t *testing.T, cmd bugline.Command) (any, error) {
	t.Helper()
	return e.factory.New().Handle(context.Background(), cmd)
}

func (e *env) mustDispatch(t *testing.T, cmd bugline.Command) any {
	t.Helper()
	res, err := e.dispatch(t, cmd)
	require.NoError(t, err)
	return res
}

func (e *env) createUser(t *testing.T, username, email string) uuid.UUID {
	t.Helper()
	res := e.mustDispatch(t, service.CreateUser{
		Username:         username,
		Email:            email,
		Password:         "correct horse",
		UserType:         domain.UserTypeBackend,
		SecurityQuestion: "first pet",
		SecurityAnswer:   "rex",
	})
	return res.(uuid.UUID)
}

func (e *env) createBug(t *testing.T, authorID uuid.UUID, title string) uuid.UUID {
	t.Helper()
	res := e.mustDispatch(t, service.CreateBug{
		Title:       title,
		AuthorID:    authorID,
		Description: "something is off",
		Environment: domain.EnvProd,
		Urgency:     domain.UrgencyMedium,
	})
	return res.(uuid.UUID)
}

func (e *env) records(t *testing.T, aggregateID uuid.UUID) []bugline.EventRecord {
	t.Helper()
	recs, err := e.views.History(context.Background(), aggregateID)
	require.NoError(t, err)
	return recs
}

func TestCreateUser(t *testing.T) {
	e := newEnv(t)

	id := e.createUser(t, "mlopez", "mlopez@example.com")

	t.Run("exactly one UserCreated record", func(t *testing.T) {
		recs := e.records(t, id)
		require.Len(t, recs, 1)
		assert.Equal(t, domain.EventUserCreated, recs[0].EventName)
	})

	t.Run("projection populated the user view", func(t *testing.T) {
		view, err := e.views.User(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "mlopez", view.Username)
		assert.Equal(t, domain.RecordStatusActive, view.Status)
	})

	t.Run("password is stored hashed", func(t *testing.T) {
		recs := e.records(t, id)
		assert.Equal(t, "hash:correct horse", recs[0].EventData["password_hash"])
	})

	t.Run("duplicate email fails with ErrDuplicateRecord", func(t *testing.T) {
		_, err := e.dispatch(t, service.CreateUser{
			Username:         "other",
			Email:            "mlopez@example.com",
			Password:         "correct horse",
			UserType:         domain.UserTypeQA,
			SecurityQuestion: "q",
			SecurityAnswer:   "a",
		})
		assert.ErrorIs(t, err, bugline.ErrDuplicateRecord)
	})

	t.Run("invalid command fails validation before the handler", func(t *testing.T) {
		_, err := e.dispatch(t, service.CreateUser{Username: "x", Email: "nope", Password: "short"})
		assert.ErrorIs(t, err, bugline.ErrValidationFailed)
	})
}

func TestUserLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	id := e.createUser(t, "jsmith", "jsmith@example.com")

	username := "jsmith2"
	e.mustDispatch(t, service.UpdateUser{ID: id, Username: &username})

	recs := e.records(t, id)
	require.Len(t, recs, 2)
	assert.Equal(t, domain.EventUserUpdated, recs[1].EventName)

	view, err := e.views.User(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "jsmith2", view.Username, "projection must reflect the rename")

	e.mustDispatch(t, service.SoftDeleteUser{ID: id})

	recs = e.records(t, id)
	require.Len(t, recs, 3)
	assert.Equal(t, domain.EventUserSoftDeleted, recs[2].EventName)

	_, err = e.dispatch(t, service.Login{Email: "jsmith@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, bugline.ErrItemNotFound, "login after delete reports the user missing")

	t.Run("second delete is a no-op", func(t *testing.T) {
		e.mustDispatch(t, service.SoftDeleteUser{ID: id})
		assert.Len(t, e.records(t, id), 3)
	})

	t.Run("update after delete fails with ErrItemNotFound", func(t *testing.T) {
		email := "new@example.com"
		_, err := e.dispatch(t, service.UpdateUser{ID: id, Email: &email})
		assert.ErrorIs(t, err, bugline.ErrItemNotFound)
	})
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	id := e.createUser(t, "auth", "auth@example.com")

	t.Run("valid credentials return both tokens", func(t *testing.T) {
		res := e.mustDispatch(t, service.Login{Email: "auth@example.com", Password: "correct horse"})
		lr, ok := res.(service.LoginResult)
		require.True(t, ok)
		assert.Equal(t, "access:"+id.String(), lr.Token)
		assert.Equal(t, "refresh:"+id.String(), lr.RefreshToken)
	})

	t.Run("wrong password fails with ErrUnauthorized", func(t *testing.T) {
		_, err := e.dispatch(t, service.Login{Email: "auth@example.com", Password: "wrong"})
		assert.ErrorIs(t, err, bugline.ErrUnauthorized)
	})

	t.Run("unknown email fails with ErrUnauthorized", func(t *testing.T) {
		_, err := e.dispatch(t, service.Login{Email: "nobody@example.com", Password: "whatever"})
		assert.ErrorIs(t, err, bugline.ErrUnauthorized)
	})
}

func TestLoginRehash(t *testing.T) {
	store := memory.NewStore()
	factory := service.NewBusFactory(
		service.NewRegistry(),
		store.Factory(),
		fakeHasher{rehash: true},
		fakeTokens{},
		nil,
		bugline.NopLogger(),
	)
	e := &env{store: store, factory: factory, views: service.NewViews(store.Factory(), nil)}

	id := e.createUser(t, "stale", "stale@example.com")
	e.mustDispatch(t, service.Login{Email: "stale@example.com", Password: "correct horse"})

	// The hash upgrade is silent: no extra event-store record.
	assert.Len(t, e.records(t, id), 1)
}

func TestRefreshToken(t *testing.T) {
	e := newEnv(t)
	id := e.createUser(t, "fresh", "fresh@example.com")

	t.Run("valid refresh token returns a new access token", func(t *testing.T) {
		res := e.mustDispatch(t, service.RefreshToken{
			RefreshToken: "refresh:" + id.String(),
			GrantType:    service.GrantTypeRefresh,
		})
		rr, ok := res.(service.RefreshResult)
		require.True(t, ok)
		assert.Equal(t, "access:"+id.String(), rr.Token)
	})

	t.Run("wrong grant type fails with ErrForbidden", func(t *testing.T) {
		_, err := e.dispatch(t, service.RefreshToken{RefreshToken: "refresh:" + id.String(), GrantType: "password"})
		assert.ErrorIs(t, err, bugline.ErrForbidden)
	})

	t.Run("garbage token fails with ErrForbidden", func(t *testing.T) {
		_, err := e.dispatch(t, service.RefreshToken{RefreshToken: "garbage", GrantType: service.GrantTypeRefresh})
		assert.ErrorIs(t, err, bugline.ErrForbidden)
	})

	t.Run("unknown subject fails with ErrForbidden", func(t *testing.T) {
		_, err := e.dispatch(t, service.RefreshToken{
			RefreshToken: "refresh:" + uuid.NewString(),
			GrantType:    service.GrantTypeRefresh,
		})
		assert.ErrorIs(t, err, bugline.ErrForbidden)
	})
}

func TestBugCommands(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.createUser(t, "author", "author@example.com")
	stranger := e.createUser(t, "stranger", "stranger@example.com")

	bugID := e.createBug(t, author, "checkout broken")

	t.Run("create produced one record and a projected view", func(t *testing.T) {
		recs := e.records(t, bugID)
		require.Len(t, recs, 1)
		assert.Equal(t, domain.EventBugCreated, recs[0].EventName)

		detail, err := e.views.Bug(ctx, bugID)
		require.NoError(t, err)
		assert.Equal(t, "checkout broken", detail.Bug.Title)
		assert.Equal(t, "author", detail.Bug.AuthorUsername)
		assert.Equal(t, 1, detail.Bug.Version)
	})

	t.Run("update by a non-author fails with ErrForbidden", func(t *testing.T) {
		title := "hijacked"
		_, err := e.dispatch(t, service.UpdateBug{ID: bugID, AuthorID: stranger, Title: &title})
		assert.ErrorIs(t, err, bugline.ErrForbidden)
	})

	t.Run("author update bumps version and projects", func(t *testing.T) {
		status := domain.BugStatusInProgress
		e.mustDispatch(t, service.UpdateBug{ID: bugID, AuthorID: author, Status: &status})

		detail, err := e.views.Bug(ctx, bugID)
		require.NoError(t, err)
		assert.Equal(t, domain.BugStatusInProgress, detail.Bug.Status)
		assert.Equal(t, 2, detail.Bug.Version)
		assert.True(t, detail.Bug.Edited)
	})

	t.Run("backward status transition is rejected", func(t *testing.T) {
		status := domain.BugStatusNew
		_, err := e.dispatch(t, service.UpdateBug{ID: bugID, AuthorID: author, Status: &status})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("soft delete then update fails with ErrItemNotFound", func(t *testing.T) {
		victim := e.createBug(t, author, "short lived")
		e.mustDispatch(t, service.SoftDeleteBug{ID: victim, AuthorID: author})

		title := "too late"
		_, err := e.dispatch(t, service.UpdateBug{ID: victim, AuthorID: author, Title: &title})
		assert.ErrorIs(t, err, bugline.ErrItemNotFound)

		_, err = e.views.Bug(ctx, victim)
		assert.ErrorIs(t, err, bugline.ErrItemNotFound, "deleted bugs disappear from the query side")
	})

	t.Run("unknown bug fails with ErrItemNotFound", func(t *testing.T) {
		title := "ghost"
		_, err := e.dispatch(t, service.UpdateBug{ID: uuid.New(), AuthorID: author, Title: &title})
		assert.ErrorIs(t, err, bugline.ErrItemNotFound)
	})
}

func TestCommentCommands(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.createUser(t, "reporter", "reporter@example.com")
	commenter := e.createUser(t, "commenter", "commenter@example.com")
	bugID := e.createBug(t, author, "flaky test")

	res := e.mustDispatch(t, service.CreateComment{BugID: bugID, AuthorID: commenter, Text: "same here"})
	commentID := res.(uuid.UUID)

	t.Run("comment projected with author username and counter", func(t *testing.T) {
		detail, err := e.views.Bug(ctx, bugID)
		require.NoError(t, err)
		require.Len(t, detail.Comments, 1)
		assert.Equal(t, "same here", detail.Comments[0].Text)
		assert.Equal(t, "commenter", detail.Comments[0].AuthorUsername)
		assert.Equal(t, 1, detail.Bug.CommentCount)
	})

	t.Run("only the comment author may edit", func(t *testing.T) {
		_, err := e.dispatch(t, service.UpdateComment{BugID: bugID, CommentID: commentID, AuthorID: author, Text: "hijack"})
		assert.ErrorIs(t, err, bugline.ErrForbidden)
	})

	t.Run("edit marks the comment edited", func(t *testing.T) {
		e.mustDispatch(t, service.UpdateComment{BugID: bugID, CommentID: commentID, AuthorID: commenter, Text: "same here on staging"})

		detail, err := e.views.Bug(ctx, bugID)
		require.NoError(t, err)
		require.Len(t, detail.Comments, 1)
		assert.True(t, detail.Comments[0].Edited)
		assert.Equal(t, "same here on staging", detail.Comments[0].Text)
	})

	t.Run("votes project the running count", func(t *testing.T) {
		e.mustDispatch(t, service.UpvoteComment{BugID: bugID, CommentID: commentID})
		e.mustDispatch(t, service.UpvoteComment{BugID: bugID, CommentID: commentID})
		e.mustDispatch(t, service.DownvoteComment{BugID: bugID, CommentID: commentID})

		detail, err := e.views.Bug(ctx, bugID)
		require.NoError(t, err)
		assert.Equal(t, 1, detail.Comments[0].VoteCount)
	})

	t.Run("delete removes the comment and its view", func(t *testing.T) {
		e.mustDispatch(t, service.SoftDeleteComment{BugID: bugID, CommentID: commentID, AuthorID: commenter})

		detail, err := e.views.Bug(ctx, bugID)
		require.NoError(t, err)
		assert.Empty(t, detail.Comments)
		assert.Equal(t, 0, detail.Bug.CommentCount)
	})

	t.Run("every mutation left exactly one record", func(t *testing.T) {
		// create bug + comment create/update/upvote/upvote/downvote/delete
		assert.Len(t, e.records(t, bugID), 7)
	})
}

func TestTagCommands(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.createUser(t, "tagger", "tagger@example.com")
	bugID := e.createBug(t, author, "taggable")

	res := e.mustDispatch(t, service.CreateTag{Name: "regression"})
	tagID := res.(uuid.UUID)

	t.Run("duplicate tag name fails with ErrDuplicateRecord", func(t *testing.T) {
		_, err := e.dispatch(t, service.CreateTag{Name: "regression"})
		assert.ErrorIs(t, err, bugline.ErrDuplicateRecord)
	})

	e.mustDispatch(t, service.AddTag{BugID: bugID, TagID: tagID})

	t.Run("tag attach is projected", func(t *testing.T) {
		detail, err := e.views.Bug(ctx, bugID)
		require.NoError(t, err)
		require.Len(t, detail.Bug.TagIDs, 1)
		assert.Equal(t, tagID, detail.Bug.TagIDs[0])
	})

	t.Run("attaching twice fails with ErrDuplicateRecord", func(t *testing.T) {
		_, err := e.dispatch(t, service.AddTag{BugID: bugID, TagID: tagID})
		assert.ErrorIs(t, err, bugline.ErrDuplicateRecord)
	})

	t.Run("attaching an unknown tag fails with ErrItemNotFound", func(t *testing.T) {
		_, err := e.dispatch(t, service.AddTag{BugID: bugID, TagID: uuid.New()})
		assert.ErrorIs(t, err, bugline.ErrItemNotFound)
	})

	e.mustDispatch(t, service.RemoveTag{BugID: bugID, TagID: tagID})

	t.Run("tag detach is projected", func(t *testing.T) {
		detail, err := e.views.Bug(ctx, bugID)
		require.NoError(t, err)
		assert.Empty(t, detail.Bug.TagIDs)
	})

	t.Run("tags are listed", func(t *testing.T) {
		tags, err := e.views.Tags(ctx)
		require.NoError(t, err)
		require.Len(t, tags, 1)
		assert.Equal(t, "regression", tags[0].Name)
	})
}

func TestListBugs(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.createUser(t, "lister", "lister@example.com")

	for i := 0; i < 3; i++ {
		e.createBug(t, author, fmt.Sprintf("bug %d", i))
	}
	other := e.createUser(t, "other", "other@example.com")
	e.createBug(t, other, "someone else's bug")

	bugs, err := e.views.Bugs(ctx, domain.BugFilter{AuthorID: author})
	require.NoError(t, err)
	assert.Len(t, bugs, 3)

	all, err := e.views.Bugs(ctx, domain.BugFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestUnregisteredCommand(t *testing.T) {
	e := newEnv(t)

	registry := bugline.NewRegistry[service.Deps]()
	factory := service.NewBusFactory(registry, e.store.Factory(), fakeHasher{}, fakeTokens{}, nil, bugline.NopLogger())

	_, err := factory.New().Handle(context.Background(), service.CreateTag{Name: "x"})
	assert.ErrorIs(t, err, bugline.ErrHandlerNotFound)
}

func TestEmailReuseAfterDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first := e.createUser(t, "mlopez", "mlopez@example.com")
	e.mustDispatch(t, service.SoftDeleteUser{ID: first})

	// A deleted account frees its email for a new signup.
	second := e.createUser(t, "mlopez2", "mlopez@example.com")
	require.NotEqual(t, first, second)

	t.Run("active account blocks further reuse", func(t *testing.T) {
		_, err := e.dispatch(t, service.CreateUser{
			Username:         "mlopez3",
			Email:            "mlopez@example.com",
			Password:         "correct horse",
			UserType:         domain.UserTypeQA,
			SecurityQuestion: "q",
			SecurityAnswer:   "a",
		})
		assert.ErrorIs(t, err, bugline.ErrDuplicateRecord)
	})

	t.Run("login resolves the active account", func(t *testing.T) {
		res, err := e.dispatch(t, service.Login{
			Email:    "mlopez@example.com",
			Password: "correct horse",
		})
		require.NoError(t, err)
		lr := res.(service.LoginResult)
		assert.Equal(t, "access:"+second.String(), lr.Token)
	})

	t.Run("deleted account stays visible by id", func(t *testing.T) {
		_, err := e.views.User(ctx, first)
		assert.ErrorIs(t, err, bugline.ErrItemNotFound)
	})
}

func TestHistoryRehydratesTypedEvents(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	author := e.createUser(t, "mlopez", "mlopez@example.com")
	bugID := e.createBug(t, author, "search is broken")
	newTitle := "search returns stale results"
	e.mustDispatch(t, service.UpdateBug{ID: bugID, AuthorID: author, Title: &newTitle})

	t.Run("payloads come back in canonical typed form", func(t *testing.T) {
		recs := e.records(t, bugID)
		require.Len(t, recs, 2)
		assert.Equal(t, domain.EventBugCreated, recs[0].EventName)
		assert.Equal(t, "search is broken", recs[0].EventData["title"])
		assert.Equal(t, newTitle, recs[1].EventData["title"])
		assert.Equal(t, bugID.String(), recs[1].EventData["bug_id"])
	})

	t.Run("unregistered event name fails loudly", func(t *testing.T) {
		uow := e.store.Factory().New()
		require.NoError(t, uow.Begin(ctx))
		uow.EventStore().Add(bugline.EventRecord{
			ID:          uuid.New(),
			AggregateID: bugID,
			EventName:   "bug.migrated",
			EventData:   map[string]any{},
		})
		require.NoError(t, uow.Commit(ctx))
		uow.Release()

		_, err := e.views.History(ctx, bugID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bug.migrated")
	})
}
