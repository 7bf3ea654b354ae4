package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugline/bugline"
)

func newTestUser() *User {
	return NewUser("mlopez", "mlopez@example.com", "$argon2id$hash", UserTypeBackend, false, "first pet", "$argon2id$answer")
}

func TestNewUser(t *testing.T) {
	u := newTestUser()

	assert.NotEqual(t, [16]byte{}, [16]byte(u.ID))
	assert.Equal(t, "mlopez", u.Username)
	assert.Equal(t, RecordStatusActive, u.Status)
	assert.False(t, u.IsAdmin)

	t.Run("records exactly one UserCreated", func(t *testing.T) {
		pending := u.PendingEvents()
		require.Len(t, pending, 1)

		ev, ok := pending[0].(UserCreated)
		require.True(t, ok)
		assert.Equal(t, u.ID, ev.UserID)
		assert.Equal(t, "mlopez", ev.Username)
		assert.Equal(t, EventUserCreated, ev.EventName())
	})

	t.Run("payload omits nothing on create", func(t *testing.T) {
		ev, _ := u.LatestEvent()
		payload := ev.Payload()
		assert.Equal(t, u.ID.String(), payload["user_id"])
		assert.Equal(t, "mlopez@example.com", payload["email"])
		assert.Equal(t, "backend", payload["user_type"])
	})
}

func TestUserUpdate(t *testing.T) {
	t.Run("partial patch records UserUpdated with only changed fields", func(t *testing.T) {
		u := newTestUser()
		u.ClearPendingEvents()

		email := "new@example.com"
		require.NoError(t, u.Update(UserPatch{Email: &email}))

		assert.Equal(t, "new@example.com", u.Email)
		assert.Equal(t, "mlopez", u.Username)

		pending := u.PendingEvents()
		require.Len(t, pending, 1)
		ev := pending[0].(UserUpdated)
		require.NotNil(t, ev.Email)
		assert.Equal(t, "new@example.com", *ev.Email)
		assert.Nil(t, ev.Username)

		payload := ev.Payload()
		assert.Contains(t, payload, "email")
		assert.NotContains(t, payload, "username")
	})

	t.Run("empty patch records nothing", func(t *testing.T) {
		u := newTestUser()
		u.ClearPendingEvents()

		require.NoError(t, u.Update(UserPatch{}))
		assert.False(t, u.HasPendingEvents())
	})

	t.Run("update after soft delete fails with ErrItemNotFound", func(t *testing.T) {
		u := newTestUser()
		require.NoError(t, u.SoftDelete())

		email := "new@example.com"
		err := u.Update(UserPatch{Email: &email})
		assert.ErrorIs(t, err, bugline.ErrItemNotFound)
	})
}

func TestUserSoftDelete(t *testing.T) {
	u := newTestUser()
	u.ClearPendingEvents()

	require.NoError(t, u.SoftDelete())
	assert.True(t, u.Deleted())

	pending := u.PendingEvents()
	require.Len(t, pending, 1)
	assert.Equal(t, EventUserSoftDeleted, pending[0].EventName())

	t.Run("second delete fails with ErrItemNotFound", func(t *testing.T) {
		err := u.SoftDelete()
		assert.ErrorIs(t, err, bugline.ErrItemNotFound)
	})
}

func TestUserRehashPassword(t *testing.T) {
	u := newTestUser()
	u.ClearPendingEvents()

	u.RehashPassword("$argon2id$rehashed")

	assert.Equal(t, "$argon2id$rehashed", u.PasswordHash)
	assert.False(t, u.HasPendingEvents(), "hash maintenance must not emit events")
}

func TestUserClone(t *testing.T) {
	u := newTestUser()
	c := u.Clone()

	assert.Equal(t, u.ID, c.ID)
	assert.False(t, c.HasPendingEvents())
	assert.True(t, u.HasPendingEvents(), "clone must not drain the source queue")
}

func TestReplayUser(t *testing.T) {
	u := newTestUser()
	username := "mlopez2"
	require.NoError(t, u.Update(UserPatch{Username: &username}))
	require.NoError(t, u.SoftDelete())

	events := u.PendingEvents()
	require.Len(t, events, 3)

	replayed, err := ReplayUser(u.ID, events)
	require.NoError(t, err)

	assert.Equal(t, "mlopez2", replayed.Username)
	assert.Equal(t, u.Email, replayed.Email)
	assert.Equal(t, RecordStatusDeleted, replayed.Status)
	assert.False(t, replayed.HasPendingEvents())
}

func TestUserEventRoundTrip(t *testing.T) {
	reg := bugline.NewEventRegistry()
	RegisterEvents(reg)

	u := newTestUser()
	username := "renamed"
	require.NoError(t, u.Update(UserPatch{Username: &username}))

	for _, ev := range u.PendingEvents() {
		decoded, err := reg.Decode(ev.EventName(), ev.Payload())
		require.NoError(t, err)
		assert.Equal(t, ev, decoded)
	}
}
