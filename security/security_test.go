package security

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugline/bugline"
	"github.com/bugline/bugline/domain"
	"github.com/bugline/bugline/service"
)

func fastParams() Argon2Params {
	return Argon2Params{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestArgon2Hasher(t *testing.T) {
	h := NewArgon2Hasher(fastParams())

	encoded, err := h.Hash("opensesame")
	require.NoError(t, err)
	assert.Contains(t, encoded, "$argon2id$")

	t.Run("verify accepts the right password", func(t *testing.T) {
		assert.NoError(t, h.Verify(encoded, "opensesame"))
	})

	t.Run("verify rejects the wrong password with ErrUnauthorized", func(t *testing.T) {
		err := h.Verify(encoded, "closesesame")
		assert.ErrorIs(t, err, bugline.ErrUnauthorized)
	})

	t.Run("same password hashes to different encodings", func(t *testing.T) {
		other, err := h.Hash("opensesame")
		require.NoError(t, err)
		assert.NotEqual(t, encoded, other)
	})

	t.Run("malformed hash fails without ErrUnauthorized", func(t *testing.T) {
		err := h.Verify("not-a-hash", "opensesame")
		require.Error(t, err)
		assert.NotErrorIs(t, err, bugline.ErrUnauthorized)
	})
}

func TestNeedsRehash(t *testing.T) {
	weak := NewArgon2Hasher(fastParams())
	strong := NewArgon2Hasher(DefaultArgon2Params())

	encoded, err := weak.Hash("opensesame")
	require.NoError(t, err)

	assert.False(t, weak.NeedsRehash(encoded))
	assert.True(t, strong.NeedsRehash(encoded), "weaker parameters than current must trigger a rehash")
	assert.True(t, strong.NeedsRehash("garbage"))
}

func testManager(now time.Time) *JWTManager {
	m := NewJWTManager(JWTConfig{
		Secret:     "test-secret",
		Issuer:     "bugline-test",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	})
	m.now = func() time.Time { return now }
	return m
}

func TestJWTRoundTrip(t *testing.T) {
	now := time.Now()
	m := testManager(now)
	userID := uuid.New()

	t.Run("access token carries the claims", func(t *testing.T) {
		token, err := m.IssueAccessToken(service.Claims{
			Subject:  userID,
			Email:    "a@example.com",
			UserType: domain.UserTypeDevOps,
			Admin:    true,
		})
		require.NoError(t, err)

		claims, err := m.ValidateAccessToken(token)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.Subject)
		assert.Equal(t, "a@example.com", claims.Email)
		assert.Equal(t, domain.UserTypeDevOps, claims.UserType)
		assert.True(t, claims.Admin)
	})

	t.Run("refresh token round-trips the subject", func(t *testing.T) {
		token, err := m.IssueRefreshToken(userID, domain.UserTypeQA)
		require.NoError(t, err)

		subject, err := m.ValidateRefreshToken(token)
		require.NoError(t, err)
		assert.Equal(t, userID, subject)
	})

	t.Run("access token is rejected as a refresh token", func(t *testing.T) {
		token, err := m.IssueAccessToken(service.Claims{Subject: userID})
		require.NoError(t, err)

		_, err = m.ValidateRefreshToken(token)
		assert.ErrorIs(t, err, bugline.ErrTokenInvalid)
	})
}

func TestJWTExpiry(t *testing.T) {
	issued := time.Now()
	m := testManager(issued)
	userID := uuid.New()

	token, err := m.IssueRefreshToken(userID, domain.UserTypeBackend)
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = m.ValidateRefreshToken(token)
	assert.ErrorIs(t, err, bugline.ErrTokenExpired)
}

func TestJWTTampering(t *testing.T) {
	m := testManager(time.Now())
	userID := uuid.New()

	token, err := m.IssueRefreshToken(userID, domain.UserTypeBackend)
	require.NoError(t, err)

	t.Run("garbage token", func(t *testing.T) {
		_, err := m.ValidateRefreshToken("garbage")
		assert.ErrorIs(t, err, bugline.ErrTokenInvalid)
	})

	t.Run("wrong signing secret", func(t *testing.T) {
		other := NewJWTManager(JWTConfig{Secret: "another-secret"})
		_, err := other.ValidateRefreshToken(token)
		assert.ErrorIs(t, err, bugline.ErrTokenInvalid)
	})
}
