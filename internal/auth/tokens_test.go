package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyhub/internal/config"
)

func newTestService() *TokenService {
	return NewTokenService(config.JWTConfig{
		Secret:        "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	}, "studyhub-test")
}

func TestAccessRoundTrip(t *testing.T) {
	s := newTestService()
	id := uuid.New()

	raw, err := s.IssueAccess(id, "ann@example.com", "admin")
	require.NoError(t, err)

	claims, err := s.ParseAccess(raw)
	require.NoError(t, err)

	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, "ann@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, AccessToken, claims.Type)
}

func TestRefreshRoundTrip(t *testing.T) {
	s := newTestService()
	id := uuid.New()

	raw, jti, expiresAt, err := s.IssueRefresh(id)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), expiresAt, time.Minute)

	claims, err := s.ParseRefresh(raw)
	require.NoError(t, err)
	assert.Equal(t, jti.String(), claims.ID)
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	s := newTestService()
	id := uuid.New()

	access, err := s.IssueAccess(id, "a@example.com", "user")
	require.NoError(t, err)
	refresh, _, _, err := s.IssueRefresh(id)
	require.NoError(t, err)

	_, err = s.ParseRefresh(access)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = s.ParseAccess(refresh)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestExpiredToken(t *testing.T) {
	s := newTestService()
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	raw, err := s.IssueAccess(uuid.New(), "a@example.com", "user")
	require.NoError(t, err)

	_, err = s.ParseAccess(raw)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTamperedToken(t *testing.T) {
	s := newTestService()
	raw, err := s.IssueAccess(uuid.New(), "a@example.com", "user")
	require.NoError(t, err)

	other := NewTokenService(config.JWTConfig{
		Secret:        "some-other-secret",
		RefreshSecret: "some-other-refresh",
		AccessTTL:     time.Hour,
		RefreshTTL:    time.Hour,
	}, "x")

	_, err = other.ParseAccess(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = s.ParseAccess("not.a.jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
