package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/styleguard/styleguard/internal/events"
	"github.com/styleguard/styleguard/internal/tokens"
)

func TestAuthService_RegisterLoginWhoAmI(t *testing.T) {
	t.Parallel()

	svc, _, pub := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice@example.com", "alice", "pw123")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEqual(t, "pw123", user.PasswordHash)

	pair, got, err := svc.Login(ctx, "alice@example.com", "pw123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	me, err := svc.WhoAmI(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, "alice@example.com", me.Email)

	assert.Equal(t, []string{"user_registered", "user_logged_in"}, pub.types())
	assert.Equal(t, events.TopicUsers, pub.events[0].Topic)
	assert.Equal(t, strconv.FormatUint(uint64(user.ID), 10), pub.events[0].Key)
}

func TestAuthService_Register_Validation(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name                      string
		email, username, password string
	}{
		{name: "empty email", email: "", username: "u", password: "p"},
		{name: "empty username", email: "a@b.c", username: "", password: "p"},
		{name: "empty password", email: "a@b.c", username: "u", password: ""},
		{name: "bad email", email: "not-an-email", username: "u", password: "p"},
		{name: "display name email", email: "Alice <a@b.c>", username: "u", password: "p"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			user, err := svc.Register(ctx, tt.email, tt.username, tt.password)
			assert.Nil(t, user)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestAuthService_Register_Duplicates(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "alice", "pw123")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice@example.com", "alice2", "pw")
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = svc.Register(ctx, "other@example.com", "alice", "pw")
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestAuthService_Authenticate_GenericFailure(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice@example.com", "alice", "pw123")
	require.NoError(t, err)

	_, errWrongPw := svc.Authenticate(ctx, "alice@example.com", "nope")
	_, errUnknown := svc.Authenticate(ctx, "ghost@example.com", "pw123")
	_, errEmpty := svc.Authenticate(ctx, "", "")

	assert.ErrorIs(t, errWrongPw, ErrInvalidCredentials)
	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errEmpty, ErrInvalidCredentials)
	assert.Equal(t, errWrongPw.Error(), errUnknown.Error())

	_, _, err = svc.Login(ctx, "alice@example.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_TokenKinds(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice@example.com", "alice", "pw123")
	require.NoError(t, err)
	pair, _, err := svc.Login(ctx, "alice@example.com", "pw123")
	require.NoError(t, err)

	_, err = svc.ResolveCurrentUser(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrWrongTokenKind)

	_, err = svc.ResolveRefreshUser(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrWrongTokenKind)

	u, err := svc.ResolveRefreshUser(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
}

func TestAuthService_Refresh(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice@example.com", "alice", "pw123")
	require.NoError(t, err)
	pair, _, err := svc.Login(ctx, "alice@example.com", "pw123")
	require.NoError(t, err)

	next, user, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	me, err := svc.WhoAmI(ctx, next.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)

	// No rotation: the old refresh token still works until it expires.
	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.NoError(t, err)

	_, _, err = svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrWrongTokenKind)

	_, _, err = svc.Refresh(ctx, "not-a-valid-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_ExpiredAndForgedTokens(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, "alice@example.com", "alice", "pw123")
	require.NoError(t, err)

	past := svc.Tokens.WithClock(func() time.Time { return time.Now().Add(-25 * time.Hour) })
	stale, err := past.IssuePair(strconv.FormatUint(uint64(user.ID), 10))
	require.NoError(t, err)

	_, err = svc.ResolveCurrentUser(ctx, stale.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)

	forged, err := tokens.NewService([]byte("attacker"), "HS256", time.Hour, time.Hour)
	require.NoError(t, err)
	bad, err := forged.IssuePair(strconv.FormatUint(uint64(user.ID), 10))
	require.NoError(t, err)

	_, err = svc.ResolveCurrentUser(ctx, bad.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.True(t, IsAuthError(err))
}

func TestAuthService_UnknownSubject(t *testing.T) {
	t.Parallel()

	svc, _, pub := newTestAuthService(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, "alice@example.com", "alice", "pw123")
	require.NoError(t, err)
	pair, _, err := svc.Login(ctx, "alice@example.com", "pw123")
	require.NoError(t, err)

	deleted, err := svc.DeleteUser(ctx, user)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Contains(t, pub.types(), "user_deleted")

	_, err = svc.ResolveCurrentUser(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrUnknownSubject)
	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUnknownSubject)

	deleted, err = svc.DeleteUser(ctx, user)
	require.NoError(t, err)
	assert.False(t, deleted)

	ghost, err := svc.Tokens.IssuePair("not-a-number")
	require.NoError(t, err)
	_, err = svc.ResolveCurrentUser(ctx, ghost.AccessToken)
	assert.ErrorIs(t, err, ErrUnknownSubject)
}

func TestAuthService_MissingSubjectIsInvalidToken(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestAuthService(t)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokens.Claims{
		Kind: tokens.KindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-jwt-secret"))
	require.NoError(t, err)

	_, err = svc.ResolveCurrentUser(context.Background(), tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_PublishFailureDoesNotFailLogin(t *testing.T) {
	t.Parallel()

	svc, _, pub := newTestAuthService(t)
	pub.err = assert.AnError
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "alice", "pw123")
	require.NoError(t, err)
	_, _, err = svc.Login(ctx, "alice@example.com", "pw123")
	require.NoError(t, err)
}

func TestAuthService_LoginTrimsEmail(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, " alice@example.com ", "alice", "pw123")
	require.NoError(t, err)

	_, got, err := svc.Login(ctx, " alice@example.com", "pw123")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)

	_, _, err = svc.Login(ctx, "   ", "pw123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_UpdateUser(t *testing.T) {
	t.Parallel()

	svc, _, pub := newTestAuthService(t)
	ctx := context.Background()

	alice, err := svc.Register(ctx, "alice@example.com", "alice", "pw123")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "bob@example.com", "bob", "pw456")
	require.NoError(t, err)

	str := func(s string) *string { return &s }

	updated, err := svc.UpdateUser(ctx, alice, UserUpdate{Username: str(" alicia "), Password: str("newpw")})
	require.NoError(t, err)
	assert.Equal(t, "alicia", updated.Username)
	assert.Equal(t, "alice@example.com", updated.Email)
	assert.Contains(t, pub.types(), "user_updated")

	_, _, err = svc.Login(ctx, "alice@example.com", "pw123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "alice@example.com", "newpw")
	require.NoError(t, err)

	_, err = svc.UpdateUser(ctx, updated, UserUpdate{Email: str("bob@example.com")})
	assert.ErrorIs(t, err, ErrEmailTaken)
	_, err = svc.UpdateUser(ctx, updated, UserUpdate{Username: str("bob")})
	assert.ErrorIs(t, err, ErrUsernameTaken)
	_, err = svc.UpdateUser(ctx, updated, UserUpdate{Email: str("not-an-email")})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.UpdateUser(ctx, updated, UserUpdate{Username: str("  ")})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.UpdateUser(ctx, updated, UserUpdate{Password: str("")})
	assert.ErrorIs(t, err, ErrValidation)

	same, err := svc.UpdateUser(ctx, updated, UserUpdate{Email: str("alice@example.com")})
	require.NoError(t, err)
	assert.Equal(t, "alicia", same.Username)
}
