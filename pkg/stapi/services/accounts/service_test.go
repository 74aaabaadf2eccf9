package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/quatton/skintwin/pkg/kv"
	"github.com/quatton/skintwin/pkg/stapi/config"
	"github.com/quatton/skintwin/pkg/stauth"
	"github.com/quatton/skintwin/pkg/stlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newService(t *testing.T, rotate bool) (*Service, *clock) {
	t.Helper()
	c := &clock{t: time.Now()}
	cfg := &config.EnvConfig{
		AuthSecret:          "0123456789abcdef0123456789abcdef",
		AccessTokenTTL:      60,
		RefreshTokenTTL:     3600,
		RotateRefreshTokens: rotate,
	}
	svc := NewService(cfg, kv.NewMemoryStore(),
		WithClock(c.now),
		WithBcryptCost(bcrypt.MinCost),
		WithLogger(stlog.Discard()),
	)
	return svc, c
}

func register(t *testing.T, svc *Service, username, email string) *User {
	t.Helper()
	u, err := svc.Register(context.Background(), Registration{
		Username:        username,
		Email:           email,
		Password:        "correct horse",
		PasswordConfirm: "correct horse",
	})
	require.NoError(t, err)
	return u
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, _ := newService(t, false)
	ctx := context.Background()
	u := register(t, svc, "alice", "alice@example.com")

	byName, err := svc.Authenticate(ctx, "ALICE", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	byEmail, err := svc.Authenticate(ctx, "alice@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = svc.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterDerivesUsername(t *testing.T) {
	svc, _ := newService(t, false)
	first := register(t, svc, "", "bob@example.com")
	second := register(t, svc, "", "bob@other.example")

	assert.Equal(t, "bob", first.Username)
	assert.Equal(t, "bob1", second.Username)
}

func TestRegisterDuplicates(t *testing.T) {
	svc, _ := newService(t, false)
	ctx := context.Background()
	register(t, svc, "carol", "carol@example.com")

	_, err := svc.Register(ctx, Registration{
		Username: "Carol", Email: "new@example.com",
		Password: "password1", PasswordConfirm: "password1",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Duplicate)
	assert.Contains(t, verr.Fields, "username")

	_, err = svc.Register(ctx, Registration{
		Username: "other", Email: "CAROL@example.com",
		Password: "password1", PasswordConfirm: "password1",
	})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")

	// the email reserved by the failed username attempt was released
	register(t, svc, "dave", "new@example.com")
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newService(t, false)

	_, err := svc.Register(context.Background(), Registration{
		Email: "not-an-email", Password: "short", PasswordConfirm: "different",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.False(t, verr.Duplicate)
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "password")
	assert.Contains(t, verr.Fields, "password_confirm")
}

func TestIssueAndAuthorize(t *testing.T) {
	svc, c := newService(t, false)
	ctx := context.Background()
	u := register(t, svc, "erin", "erin@example.com")

	pair, err := svc.IssueTokens(u)
	require.NoError(t, err)

	claims, ok := stauth.Decode(pair.Access)
	require.True(t, ok)
	assert.Equal(t, u.ID, claims.Subject)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)

	got, err := svc.Authorize(ctx, pair.Access)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authorize(ctx, pair.Refresh)
	assert.ErrorIs(t, err, ErrInvalidToken, "refresh tokens do not authorize requests")

	c.t = c.t.Add(2 * time.Minute)
	_, err = svc.Authorize(ctx, pair.Access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshWithoutRotation(t *testing.T) {
	svc, c := newService(t, false)
	ctx := context.Background()
	u := register(t, svc, "frank", "frank@example.com")
	pair, err := svc.IssueTokens(u)
	require.NoError(t, err)

	c.t = c.t.Add(2 * time.Minute)
	next, err := svc.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	assert.Empty(t, next.Refresh)

	_, err = svc.Authorize(ctx, next.Access)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.Refresh)
	require.NoError(t, err, "refresh token stays usable")
}

func TestRefreshWithRotation(t *testing.T) {
	svc, _ := newService(t, true)
	ctx := context.Background()
	u := register(t, svc, "gina", "gina@example.com")
	pair, err := svc.IssueTokens(u)
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	require.NotEmpty(t, next.Refresh)

	_, err = svc.Refresh(ctx, pair.Refresh)
	assert.ErrorIs(t, err, ErrRevokedToken)

	_, err = svc.Refresh(ctx, next.Refresh)
	assert.NoError(t, err)
}

func TestLogoutRevokesRefresh(t *testing.T) {
	svc, _ := newService(t, false)
	ctx := context.Background()
	u := register(t, svc, "hank", "hank@example.com")
	other := register(t, svc, "ivy", "ivy@example.com")
	pair, err := svc.IssueTokens(u)
	require.NoError(t, err)

	err = svc.Logout(ctx, other, pair.Refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, svc.Logout(ctx, u, pair.Refresh))

	_, err = svc.Refresh(ctx, pair.Refresh)
	assert.ErrorIs(t, err, ErrRevokedToken)
}

func TestRefreshRejectsGarbage(t *testing.T) {
	svc, _ := newService(t, false)

	_, err := svc.Refresh(context.Background(), "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
