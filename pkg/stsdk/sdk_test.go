package stsdk_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/quatton/skintwin/pkg/kv"
	"github.com/quatton/skintwin/pkg/stapi"
	"github.com/quatton/skintwin/pkg/stapi/config"
	"github.com/quatton/skintwin/pkg/stapi/routes"
	"github.com/quatton/skintwin/pkg/stapi/services"
	"github.com/quatton/skintwin/pkg/stapi/services/accounts"
	"github.com/quatton/skintwin/pkg/stauth"
	"github.com/quatton/skintwin/pkg/stlog"
	"github.com/quatton/skintwin/pkg/stsdk"
	"github.com/quatton/skintwin/pkg/stsdk/sterr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const authSecret = "0123456789abcdef0123456789abcdef"

type harness struct {
	srv     *httptest.Server
	sdk     *stsdk.Sdk
	store   *stsdk.Store
	baseURL string
}

func newHarness(t *testing.T, rotate bool) *harness {
	t.Helper()
	cfg := &config.EnvConfig{
		AuthSecret:          authSecret,
		AccessTokenTTL:      300,
		RefreshTokenTTL:     3600,
		RotateRefreshTokens: rotate,
	}
	svcs := services.NewServicesWithStore(cfg, kv.NewMemoryStore(),
		accounts.WithBcryptCost(bcrypt.MinCost),
		accounts.WithLogger(stlog.Discard()),
	)
	api := stapi.NewApi(stapi.WithoutRequestLog())
	routes.RegisterAPI(api.Api, svcs)
	srv := httptest.NewServer(api.Router)
	t.Cleanup(srv.Close)

	baseURL := srv.URL + "/api"
	backend := stsdk.NewKVBackend(kv.NewMemoryStore(), baseURL)

	return &harness{
		srv:     srv,
		sdk:     stsdk.New(baseURL, stsdk.WithBackend(backend), stsdk.WithTimeout(5*time.Second)),
		store:   stsdk.NewStore(backend, nil),
		baseURL: baseURL,
	}
}

func (h *harness) register(t *testing.T, username string) *stsdk.AuthResult {
	t.Helper()
	res, err := h.sdk.Register(context.Background(), stsdk.RegisterRequest{
		Username:        username,
		Email:           username + "@example.com",
		Password:        "correct horse",
		PasswordConfirm: "correct horse",
	})
	require.NoError(t, err)
	return res
}

// expiredAccess signs an access token for subject that expired a minute ago.
func expiredAccess(t *testing.T, subject string) string {
	t.Helper()
	past := time.Now().Add(-10 * time.Minute)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, stauth.ToMapClaims(&stauth.Claims{
		Subject:   subject,
		TokenType: accounts.TokenTypeAccess,
		ID:        "expired",
		Iat:       past.Unix(),
		Exp:       past.Add(9 * time.Minute).Unix(),
	})).SignedString([]byte(authSecret))
	require.NoError(t, err)
	return tok
}

func TestSdk_FreshLogin(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	reg := h.register(t, "alice")
	require.NoError(t, h.sdk.Logout(ctx))

	res, err := h.sdk.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "alice", res.User.Username)

	creds := h.sdk.Credentials(ctx)
	assert.Equal(t, res.Tokens.Access, creds.Access)
	assert.Equal(t, res.Tokens.Refresh, creds.Refresh)
	assert.True(t, h.sdk.IsStrictlyValid(ctx))
	assert.False(t, h.sdk.IsSoftlyValid(ctx), "a 300s token is inside the grace window")

	subject, ok := h.sdk.SubjectID(ctx)
	require.True(t, ok)
	assert.Equal(t, string(reg.User.ID), subject)

	profile, err := h.sdk.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", profile.Email)
}

func TestSdk_ExpiredAccessIsRenewed(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	reg := h.register(t, "bob")

	stale := expiredAccess(t, string(reg.User.ID))
	require.NoError(t, h.store.Set(ctx, stsdk.Credentials{Access: stale, Refresh: reg.Tokens.Refresh}))
	assert.False(t, h.sdk.IsStrictlyValid(ctx))

	profile, err := h.sdk.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bob", profile.Username)

	creds := h.sdk.Credentials(ctx)
	assert.NotEqual(t, stale, creds.Access)
	assert.Equal(t, reg.Tokens.Refresh, creds.Refresh)
	assert.True(t, h.sdk.IsStrictlyValid(ctx))
}

func TestSdk_ExpiredAccessInvalidRefresh(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	reg := h.register(t, "carol")

	broken := stsdk.Credentials{Access: expiredAccess(t, string(reg.User.ID)), Refresh: "not-a-refresh-token"}
	require.NoError(t, h.store.Set(ctx, broken))

	_, err := h.sdk.Profile(ctx)
	require.Error(t, err)
	assert.True(t, sterr.IsCode(err, sterr.CodeUnauthorized), "got %v", err)

	assert.Equal(t, broken, h.sdk.Credentials(ctx), "a failed renewal leaves the session alone")
}

func TestSdk_LogoutClearsWhenServerUnreachable(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	h.register(t, "dave")

	h.srv.Close()

	require.NoError(t, h.sdk.Logout(ctx))
	assert.Equal(t, stsdk.Credentials{}, h.sdk.Credentials(ctx))
	assert.False(t, h.sdk.IsStrictlyValid(ctx))

	require.NoError(t, h.sdk.Logout(ctx), "logout is idempotent")
}

func TestSdk_LogoutRevokesRefreshToken(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	reg := h.register(t, "erin")

	require.NoError(t, h.sdk.Logout(ctx))

	require.NoError(t, h.store.Set(ctx, stsdk.Credentials{
		Access:  expiredAccess(t, string(reg.User.ID)),
		Refresh: reg.Tokens.Refresh,
	}))
	err := h.sdk.Refresh(ctx)
	assert.True(t, sterr.IsCode(err, sterr.CodeRefreshFailed), "got %v", err)
}

func TestSdk_LoginRejected(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	h.register(t, "frank")
	require.NoError(t, h.sdk.Logout(ctx))

	_, err := h.sdk.Login(ctx, "frank", "wrong password")
	assert.True(t, sterr.IsCode(err, sterr.CodeInvalidCredentials), "got %v", err)
	assert.Equal(t, stsdk.Credentials{}, h.sdk.Credentials(ctx))
}

func TestSdk_RegisterErrors(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	h.register(t, "gina")

	_, err := h.sdk.Register(ctx, stsdk.RegisterRequest{
		Username: "gina", Email: "other@example.com",
		Password: "correct horse", PasswordConfirm: "correct horse",
	})
	assert.True(t, sterr.IsCode(err, sterr.CodeDuplicateIdentity), "got %v", err)
	assert.Contains(t, sterr.FieldsOf(err), "username")

	_, err = h.sdk.Register(ctx, stsdk.RegisterRequest{
		Username: "hank", Email: "hank@example.com",
		Password: "correct horse", PasswordConfirm: "different",
	})
	assert.True(t, sterr.IsCode(err, sterr.CodeValidation), "got %v", err)
	assert.Contains(t, sterr.FieldsOf(err), "password_confirm")
}

func TestSdk_ExplicitRefreshWithRotation(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	reg := h.register(t, "ivy")

	require.NoError(t, h.sdk.Refresh(ctx))

	creds := h.sdk.Credentials(ctx)
	assert.NotEqual(t, reg.Tokens.Refresh, creds.Refresh)
	assert.NotEmpty(t, creds.Access)

	_, err := h.sdk.Profile(ctx)
	assert.NoError(t, err)
}

func TestSdk_RefreshWithoutSession(t *testing.T) {
	h := newHarness(t, false)

	err := h.sdk.Refresh(context.Background())
	assert.True(t, sterr.IsCode(err, sterr.CodeUnauthorized), "got %v", err)
}

func TestSdk_NetworkFailure(t *testing.T) {
	h := newHarness(t, false)
	h.srv.Close()

	_, err := h.sdk.Login(context.Background(), "nobody", "secret")
	assert.True(t, sterr.IsCode(err, sterr.CodeNetwork), "got %v", err)
}

func TestSdk_HTTPClientCarriesSession(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	reg := h.register(t, "jack")
	require.NoError(t, h.store.Set(ctx, stsdk.Credentials{
		Access:  expiredAccess(t, string(reg.User.ID)),
		Refresh: reg.Tokens.Refresh,
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+stsdk.ProfilePath, nil)
	require.NoError(t, err)
	resp, err := h.sdk.HTTPClient().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSdk_Status(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	assert.False(t, h.sdk.Status(ctx).LoggedIn)

	reg := h.register(t, "kate")
	st := h.sdk.Status(ctx)
	assert.True(t, st.LoggedIn)
	assert.True(t, st.StrictlyValid)
	assert.Equal(t, string(reg.User.ID), st.Subject)
	assert.WithinDuration(t, time.Now().Add(300*time.Second), st.ExpiresAt, 5*time.Second)
}

func TestSdk_MalformedStoredTokenIsInvalid(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	require.NoError(t, h.store.Set(ctx, stsdk.Credentials{Access: "not-a-token", Refresh: "r"}))

	assert.False(t, h.sdk.IsStrictlyValid(ctx))
	assert.False(t, h.sdk.IsSoftlyValid(ctx))
	_, ok := h.sdk.SubjectID(ctx)
	assert.False(t, ok)
	assert.Empty(t, h.sdk.Status(ctx).Subject)
}
