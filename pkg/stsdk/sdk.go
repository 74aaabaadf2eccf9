package stsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/quatton/skintwin/pkg/kv"
	"github.com/quatton/skintwin/pkg/stauth"
	"github.com/quatton/skintwin/pkg/stlog"
	"github.com/quatton/skintwin/pkg/stsdk/sterr"
)

// Sdk is the session surface used by commands and other callers. It owns the
// credential store and hands out HTTP clients that authenticate and recover
// from expired access tokens on their own.
type Sdk struct {
	BaseURL string

	store     *Store
	transport *Transport
	public    *resty.Client
	authed    *resty.Client
	timeout   time.Duration
	logger    *stlog.Logger
	now       func() time.Time
	closer    func() error
}

type sdkOptions struct {
	backend       Backend
	base          http.RoundTripper
	logger        *stlog.Logger
	timeout       time.Duration
	now           func() time.Time
	transportOpts []TransportOption
	closer        func() error
}

type Option func(*sdkOptions)

// WithBackend sets where credentials persist. Defaults to the OS keyring.
func WithBackend(b Backend) Option {
	return func(o *sdkOptions) { o.backend = b }
}

// WithRoundTripper sets the network RoundTripper beneath the session layer.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *sdkOptions) { o.base = rt }
}

func WithLogger(logger *stlog.Logger) Option {
	return func(o *sdkOptions) { o.logger = logger }
}

// WithTimeout bounds every call, renewals included.
func WithTimeout(d time.Duration) Option {
	return func(o *sdkOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithClock replaces time.Now for validity judgments.
func WithClock(now func() time.Time) Option {
	return func(o *sdkOptions) { o.now = now }
}

// WithTransportOptions forwards options to the session Transport.
func WithTransportOptions(opts ...TransportOption) Option {
	return func(o *sdkOptions) { o.transportOpts = append(o.transportOpts, opts...) }
}

// New returns an Sdk for the API at baseURL.
func New(baseURL string, opts ...Option) *Sdk {
	o := sdkOptions{
		base:    http.DefaultTransport,
		logger:  stlog.Discard(),
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.backend == nil {
		o.backend = NewKeyringBackend(baseURL)
	}

	store := NewStore(o.backend, o.logger)

	public := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(o.timeout).
		SetTransport(o.base).
		SetHeader("Accept", "application/json")

	tOpts := append([]TransportOption{
		WithBase(o.base),
		WithRenewTimeout(o.timeout),
		WithTransportLogger(o.logger),
	}, o.transportOpts...)
	transport := NewTransport(store, &apiRenewer{client: public}, tOpts...)

	authed := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(o.timeout).
		SetTransport(transport).
		SetHeader("Accept", "application/json")

	return &Sdk{
		BaseURL:   baseURL,
		store:     store,
		transport: transport,
		public:    public,
		authed:    authed,
		timeout:   o.timeout,
		logger:    o.logger,
		now:       o.now,
		closer:    o.closer,
	}
}

// NewSdk builds an Sdk from configuration, opening the configured
// credential backend.
func NewSdk(ctx context.Context, cfg *Config, opts ...Option) (*Sdk, error) {
	var pre []Option
	switch cfg.Store {
	case StoreMemory:
		pre = append(pre, WithBackend(NewKVBackend(kv.NewMemoryStore(), cfg.BaseURL)))
	case StoreValkey:
		store, err := kv.NewValkeyStore(ctx, cfg.Valkey)
		if err != nil {
			return nil, fmt.Errorf("connecting to valkey at %s: %w", cfg.Valkey.Addr, err)
		}
		pre = append(pre, WithBackend(NewKVBackend(store, cfg.BaseURL)), func(o *sdkOptions) {
			o.closer = store.Close
		})
	case StoreKeyring, "":
		pre = append(pre, WithBackend(NewKeyringBackend(cfg.BaseURL)))
	default:
		return nil, fmt.Errorf("unknown credential store %q", cfg.Store)
	}

	pre = append(pre, WithTimeout(cfg.Timeout))
	if !cfg.CoalesceRenewals {
		pre = append(pre, WithTransportOptions(WithoutRenewalCoalescing()))
	}

	return New(cfg.BaseURL, append(pre, opts...)...), nil
}

// Close releases the credential backend.
func (s *Sdk) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer()
}

// Login verifies the credentials with the API and stores the issued tokens.
func (s *Sdk) Login(ctx context.Context, identifier, secret string) (*AuthResult, error) {
	var out AuthResult
	resp, err := s.public.R().
		SetContext(ctx).
		SetBody(loginRequest{Username: identifier, Password: secret}).
		SetResult(&out).
		Post(LoginPath)
	if err != nil {
		return nil, transportError("login", err)
	}
	if resp.IsError() {
		msg, _ := decodeErrorBody(resp.Body())
		if isCredentialRejection(resp.StatusCode()) {
			if msg == "" {
				msg = "invalid credentials"
			}
			return nil, sterr.New(sterr.CodeInvalidCredentials, errors.New(msg))
		}
		return nil, sterr.Newf(sterr.CodeUnknown, "login: unexpected status %d: %s", resp.StatusCode(), msg)
	}

	if err := s.establish(ctx, out.Tokens); err != nil {
		return nil, err
	}
	s.logger.Debug("logged in", "user", out.User.Username)
	return &out, nil
}

// Register creates an account and stores the issued tokens.
func (s *Sdk) Register(ctx context.Context, in RegisterRequest) (*AuthResult, error) {
	var out AuthResult
	resp, err := s.public.R().
		SetContext(ctx).
		SetBody(in).
		SetResult(&out).
		Post(RegisterPath)
	if err != nil {
		return nil, transportError("register", err)
	}
	if resp.IsError() {
		msg, fields := decodeErrorBody(resp.Body())
		switch {
		case resp.StatusCode() == http.StatusConflict || isDuplicate(fields):
			return nil, sterr.WithFields(sterr.CodeDuplicateIdentity, errors.New(msg), fields)
		case resp.StatusCode() == http.StatusBadRequest || resp.StatusCode() == http.StatusUnprocessableEntity:
			return nil, sterr.WithFields(sterr.CodeValidation, errors.New(msg), fields)
		}
		return nil, sterr.Newf(sterr.CodeUnknown, "register: unexpected status %d: %s", resp.StatusCode(), msg)
	}

	if err := s.establish(ctx, out.Tokens); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Sdk) establish(ctx context.Context, t Tokens) error {
	if t.Access == "" || t.Refresh == "" {
		return sterr.Newf(sterr.CodeUnknown, "response carried no tokens")
	}
	if err := s.store.Set(ctx, Credentials{Access: t.Access, Refresh: t.Refresh}); err != nil {
		return sterr.New(sterr.CodeUnknown, err)
	}
	return nil
}

// Logout asks the API to revoke the refresh token, then clears the stored
// session whether or not the API call succeeded.
func (s *Sdk) Logout(ctx context.Context) error {
	if refresh := s.store.Get(ctx).Refresh; refresh != "" {
		resp, err := s.authed.R().
			SetContext(ctx).
			SetBody(refreshRequest{Refresh: refresh}).
			Post(LogoutPath)
		switch {
		case err != nil:
			s.logger.Warn("server-side logout failed", "error", err)
		case resp.IsError():
			s.logger.Warn("server-side logout rejected", "status", resp.StatusCode())
		}
	}

	if err := s.store.Clear(ctx); err != nil {
		return sterr.New(sterr.CodeUnknown, fmt.Errorf("clearing credentials: %w", err))
	}
	return nil
}

// Refresh renews the access token now, sharing any renewal already in
// flight.
func (s *Sdk) Refresh(ctx context.Context) error {
	creds := s.store.Get(ctx)
	if creds.Refresh == "" {
		return sterr.Newf(sterr.CodeUnauthorized, "missing refresh token")
	}
	if _, err := s.transport.renew(ctx, creds.Refresh, creds.Access); err != nil {
		if errors.Is(err, ErrSessionChanged) {
			return sterr.New(sterr.CodeUnauthorized, err)
		}
		return err
	}
	return nil
}

// Profile fetches the current user's profile through the authenticated
// client.
func (s *Sdk) Profile(ctx context.Context) (*User, error) {
	var out User
	resp, err := s.R(ctx).SetResult(&out).Get(ProfilePath)
	if err != nil {
		return nil, transportError("profile", err)
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		return nil, sterr.Newf(sterr.CodeUnauthorized, "session expired, please log in again")
	}
	if resp.IsError() {
		msg, _ := decodeErrorBody(resp.Body())
		return nil, sterr.Newf(sterr.CodeUnknown, "profile: unexpected status %d: %s", resp.StatusCode(), msg)
	}
	return &out, nil
}

// R starts an authenticated request.
func (s *Sdk) R(ctx context.Context) *resty.Request {
	return s.authed.R().SetContext(ctx)
}

// HTTPClient returns a client whose requests carry the session.
func (s *Sdk) HTTPClient() *http.Client {
	return &http.Client{Transport: s.transport, Timeout: s.timeout}
}

// Credentials returns a snapshot of the stored pair.
func (s *Sdk) Credentials(ctx context.Context) Credentials {
	return s.store.Get(ctx)
}

// IsStrictlyValid reports whether both tokens are stored and the access
// token has not expired.
func (s *Sdk) IsStrictlyValid(ctx context.Context) bool {
	c := s.store.Get(ctx)
	return stauth.IsValid(c.Access, c.Refresh, stauth.Strict, s.now())
}

// IsSoftlyValid is IsStrictlyValid with stauth.GraceWindow of margin.
func (s *Sdk) IsSoftlyValid(ctx context.Context) bool {
	c := s.store.Get(ctx)
	return stauth.IsValid(c.Access, c.Refresh, stauth.Soft, s.now())
}

// SubjectID returns the user id claimed by the stored access token.
func (s *Sdk) SubjectID(ctx context.Context) (string, bool) {
	claims, ok := stauth.Decode(s.store.Get(ctx).Access)
	if !ok || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

type Status struct {
	LoggedIn      bool
	Subject       string
	ExpiresAt     time.Time
	StrictlyValid bool
	SoftlyValid   bool
}

// Status summarizes the stored session for display.
func (s *Sdk) Status(ctx context.Context) Status {
	c := s.store.Get(ctx)
	now := s.now()
	st := Status{
		LoggedIn:      c.Access != "" && c.Refresh != "",
		StrictlyValid: stauth.IsValid(c.Access, c.Refresh, stauth.Strict, now),
		SoftlyValid:   stauth.IsValid(c.Access, c.Refresh, stauth.Soft, now),
	}
	if claims, ok := stauth.Decode(c.Access); ok {
		st.Subject = claims.Subject
		if claims.Exp != 0 {
			st.ExpiresAt = time.Unix(claims.Exp, 0)
		}
	}
	return st
}
