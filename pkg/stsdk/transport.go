package stsdk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quatton/skintwin/pkg/stlog"
	"golang.org/x/sync/singleflight"
)

const (
	LoginPath    = "/users/login/"
	RegisterPath = "/users/register/"
	LogoutPath   = "/users/logout/"
	RefreshPath  = "/token/refresh/"
	ProfilePath  = "/users/profile/"

	DefaultTimeout = 30 * time.Second
)

// DefaultExemptPaths never trigger recovery: a rejected login must read as
// bad credentials and a rejected renewal as an expired session.
var DefaultExemptPaths = []string{RefreshPath, LoginPath}

// Transport attaches the stored access token to every outgoing request and,
// when the server answers 401, renews the access token and re-sends the
// request once.
//
// Concurrent 401s for the same session share one renewal call unless
// coalescing is disabled with WithoutRenewalCoalescing.
type Transport struct {
	base         http.RoundTripper
	store        *Store
	renewer      Renewer
	exempt       []string
	coalesce     bool
	renewTimeout time.Duration
	logger       *stlog.Logger

	renewals singleflight.Group
}

type TransportOption func(*Transport)

// WithBase sets the RoundTripper used for the actual network exchange.
func WithBase(rt http.RoundTripper) TransportOption {
	return func(t *Transport) {
		if rt != nil {
			t.base = rt
		}
	}
}

// WithExemptPaths replaces the path fragments excluded from recovery.
func WithExemptPaths(paths ...string) TransportOption {
	return func(t *Transport) {
		t.exempt = append([]string(nil), paths...)
	}
}

// WithoutRenewalCoalescing makes every failing request renew on its own.
func WithoutRenewalCoalescing() TransportOption {
	return func(t *Transport) {
		t.coalesce = false
	}
}

// WithRenewTimeout bounds a shared renewal call.
func WithRenewTimeout(d time.Duration) TransportOption {
	return func(t *Transport) {
		if d > 0 {
			t.renewTimeout = d
		}
	}
}

func WithTransportLogger(logger *stlog.Logger) TransportOption {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func NewTransport(store *Store, renewer Renewer, opts ...TransportOption) *Transport {
	t := &Transport{
		base:         http.DefaultTransport,
		store:        store,
		renewer:      renewer,
		exempt:       DefaultExemptPaths,
		coalesce:     true,
		renewTimeout: DefaultTimeout,
		logger:       stlog.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	recoverable := RecoveryStateFrom(ctx) == RecoveryNotAttempted && !t.isExempt(req)

	if recoverable && req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		buffered, err := bufferBody(req)
		if err != nil {
			return nil, err
		}
		req = buffered
	}

	sent := t.store.Get(ctx).Access
	resp, err := t.send(req, sent)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || !recoverable {
		return resp, err
	}

	logger := t.logger.With("method", req.Method, "path", req.URL.Path)

	access, ok := t.retryToken(ctx, sent, logger)
	if !ok {
		return resp, nil
	}

	retry := req.Clone(WithRecoveryState(ctx, RecoveryAttempted))
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			logger.Warn("cannot replay request body", "error", err)
			return resp, nil
		}
		retry.Body = body
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	logger.Debug("retrying request with renewed token")
	return t.send(retry, access)
}

// send transmits a copy of req carrying the given access token.
func (t *Transport) send(req *http.Request, access string) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.Body = req.Body
	if access != "" {
		out.Header.Set("Authorization", "Bearer "+access)
	}
	return t.base.RoundTrip(out)
}

// retryToken returns the access token a failed request should be retried with.
// It is false when no retry should happen and the original failure stands.
func (t *Transport) retryToken(ctx context.Context, sent string, logger *stlog.Logger) (string, bool) {
	refresh := t.store.Get(ctx).Refresh
	if refresh == "" {
		logger.Debug("no refresh token, not renewing")
		return "", false
	}

	access, err := t.renew(ctx, refresh, sent)
	if err != nil {
		logger.Warn("token renewal failed, keeping session", "error", err)
		return "", false
	}
	return access, true
}

// renew obtains a fresh access token for the session identified by refresh.
// With coalescing on, callers share one in-flight renewal, and a request
// that was rejected with a token some earlier renewal already replaced is
// retried with the stored token instead of renewing again.
func (t *Transport) renew(ctx context.Context, refresh, sent string) (string, error) {
	if !t.coalesce {
		return t.renewOnce(ctx, refresh)
	}

	ch := t.renewals.DoChan(refresh, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.renewTimeout)
		defer cancel()

		if cur := t.store.Get(rctx); cur.Refresh == refresh && cur.Access != "" && cur.Access != sent {
			t.logger.Debug("access token already renewed")
			return cur.Access, nil
		}
		return t.renewOnce(rctx, refresh)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (t *Transport) renewOnce(ctx context.Context, refresh string) (string, error) {
	t.logger.Debug("renewing access token")
	r, err := t.renewer.Renew(ctx, refresh)
	if err != nil {
		return "", err
	}
	if r.Access == "" {
		return "", errEmptyRenewal
	}
	if err := t.store.CompareAndSwap(ctx, refresh, Credentials{Access: r.Access, Refresh: r.Refresh}); err != nil {
		return "", fmt.Errorf("storing renewed token: %w", err)
	}
	return r.Access, nil
}

func (t *Transport) isExempt(req *http.Request) bool {
	for _, p := range t.exempt {
		if p != "" && strings.Contains(req.URL.Path, p) {
			return true
		}
	}
	return false
}

// bufferBody reads a one-shot body into memory so it can be sent twice.
func bufferBody(req *http.Request) (*http.Request, error) {
	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("buffering request body: %w", err)
	}

	out := req.Clone(req.Context())
	out.Body = io.NopCloser(bytes.NewReader(data))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	out.ContentLength = int64(len(data))
	return out, nil
}
