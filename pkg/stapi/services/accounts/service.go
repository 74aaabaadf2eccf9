// Package accounts implements the account and token logic of the
// development API: password login, registration, access/refresh token
// issuing and refresh-token revocation.
package accounts

import (
	"time"

	"github.com/quatton/skintwin/pkg/kv"
	"github.com/quatton/skintwin/pkg/stapi/config"
	"github.com/quatton/skintwin/pkg/stlog"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	kv         kv.Store
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	rotate     bool
	bcryptCost int
	dummyHash  []byte
	logger     *stlog.Logger
	now        func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now for token timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithBcryptCost sets the password hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

func WithLogger(logger *stlog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(cfg *config.EnvConfig, store kv.Store, opts ...Option) *Service {
	s := &Service{
		kv:         store,
		jwtSecret:  []byte(cfg.AuthSecret),
		accessTTL:  time.Duration(cfg.AccessTokenTTL) * time.Second,
		refreshTTL: time.Duration(cfg.RefreshTokenTTL) * time.Second,
		rotate:     cfg.RotateRefreshTokens,
		bcryptCost: bcrypt.DefaultCost,
		logger:     stlog.NewDefault(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.bcryptCost)
	return s
}

func (s *Service) AccessTokenTTL() time.Duration {
	return s.accessTTL
}
