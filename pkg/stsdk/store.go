package stsdk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/quatton/skintwin/pkg/kv"
	"github.com/quatton/skintwin/pkg/stlog"
	"github.com/zalando/go-keyring"
)

const (
	keyringService = "skintwin"

	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

var (
	// ErrCredentialNotFound is returned by a Backend for a key it does not hold.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrSessionChanged is returned by CompareAndSwap when the stored refresh
	// token no longer matches the one the renewal was made with.
	ErrSessionChanged = errors.New("session changed during renewal")
)

// Credentials is the access/refresh pair held for one API base URL.
type Credentials struct {
	Access  string
	Refresh string
}

// Backend is a persistence medium for single credential values.
type Backend interface {
	Load(ctx context.Context, key string) (string, error)
	Save(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// normalizeKey converts a baseURL into a stable key name for storage.
// It trims whitespace and trailing slashes and lowercases the result to avoid
// accidental duplicates like https://example.com/ and https://example.com.
func normalizeKey(baseURL string) string {
	s := strings.TrimSpace(baseURL)
	s = strings.TrimRight(s, "/")
	s = strings.ToLower(s)
	return s
}

// KeyringBackend keeps credentials in the OS keyring, one entry per key,
// under the account "<baseURL>#<key>".
type KeyringBackend struct {
	account string
}

func NewKeyringBackend(baseURL string) *KeyringBackend {
	return &KeyringBackend{account: normalizeKey(baseURL)}
}

func (b *KeyringBackend) user(key string) string {
	return b.account + "#" + key
}

func (b *KeyringBackend) Load(_ context.Context, key string) (string, error) {
	v, err := keyring.Get(keyringService, b.user(key))
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrCredentialNotFound
	}
	return v, err
}

func (b *KeyringBackend) Save(_ context.Context, key, value string) error {
	return keyring.Set(keyringService, b.user(key), value)
}

func (b *KeyringBackend) Delete(_ context.Context, key string) error {
	err := keyring.Delete(keyringService, b.user(key))
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// KVBackend keeps credentials in a kv.Store under
// "skintwin:<baseURL>:<key>". Values never expire on their own.
type KVBackend struct {
	store  kv.Store
	prefix string
}

func NewKVBackend(store kv.Store, baseURL string) *KVBackend {
	return &KVBackend{
		store:  store,
		prefix: keyringService + ":" + normalizeKey(baseURL) + ":",
	}
}

func (b *KVBackend) Load(ctx context.Context, key string) (string, error) {
	v, err := b.store.Get(ctx, b.prefix+key)
	if errors.Is(err, kv.ErrNotFound) {
		return "", ErrCredentialNotFound
	}
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (b *KVBackend) Save(ctx context.Context, key, value string) error {
	return b.store.Set(ctx, b.prefix+key, []byte(value), 0)
}

func (b *KVBackend) Delete(ctx context.Context, key string) error {
	return b.store.Delete(ctx, b.prefix+key)
}

// Store is the only owner of persisted credentials. Every read and write is
// serialized, and a write is visible to any Get that starts after it returns.
type Store struct {
	mu      sync.Mutex
	backend Backend
	logger  *stlog.Logger
}

func NewStore(backend Backend, logger *stlog.Logger) *Store {
	if logger == nil {
		logger = stlog.Discard()
	}
	return &Store{backend: backend, logger: logger}
}

// Get returns the stored pair. An unavailable medium reads as empty.
func (s *Store) Get(ctx context.Context) Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(ctx)
}

func (s *Store) get(ctx context.Context) Credentials {
	return Credentials{
		Access:  s.load(ctx, AccessTokenKey),
		Refresh: s.load(ctx, RefreshTokenKey),
	}
}

func (s *Store) load(ctx context.Context, key string) string {
	v, err := s.backend.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCredentialNotFound) {
			s.logger.Debug("credential read failed", "key", key, "error", err)
		}
		return ""
	}
	return v
}

// Set replaces both tokens. If either write fails the pair is removed so a
// half-written session is never observed.
func (s *Store) Set(ctx context.Context, c Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Save(ctx, RefreshTokenKey, c.Refresh); err != nil {
		s.clear(ctx)
		return fmt.Errorf("saving refresh token: %w", err)
	}
	if err := s.backend.Save(ctx, AccessTokenKey, c.Access); err != nil {
		s.clear(ctx)
		return fmt.Errorf("saving access token: %w", err)
	}
	return nil
}

// CompareAndSwap stores renewed credentials, provided the session the
// renewal was made for (identified by its refresh token) is still the stored
// one. An empty next.Refresh keeps the current refresh token.
func (s *Store) CompareAndSwap(ctx context.Context, refresh string, next Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current := s.load(ctx, RefreshTokenKey); current == "" || current != refresh {
		return ErrSessionChanged
	}
	if next.Refresh != "" && next.Refresh != refresh {
		if err := s.backend.Save(ctx, RefreshTokenKey, next.Refresh); err != nil {
			return fmt.Errorf("saving refresh token: %w", err)
		}
	}
	if err := s.backend.Save(ctx, AccessTokenKey, next.Access); err != nil {
		return fmt.Errorf("saving access token: %w", err)
	}
	return nil
}

// Clear removes both tokens. Clearing an empty store is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clear(ctx)
}

func (s *Store) clear(ctx context.Context) error {
	var errs []error
	for _, key := range []string{AccessTokenKey, RefreshTokenKey} {
		if err := s.backend.Delete(ctx, key); err != nil {
			s.logger.Debug("credential delete failed", "key", key, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
