package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quatton/skintwin/pkg/kv"
	"golang.org/x/crypto/bcrypt"
)

const (
	kvPrefixUser     = "accounts:user:"
	kvPrefixUsername = "accounts:username:"
	kvPrefixEmail    = "accounts:email:"

	MinPasswordLength = 8
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

// User is the stored account record.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	PasswordHash []byte    `json:"password_hash"`
	DateJoined   time.Time `json:"date_joined"`
}

type Registration struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
	FirstName       string
	LastName        string
}

// ValidationError lists per-field problems with a registration. Duplicate is
// set when the only problems are identities already taken.
type ValidationError struct {
	Fields    map[string][]string
	Duplicate bool
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msgs := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(msgs, " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// validate checks the shape of a registration before any storage lookups.
func (r *Registration) validate() *ValidationError {
	verr := &ValidationError{}
	if _, err := mail.ParseAddress(r.Email); err != nil || !strings.Contains(r.Email, "@") {
		verr.add("email", "Enter a valid email address.")
	}
	if len(r.Password) < MinPasswordLength {
		verr.add("password", fmt.Sprintf("Ensure this field has at least %d characters.", MinPasswordLength))
	}
	if r.Password != r.PasswordConfirm {
		verr.add("password_confirm", "Passwords do not match.")
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// Register creates an account. Usernames and emails are unique, case
// insensitive. An empty username is derived from the email local part.
func (s *Service) Register(ctx context.Context, r Registration) (*User, error) {
	if verr := r.validate(); verr != nil {
		return nil, verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &User{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(r.Username),
		Email:        strings.TrimSpace(r.Email),
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		PasswordHash: hash,
		DateJoined:   s.now().UTC(),
	}

	emailKey := kvPrefixEmail + normalize(user.Email)
	ok, err := s.kv.SetNX(ctx, emailKey, []byte(user.ID), 0)
	if err != nil {
		return nil, fmt.Errorf("reserving email: %w", err)
	}
	if !ok {
		verr := &ValidationError{Duplicate: true}
		verr.add("email", "A user with that email already exists.")
		return nil, verr
	}

	if err := s.reserveUsername(ctx, user); err != nil {
		_ = s.kv.Delete(ctx, emailKey)
		return nil, err
	}

	if err := s.putUser(ctx, user); err != nil {
		_ = s.kv.Delete(ctx, emailKey)
		_ = s.kv.Delete(ctx, kvPrefixUsername+normalize(user.Username))
		return nil, err
	}

	s.logger.Info("registered user", "id", user.ID, "username", user.Username)
	return user, nil
}

func (s *Service) reserveUsername(ctx context.Context, user *User) error {
	if user.Username != "" {
		ok, err := s.kv.SetNX(ctx, kvPrefixUsername+normalize(user.Username), []byte(user.ID), 0)
		if err != nil {
			return fmt.Errorf("reserving username: %w", err)
		}
		if !ok {
			verr := &ValidationError{Duplicate: true}
			verr.add("username", "A user with that username already exists.")
			return verr
		}
		return nil
	}

	base := strings.SplitN(user.Email, "@", 2)[0]
	for i := 0; i < 100; i++ {
		candidate := base
		if i > 0 {
			candidate = fmt.Sprintf("%s%d", base, i)
		}
		ok, err := s.kv.SetNX(ctx, kvPrefixUsername+normalize(candidate), []byte(user.ID), 0)
		if err != nil {
			return fmt.Errorf("reserving username: %w", err)
		}
		if ok {
			user.Username = candidate
			return nil
		}
	}
	return fmt.Errorf("no free username derived from %q", base)
}

// Authenticate checks identifier (username or email) and password.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (*User, error) {
	user, err := s.lookup(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Keep timing similar to a wrong password.
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) lookup(ctx context.Context, identifier string) (*User, error) {
	key := kvPrefixUsername + normalize(identifier)
	if strings.Contains(identifier, "@") {
		key = kvPrefixEmail + normalize(identifier)
	}
	id, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.User(ctx, string(id))
}

// User loads an account by id.
func (s *Service) User(ctx context.Context, id string) (*User, error) {
	data, err := s.kv.Get(ctx, kvPrefixUser+id)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("decoding user %s: %w", id, err)
	}
	return &user, nil
}

func (s *Service) putUser(ctx context.Context, user *User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, kvPrefixUser+user.ID, data, 0)
}
