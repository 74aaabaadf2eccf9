package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/quatton/skintwin/pkg/kv"
	"github.com/quatton/skintwin/pkg/stauth"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	kvPrefixRevoked = "accounts:revoked:"
)

var (
	ErrInvalidToken = errors.New("token is invalid or expired")
	ErrRevokedToken = errors.New("token has been revoked")
)

type TokenPair struct {
	Access  string
	Refresh string
}

// IssueTokens mints a fresh access/refresh pair for user.
func (s *Service) IssueTokens(user *User) (TokenPair, error) {
	access, err := s.sign(user.ID, TokenTypeAccess, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(user.ID, TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *Service) sign(subject, tokenType string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := stauth.ToMapClaims(&stauth.Claims{
		Subject:   subject,
		TokenType: tokenType,
		ID:        uuid.NewString(),
		Iat:       now.Unix(),
		Exp:       now.Add(ttl).Unix(),
	})
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// verify checks signature, expiry and token type, returning the claims.
func (s *Service) verify(tokenStr, tokenType string) (*stauth.Claims, error) {
	parsed, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims := stauth.FromMapClaims(mc)
	if claims.TokenType != tokenType || claims.Subject == "" {
		return nil, fmt.Errorf("%w: wrong token type %q", ErrInvalidToken, claims.TokenType)
	}
	return claims, nil
}

// Authorize resolves the user behind an access token.
func (s *Service) Authorize(ctx context.Context, access string) (*User, error) {
	claims, err := s.verify(access, TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	user, err := s.User(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

// Refresh exchanges a refresh token for a new access token. With rotation
// enabled a new refresh token is returned too and the old one is revoked.
func (s *Service) Refresh(ctx context.Context, refresh string) (TokenPair, error) {
	claims, err := s.verify(refresh, TokenTypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return TokenPair{}, err
	}

	out := TokenPair{}
	out.Access, err = s.sign(claims.Subject, TokenTypeAccess, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	if !s.rotate {
		return out, nil
	}

	out.Refresh, err = s.sign(claims.Subject, TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.revoke(ctx, claims); err != nil {
		return TokenPair{}, err
	}
	return out, nil
}

// Logout revokes refresh on behalf of user. A token belonging to another user
// is rejected.
func (s *Service) Logout(ctx context.Context, user *User, refresh string) error {
	claims, err := s.verify(refresh, TokenTypeRefresh)
	if err != nil {
		return err
	}
	if claims.Subject != user.ID {
		return fmt.Errorf("%w: token belongs to another user", ErrInvalidToken)
	}
	return s.revoke(ctx, claims)
}

func (s *Service) checkRevoked(ctx context.Context, claims *stauth.Claims) error {
	if claims.ID == "" {
		return nil
	}
	_, err := s.kv.Get(ctx, kvPrefixRevoked+claims.ID)
	switch {
	case err == nil:
		return ErrRevokedToken
	case errors.Is(err, kv.ErrNotFound):
		return nil
	default:
		return err
	}
}

// revoke blacklists a refresh token until it would have expired anyway.
func (s *Service) revoke(ctx context.Context, claims *stauth.Claims) error {
	if claims.ID == "" {
		return nil
	}
	ttl := time.Unix(claims.Exp, 0).Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	ok, err := s.kv.SetNX(ctx, kvPrefixRevoked+claims.ID, []byte(claims.Subject), ttl)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	if !ok {
		return ErrRevokedToken
	}
	return nil
}
