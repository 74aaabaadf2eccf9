// Package stauth reads SkinTwin access tokens on the client side.
//
// Tokens are decoded WITHOUT signature verification. The values are meant for
// UX gating only (route guards, "who am I", pre-emptive renewal); the API
// re-authorizes every request on its own.
package stauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken marks a token whose claims segment cannot be read.
var ErrMalformedToken = errors.New("malformed token")

// Claims is the subset of the token payload the client cares about.
type Claims struct {
	Subject   string
	TokenType string
	ID        string
	Iat       int64
	Exp       int64
}

// subjectKeys are tried in order; the API issues user_id, older tokens
// carried id.
var subjectKeys = []string{"user_id", "id", "sub"}

// ParseClaims extracts raw claims from the middle segment of a JWT. Neither
// the header nor the signature is looked at. Numeric values come back as
// float64.
func ParseClaims(tokenStr string) (jwt.MapClaims, error) {
	if tokenStr == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformedToken)
	}
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedToken, len(parts))
	}

	payload, err := jwt.NewParser().DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
	var claims jwt.MapClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
	if claims == nil {
		return nil, fmt.Errorf("%w: empty claims", ErrMalformedToken)
	}
	return claims, nil
}

// Decode reads the claims of tokenStr. The boolean is false when the token is
// missing or malformed; callers must then treat the token as invalid.
func Decode(tokenStr string) (c *Claims, ok bool) {
	defer func() {
		if recover() != nil {
			c, ok = nil, false
		}
	}()

	mc, err := ParseClaims(tokenStr)
	if err != nil {
		return nil, false
	}
	return FromMapClaims(mc), true
}

// FromMapClaims maps raw claims into Claims, tolerating string and numeric
// forms of identifiers and timestamps.
func FromMapClaims(mc jwt.MapClaims) *Claims {
	c := &Claims{}

	for _, key := range subjectKeys {
		if s, ok := stringClaim(mc[key]); ok && s != "" {
			c.Subject = s
			break
		}
	}

	if tt, ok := mc["token_type"].(string); ok {
		c.TokenType = tt
	}
	if jti, ok := mc["jti"].(string); ok {
		c.ID = jti
	}

	c.Iat, _ = intClaim(mc["iat"])
	c.Exp, _ = intClaim(mc["exp"])

	return c
}

// ToMapClaims converts Claims into jwt.MapClaims suitable for signing.
// Empty fields are omitted.
func ToMapClaims(c *Claims) jwt.MapClaims {
	mc := jwt.MapClaims{}
	if c.Subject != "" {
		mc["user_id"] = c.Subject
	}
	if c.TokenType != "" {
		mc["token_type"] = c.TokenType
	}
	if c.ID != "" {
		mc["jti"] = c.ID
	}
	if c.Iat != 0 {
		mc["iat"] = c.Iat
	}
	if c.Exp != 0 {
		mc["exp"] = c.Exp
	}
	return mc
}

func stringClaim(v any) (string, bool) {
	switch v := v.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case float64:
		return strconv.FormatInt(int64(v), 10), true
	case json.Number:
		return v.String(), true
	}
	return "", false
}

func intClaim(v any) (int64, bool) {
	switch v := v.(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	}
	return 0, false
}
