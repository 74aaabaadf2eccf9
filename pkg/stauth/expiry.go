package stauth

import "time"

// Policy selects how pessimistic a validity judgment is.
type Policy int

const (
	// Strict accepts a token until the second it expires.
	Strict Policy = iota
	// Soft rejects a token that expires within GraceWindow, so a flow is not
	// started on a token that will lapse half-way through.
	Soft
)

// GraceWindow is the margin applied by the Soft policy.
const GraceWindow = 5 * time.Minute

func (p Policy) String() string {
	switch p {
	case Strict:
		return "strict"
	case Soft:
		return "soft"
	}
	return "unknown"
}

// ExpiresAt returns the exp claim of token as a time.
func ExpiresAt(token string) (time.Time, bool) {
	c, ok := Decode(token)
	if !ok || c.Exp == 0 {
		return time.Time{}, false
	}
	return time.Unix(c.Exp, 0), true
}

// IsValid judges a credential pair at instant now. Both tokens must be
// present and the access token must carry a readable exp claim.
func IsValid(access, refresh string, policy Policy, now time.Time) bool {
	if access == "" || refresh == "" {
		return false
	}
	exp, ok := ExpiresAt(access)
	if !ok {
		return false
	}
	switch policy {
	case Strict:
		return exp.After(now)
	case Soft:
		return exp.After(now.Add(GraceWindow))
	}
	return false
}
