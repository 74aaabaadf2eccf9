package stsdk

import (
	"context"
	"errors"
)

// RecoveryState records whether a logical request has already spent its one
// recovery attempt. It travels on the request context so a retried request
// that fails again is returned as-is instead of triggering another renewal.
type RecoveryState int

const (
	RecoveryNotAttempted RecoveryState = iota
	RecoveryAttempted
)

func (s RecoveryState) String() string {
	if s == RecoveryAttempted {
		return "attempted"
	}
	return "not_attempted"
}

type recoveryStateKey struct{}

// WithRecoveryState returns a context carrying st.
func WithRecoveryState(ctx context.Context, st RecoveryState) context.Context {
	return context.WithValue(ctx, recoveryStateKey{}, st)
}

// RecoveryStateFrom returns the state carried by ctx, RecoveryNotAttempted
// when none is set.
func RecoveryStateFrom(ctx context.Context) RecoveryState {
	if st, ok := ctx.Value(recoveryStateKey{}).(RecoveryState); ok {
		return st
	}
	return RecoveryNotAttempted
}

// Renewal is the result of exchanging a refresh token. Refresh is empty when
// the server does not rotate refresh tokens.
type Renewal struct {
	Access  string
	Refresh string
}

// Renewer exchanges a refresh token for a new access token.
type Renewer interface {
	Renew(ctx context.Context, refresh string) (Renewal, error)
}

// RenewerFunc adapts a function to Renewer.
type RenewerFunc func(ctx context.Context, refresh string) (Renewal, error)

func (f RenewerFunc) Renew(ctx context.Context, refresh string) (Renewal, error) {
	return f(ctx, refresh)
}

var errEmptyRenewal = errors.New("renewal returned no access token")
