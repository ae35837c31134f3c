// Package session holds per-caller key/value state that lives as long as the
// caller's session. It backs the ephemeral OTP storage mode.
package session

import (
	"context"
	"errors"
)

var ErrKeyNotFound = errors.New("session key not found")

// Session is the key/value space of one caller session.
type Session interface {
	ID() string
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// CompareAndDelete removes key only while it still holds expected and
	// reports whether this call removed it.
	CompareAndDelete(ctx context.Context, key string, expected []byte) (bool, error)
}

// Store opens sessions by id.
type Store interface {
	Open(ctx context.Context, id string) (Session, error)
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session attached by NewContext, if any.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok && s != nil
}
