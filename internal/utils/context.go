package utils

import (
	"context"
	"time"
)

// SessionData is what the session middleware learns about a request.
type SessionData struct {
	SessionID string
	Admin     bool
	ExpiresAt time.Time
}

type contextKey string

const contextSessionKey contextKey = "session"

func WithSession(ctx context.Context, s SessionData) context.Context {
	return context.WithValue(ctx, contextSessionKey, s)
}

func SessionFromContext(ctx context.Context) (SessionData, bool) {
	s, ok := ctx.Value(contextSessionKey).(SessionData)
	return s, ok
}

// IsAdmin reports whether the request carries a live admin session.
func IsAdmin(ctx context.Context) bool {
	s, ok := SessionFromContext(ctx)
	return ok && s.Admin && s.ExpiresAt.After(time.Now())
}
