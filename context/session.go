package context

import (
	"context"

	"github.com/rahul4469/photo-studio/internal/ui"
)

type contextkey string

const (
	sessionKey contextkey = "studio_session"
)

// ContextSetSession binds the browser's studio session to ctx.
func ContextSetSession(ctx context.Context, s *ui.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// ContextGetSession returns the studio session, or nil when the session
// middleware did not run.
func ContextGetSession(ctx context.Context) *ui.Session {
	s, ok := ctx.Value(sessionKey).(*ui.Session)
	if !ok {
		return nil
	}
	return s
}
