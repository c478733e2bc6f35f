package auth

import "context"

type contextKey struct{}

// Session identifies an authenticated kiosk operator session.
type Session struct {
	SessionID int64
}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}

// SessionID returns the session id from the context, or 0 when absent.
func SessionID(ctx context.Context) int64 {
	s, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return s.SessionID
}
