package common

import "context"

type ctxKey string

const staffIDKey ctxKey = "auth/staff-id"

// WithUserID stores the authenticated staff identifier on the context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, staffIDKey, id)
}

// UserID returns the staff identifier placed on the context during
// authentication, if any.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(staffIDKey).(string)
	return id, ok
}
