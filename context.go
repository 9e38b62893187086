package bastion

import "context"

type contextKey int

const ctxKeyActor contextKey = iota

// WithActor returns a context carrying the ID of the user performing a
// configuration change. Mutations record it in the audit log.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ctxKeyActor, actorID)
}

// actorFromContext returns the acting user ID, or "system" when the
// context carries none (startup configuration, scheduled jobs).
func actorFromContext(ctx context.Context) string {
	v, ok := ctx.Value(ctxKeyActor).(string)
	if !ok || v == "" {
		return "system"
	}
	return v
}
