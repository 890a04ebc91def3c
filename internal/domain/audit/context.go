package audit

import (
	"context"
	"strings"
)

// DefaultActor labels calls that carry no actor.
const DefaultActor = "Web Client"

type actorKey struct{}

// WithActor attaches the acting user label to ctx.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor set by WithActor, or DefaultActor.
func ActorFromContext(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey{}).(string); ok && strings.TrimSpace(a) != "" {
		return a
	}
	return DefaultActor
}
