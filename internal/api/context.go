package api

import (
	"context"
	"errors"
)

// actorContextKey is the context key for the authenticated actor id.
type actorContextKey struct{}

// ErrNoActorInContext indicates no actor was found in the context.
var ErrNoActorInContext = errors.New("no actor in context")

// WithActor returns a new context with the actor attached.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from the context.
// Returns ErrNoActorInContext if not present or empty.
func ActorFromContext(ctx context.Context) (string, error) {
	actor, ok := ctx.Value(actorContextKey{}).(string)
	if !ok || actor == "" {
		return "", ErrNoActorInContext
	}
	return actor, nil
}

// MustActorFromContext extracts the actor or panics.
// Use only when middleware guarantees actor presence.
func MustActorFromContext(ctx context.Context) string {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		panic("actor not in context: middleware misconfiguration")
	}
	return actor
}
