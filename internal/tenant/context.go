// Package tenant carries per-request identity through context: the channel (business) a call
// is scoped to, the acting user, and the request id used in logs.
package tenant

import (
	"context"
	"errors"
)

type contextKey string

const (
	channelCodeKey contextKey = "channelCode"
	requestIDKey   contextKey = "requestID"
	actorKey       contextKey = "actor"
)

// DefaultActor is recorded in audit columns when the caller does not name one.
const DefaultActor = "system"

var (
	ErrChannelCodeNotFound  = errors.New("channel code not found in context")
	ErrNoRequestIDInContext = errors.New("no request ID found in context")
)

// WithChannelCode scopes the context to a channel code.
func WithChannelCode(ctx context.Context, code string) context.Context {
	return context.WithValue(ctx, channelCodeKey, code)
}

// FromContext extracts the channel code from the context.
func FromContext(ctx context.Context) (string, error) {
	code, ok := ctx.Value(channelCodeKey).(string)
	if !ok || code == "" {
		return "", ErrChannelCodeNotFound
	}
	return code, nil
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// FromRequestIDContext extracts the request ID from the context
func FromRequestIDContext(ctx context.Context) (string, error) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	if !ok || requestID == "" {
		return "", ErrNoRequestIDInContext
	}
	return requestID, nil
}

// WithActor records who performs the operation.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the actor, or DefaultActor when none was set.
func ActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey).(string); ok && actor != "" {
		return actor
	}
	return DefaultActor
}

// ResolveActor prefers an explicit actor over the one carried by ctx.
func ResolveActor(ctx context.Context, actor string) string {
	if actor != "" {
		return actor
	}
	return ActorFromContext(ctx)
}
