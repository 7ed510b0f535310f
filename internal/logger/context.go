package logger

import (
	"context"

	"go.uber.org/zap"
)

// loggerContextKey is a private type for the context key
// so that no other package can collide with it.
type loggerContextKey struct{}

// ToContext returns a copy of the parent context carrying the provided logger.
func ToContext(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, l)
}

// FromContext extracts the logger stored in the context.
// If the context carries no logger, the global one is returned.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if l, ok := ctx.Value(loggerContextKey{}).(*zap.SugaredLogger); ok {
		return l
	}

	return global
}

// WithName returns a copy of the parent context
// whose logger adds the given name segment to its name path.
// Commands call it once on startup so every message is attributed to them.
func WithName(ctx context.Context, name string) context.Context {
	return ToContext(ctx, FromContext(ctx).Named(name))
}

// WithKV returns a copy of the parent context
// whose logger attaches the given key-value pair to every message.
func WithKV(ctx context.Context, key string, value any) context.Context {
	return ToContext(ctx, FromContext(ctx).With(key, value))
}
