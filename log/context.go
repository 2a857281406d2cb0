// Package log carries a structured logger on a context.Context: call
// sites fetch their logger with G(ctx) and never configure handlers or
// formatting themselves, that's left to the application embedding this
// library. WithComponent tags the handful of packages that log
// (transport, router, client) so entries can be filtered by where they
// came from without each call site repeating the field.
package log

import (
	"context"

	"github.com/sirupsen/logrus"
)

var (
	// G is an alias for FromContext.
	G = FromContext

	// L is the package-level fallback logger, used whenever a context
	// carries none of its own.
	L = logrus.StandardLogger()
)

type contextKey struct{}

// WithLogger returns a new context carrying logger.
func WithLogger(ctx context.Context, logger *logrus.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger attached to ctx, or L if none is attached.
func FromContext(ctx context.Context) *logrus.Logger {
	l, ok := ctx.Value(contextKey{}).(*logrus.Logger)
	if !ok || l == nil {
		return L
	}

	return l
}

// WithComponent returns ctx's logger pre-tagged with a "component" field,
// collapsing the WithField call every package in this client would
// otherwise repeat at each of its own log call sites (transport, router,
// client).
func WithComponent(ctx context.Context, component string) *logrus.Entry {
	return FromContext(ctx).WithField("component", component)
}
