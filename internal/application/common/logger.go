package common

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Context key for passing the run-scoped logger through context.
type contextKey int

const loggerKey contextKey = iota

// WithLogger adds a logger entry to the context.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext extracts the logger from context, falling back to the
// standard logger when none was attached.
func LoggerFromContext(ctx context.Context) *logrus.Entry {
	if logger, ok := ctx.Value(loggerKey).(*logrus.Entry); ok {
		return logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
