// Package logging defines the structured-logging interface shared by
// the services, sync engine, and printer. Two implementations are
// provided: SlogLogger over log/slog and ZapLogger over zap; the
// backend is picked at startup from the "log_backend" config field.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key-value pairs, e.g.:
//
//	log.Info(ctx, "sync pass finished", "acked", n, "collector", id)
type Logger interface {
	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning for unusual but non-fatal conditions, such as
	// a retryable upload failure or a dropped printer link.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs a failure.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given
	// key-value pairs.
	With(args ...any) Logger
}
