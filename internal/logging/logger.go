// Package logging is the structured logger every component receives. The
// only implementation wraps log/slog.
package logging

import "context"

// Logger takes a message plus alternating key/value pairs:
//
//	log.Warn(ctx, "remote actor fetch failed", "url", actorURL, "error", err)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that adds args to every record,
	// typically With("module", name).
	With(args ...any) Logger
}
