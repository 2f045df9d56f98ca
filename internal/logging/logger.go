// Package logging is the structured logger every newsnexus component takes.
// The daemon backs it with slog (see NewJSONLogger); tests pass Nop.
package logging

import "context"

// Logger takes a message plus alternating key/value attributes:
//
//	log.Info(ctx, "post published", "post_id", id, "platform", platform)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With binds attributes to every record of the returned logger.
	With(args ...any) Logger
}

// Nop discards all records.
type Nop struct{}

func (Nop) Debug(context.Context, string, ...any) {}
func (Nop) Info(context.Context, string, ...any)  {}
func (Nop) Warn(context.Context, string, ...any)  {}
func (Nop) Error(context.Context, string, ...any) {}
func (n Nop) With(...any) Logger                  { return n }
