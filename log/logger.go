// Package log gives embedders a structured logging seam. The library's
// own packages log through zerolog directly; this interface exists so a
// host application can route those events into its own stack.
package log

import "context"

// Logger is the structured logging contract the demo server and
// embedders program against.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]any)
	Info(ctx context.Context, msg string, fields ...map[string]any)
	Warn(ctx context.Context, msg string, fields ...map[string]any)
	Error(ctx context.Context, msg string, err error, fields ...map[string]any)
	// With returns a logger carrying additional structured fields.
	With(fields map[string]any) Logger
}
