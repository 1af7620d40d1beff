package device

import (
	"context"
	"time"
)

type contextKey int

const (
	MetaKey contextKey = iota
	ConnTimerKey
)

// GetMeta extracts the device metadata from a device context.
// Returns nil if the context doesn't contain device metadata.
func GetMeta(ctx context.Context) *Meta {
	if meta, ok := ctx.Value(MetaKey).(*Meta); ok {
		return meta
	}
	return nil
}

// GetConnTimer extracts the connection timer from a device context.
// Returns nil if the context doesn't contain the timer.
func GetConnTimer(ctx context.Context) *time.Timer {
	if timer, ok := ctx.Value(ConnTimerKey).(*time.Timer); ok {
		return timer
	}
	return nil
}
