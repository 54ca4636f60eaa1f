package utils

import (
	"context"
	"errors"
	"time"
)

// DefaultTimeout bounds a single repository call
const DefaultTimeout = 5 * time.Second

// WithTimeout derives a context bounded by DefaultTimeout
func WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, DefaultTimeout)
}

// IsContextError reports whether err comes from cancellation or a deadline
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
