package db

import (
	"context"
	"errors"
	"time"

	"marketplace_system/internal/domain"
)

// WithStatementTimeout bounds a single database statement. Statement
// deadlines are kept shorter than the request deadline so a slow query
// surfaces as a typed timeout instead of hanging until the outer limit.
func WithStatementTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// MapError translates a context deadline into the typed timeout error so
// callers can tell "try again" apart from a business rejection.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTimeout
	}
	return err
}
