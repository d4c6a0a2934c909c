package integration

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Retry runs an operation with exponential back-off
type Retry struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *zap.SugaredLogger
}

// Do executes fn until it succeeds, the attempts run out or ctx is done
func (r Retry) Do(ctx context.Context, operationName string, fn func() error) error {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := r.BaseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		r.Logger.Warnf("%s failed (attempt %d/%d): %v, retrying in %v",
			operationName, attempt, attempts, lastErr, delay)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", operationName, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, attempts, lastErr)
}
