// Package lock serialises mutations per account.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/bahi_khata/internal/apperrors"
)

// ErrNotAcquired is returned by a single attempt that ran out of wait time.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker hands out exclusive locks by key.
type Locker interface {
	// Acquire waits at most wait for key. On success the returned func
	// releases the lock; calling it more than once is harmless.
	Acquire(ctx context.Context, key string, wait time.Duration) (func(), error)
}

// RetryPolicy bounds how long a caller waits for a lock in total.
type RetryPolicy struct {
	Wait    time.Duration
	Retries int
	Backoff time.Duration
}

// AcquireWithRetry tries Acquire, then retries with exponential backoff.
// Running out of attempts yields apperrors.ErrConcurrencyTimeout.
func AcquireWithRetry(ctx context.Context, l Locker, key string, p RetryPolicy) (func(), error) {
	backoff := p.Backoff
	for attempt := 0; ; attempt++ {
		release, err := l.Acquire(ctx, key, p.Wait)
		if err == nil {
			return release, nil
		}
		if !errors.Is(err, ErrNotAcquired) {
			return nil, err
		}
		if attempt >= p.Retries {
			return nil, fmt.Errorf("%w: %s after %d attempts", apperrors.ErrConcurrencyTimeout, key, attempt+1)
		}
		if err := sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
