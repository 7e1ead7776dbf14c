// Package lock serializes calendar mutations per accommodation. A process-local keyed mutex
// orders work inside one replica and an advisory Mongo document orders it across replicas.
package lock

import (
	"context"
	"sync"
	"time"

	apperrors "staybook/pkg/errors"
)

// Release gives a held lock back. It is safe to call more than once, from any goroutine.
type Release func()

type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// AccommodationKey is the lock key guarding one accommodation's calendar and requests.
func AccommodationKey(accommodationID string) string {
	return "accommodation:" + accommodationID
}

// Retry runs fn up to attempts times while it fails with a CONFLICT error, sleeping
// backoff*n between attempts. Any other outcome is returned as is.
func Retry(ctx context.Context, attempts int, backoff time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil || !apperrors.HasCode(err, apperrors.CodeConflict) {
			return err
		}
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(backoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}

type chain []Locker

// Chain acquires the lockers in order and releases them in reverse.
func Chain(lockers ...Locker) Locker {
	return chain(lockers)
}

func (c chain) Acquire(ctx context.Context, key string) (Release, error) {
	held := make([]Release, 0, len(c))
	releaseAll := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}

	for _, l := range c {
		release, err := l.Acquire(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		held = append(held, release)
	}
	return once(releaseAll), nil
}

func once(fn func()) Release {
	var o sync.Once
	return func() { o.Do(fn) }
}

// Do runs fn while holding key. Acquisition and fn are retried together while they fail
// with CONFLICT, so a write conflict inside fn also takes the lock again.
func Do(ctx context.Context, locker Locker, key string, attempts int, backoff time.Duration, fn func(ctx context.Context) error) error {
	return Retry(ctx, attempts, backoff, func(ctx context.Context) error {
		release, err := locker.Acquire(ctx, key)
		if err != nil {
			return err
		}
		defer release()
		return fn(ctx)
	})
}
