// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/mattn/go-sqlite3"
)

// RetryBaseDelay controls the base duration for exponential backoff when
// the database is locked by another writer. Tests override this to avoid
// real sleeps.
var RetryBaseDelay = 50 * time.Millisecond

// IsBusy reports whether err is SQLite reporting a locked database.
func IsBusy(err error) bool {
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) {
		return sqlErr.Code == sqlite3.ErrBusy || sqlErr.Code == sqlite3.ErrLocked
	}
	return false
}

// withBusyRetry runs op and retries it while it fails with a busy error.
// The delay starts at RetryBaseDelay and doubles each attempt. If the
// context is cancelled during a backoff wait the function returns
// ctx.Err(). After maxRetries retries the last error is returned.
func withBusyRetry(ctx context.Context, maxRetries int, op func() error) error {
	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil || !IsBusy(err) || attempt >= maxRetries {
			return err
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}
