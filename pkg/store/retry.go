// retry.go provides automatic retry logic for transient SQLite errors.
//
// A foreground `tb timer` saves a snapshot every second while other tb
// invocations read and write the same WAL database. The busy_timeout pragma
// covers SQLITE_BUSY at the connection level; the remaining transient errors
// are retried here with exponential backoff and jitter.
package store

import (
	"math/rand"
	"strings"
	"time"
)

// retryConfig controls retry behavior for transient SQLite errors.
type retryConfig struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	// sleep defaults to time.Sleep; tests swap it out.
	sleep func(time.Duration)
}

// defaultRetryConfig is used for all store write operations.
var defaultRetryConfig = retryConfig{
	maxRetries: 3,
	baseDelay:  50 * time.Millisecond,
	maxDelay:   500 * time.Millisecond,
}

// transientPatterns are substrings of modernc.org/sqlite error messages
// that a retry can resolve.
var transientPatterns = []string{
	"SQLITE_BUSY",
	"SQLITE_LOCKED",
	"IOERR_SHORT_READ",
	"database is locked",
	"database table is locked",
	"(5)",   // SQLITE_BUSY
	"(6)",   // SQLITE_LOCKED
	"(522)", // SQLITE_IOERR_SHORT_READ
}

// isTransientSQLiteErr reports whether err is a transient SQLite error.
func isTransientSQLiteErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// retryOp executes fn with exponential backoff + jitter for transient errors.
// If fn succeeds or returns a non-transient error, it returns immediately.
func retryOp(cfg retryConfig, fn func() error) error {
	sleep := cfg.sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	var lastErr error
	for attempt := 0; attempt <= cfg.maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil || !isTransientSQLiteErr(lastErr) {
			return lastErr
		}
		if attempt < cfg.maxRetries {
			sleep(backoffDelay(cfg, attempt))
		}
	}
	return lastErr
}

// backoffDelay computes the delay for a given retry attempt:
// baseDelay * 2^attempt, capped at maxDelay, plus jitter in [0, baseDelay).
func backoffDelay(cfg retryConfig, attempt int) time.Duration {
	delay := cfg.baseDelay << uint(attempt)
	if delay > cfg.maxDelay || delay <= 0 {
		delay = cfg.maxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(cfg.baseDelay)))
	return delay + jitter
}
