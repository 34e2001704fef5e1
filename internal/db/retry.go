package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

// RetryPolicy bounds connection establishment. Retries apply only to
// the initial connect; once connected, no operation is retried.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetry matches the historical watcher behavior: three attempts,
// two seconds apart.
var DefaultRetry = RetryPolicy{MaxAttempts: 3, Delay: 2 * time.Second}

// Connect opens a fresh connection to the destination, retrying up to
// MaxAttempts with a fixed delay between attempts. The caller owns the
// returned connection and must close it on every exit path.
func (p RetryPolicy) Connect(ctx context.Context, cfg ConnectionConfig) (*pgx.Conn, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err := pgx.Connect(ctx, cfg.URL())
		if err == nil {
			return conn, nil
		}
		lastErr = err
		slog.Warn("destination connect failed",
			"connection", cfg.Name,
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err,
		)
		if attempt == attempts {
			break
		}
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("connect to %s after %d attempts: %w", cfg.Name, attempts, lastErr)
}
