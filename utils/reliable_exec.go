package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UltimateTournament/backoff/v4"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
)

// ReliableExec acquires a connection from the pool and runs f, retrying with exponential backoff
// until tryTimeout passes. PermError and non-retryable postgres errors stop the retries.
func ReliableExec(ctx context.Context, pool *pgxpool.Pool, tryTimeout time.Duration, f func(ctx context.Context, conn *pgxpool.Conn) error) error {
	cfg := backoff.NewExponentialBackOff()
	cfg.InitialInterval = 50 * time.Millisecond
	cfg.MaxElapsedTime = tryTimeout

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("error in pool.Acquire: %w", err)
		}
		defer conn.Release()

		err = f(ctx, conn)
		if err == nil {
			return nil
		}
		if IsPermanent(err) || !IsRetryablePGError(err) {
			return backoff.Permanent(err)
		}
		zerolog.Ctx(ctx).Debug().Err(err).Int("attempt", attempt).Msg("retrying reliable exec")
		return err
	}, backoff.WithContext(cfg, ctx))
}

// IsRetryablePGError reports errors worth another attempt: connection level failures and
// CockroachDB serialization conflicts (40001).
func IsRetryablePGError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return pgconn.Timeout(err) || pgconn.SafeToRetry(err)
}
