package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kurvcrm/kurv/internal/db/sqlc"
)

// KeyLocker runs fn while holding an exclusive lock named by key.
// Callers sharing a key are serialized; different keys do not block each other.
// fn must issue its queries through the Querier it is handed: for lockers backed
// by a database session that Querier runs on the session holding the lock.
type KeyLocker interface {
	WithKeyLock(ctx context.Context, key string, fn func(context.Context, sqlc.Querier) error) error
}

// NoopLocker runs fn against Queries without taking any lock.
type NoopLocker struct {
	Queries sqlc.Querier
}

func (l NoopLocker) WithKeyLock(ctx context.Context, _ string, fn func(context.Context, sqlc.Querier) error) error {
	return fn(ctx, l.Queries)
}

// AdvisoryLocker serializes work across processes with PostgreSQL session advisory locks.
// The locked work runs on the same pooled connection that holds the lock, so each
// in-flight key costs exactly one connection.
type AdvisoryLocker struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewAdvisoryLocker(log *slog.Logger, pool *pgxpool.Pool) *AdvisoryLocker {
	if log == nil {
		log = slog.Default()
	}
	return &AdvisoryLocker{pool: pool, logger: log.With(slog.String("component", "advisory_lock"))}
}

const (
	advisoryLockSQL   = `SELECT pg_advisory_lock(hashtextextended($1, 0))`
	advisoryUnlockSQL = `SELECT pg_advisory_unlock(hashtextextended($1, 0))`
)

func (l *AdvisoryLocker) WithKeyLock(ctx context.Context, key string, fn func(context.Context, sqlc.Querier) error) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire lock conn: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, advisoryLockSQL, key); err != nil {
		return fmt.Errorf("advisory lock %s: %w", key, err)
	}
	defer func() {
		// ctx may already be cancelled here.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := conn.Exec(unlockCtx, advisoryUnlockSQL, key); err != nil {
			l.logger.Error("advisory unlock failed", slog.String("key", key), slog.Any("error", err))
			// Closing the session releases its locks.
			_ = conn.Conn().Close(unlockCtx)
		}
	}()

	return fn(ctx, sqlc.New(conn))
}
