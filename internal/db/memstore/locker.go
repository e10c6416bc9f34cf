package memstore

import (
	"context"

	"github.com/moby/locker"

	"github.com/kurvcrm/kurv/internal/db/sqlc"
)

// Locker is an in-process keyed mutex over a Store. It satisfies db.KeyLocker.
type Locker struct {
	store *Store
	keys  *locker.Locker
}

func NewLocker(store *Store) *Locker {
	return &Locker{store: store, keys: locker.New()}
}

func (l *Locker) WithKeyLock(ctx context.Context, key string, fn func(context.Context, sqlc.Querier) error) error {
	acquired := make(chan struct{})
	go func() {
		l.keys.Lock(key)
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-ctx.Done():
		// Hand the lock back once the pending acquire completes.
		go func() {
			<-acquired
			_ = l.keys.Unlock(key)
		}()
		return ctx.Err()
	}
	defer func() { _ = l.keys.Unlock(key) }()

	return fn(ctx, l.store)
}
