package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyfoxus/bank-rest/internal/domain"
	"golang.org/x/sync/semaphore"
)

type table string

const (
	cardsTable    table = "cards"
	requestsTable table = "requests"
)

type lockKey struct {
	table table
	id    uuid.UUID
}

// rowLocks hands out one exclusive lock per row, a weighted semaphore of size 1
type rowLocks struct {
	mu   sync.Mutex
	rows map[lockKey]*semaphore.Weighted
}

func newRowLocks() *rowLocks {
	return &rowLocks{rows: make(map[lockKey]*semaphore.Weighted)}
}

func (l *rowLocks) slot(key lockKey) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()
	sem, ok := l.rows[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		l.rows[key] = sem
	}
	return sem
}

// acquire waits for the row lock until timeout elapses or ctx is done
func (l *rowLocks) acquire(ctx context.Context, key lockKey, timeout time.Duration) error {
	sem := l.slot(key)
	if sem.TryAcquire(1) {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return domain.NewError(domain.KindUnavailable, "lock wait canceled").
				With("table", string(key.table)).
				With("row_id", key.id.String()).
				Wrap(ctx.Err())
		}
		return domain.NewError(domain.KindLockTimeout, "lock wait exceeded").
			With("table", string(key.table)).
			With("row_id", key.id.String()).
			With("timeout", timeout.String())
	}
	return nil
}

// release gives the row lock back. The caller must hold it.
func (l *rowLocks) release(key lockKey) {
	l.slot(key).Release(1)
}
