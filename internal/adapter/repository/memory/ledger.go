package memory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hyfoxus/bank-rest/internal/domain"
)

// DefaultLockTimeout bounds every row lock wait when none is configured
const DefaultLockTimeout = 5 * time.Second

var errTxDone = errors.New("memory: transaction already committed or rolled back")

// ledger implements domain.Ledger
type ledger struct {
	store       *Store
	lockTimeout time.Duration
}

// NewLedger creates a ledger over store whose row lock waits are bounded by lockTimeout
func NewLedger(store *Store, lockTimeout time.Duration) domain.Ledger {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &ledger{store: store, lockTimeout: lockTimeout}
}

// Begin starts a transaction
func (l *ledger) Begin(ctx context.Context) (domain.LedgerTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewError(domain.KindUnavailable, "transaction not started").Wrap(err)
	}
	return &ledgerTx{
		ledger:   l,
		held:     make(map[lockKey]struct{}),
		cards:    make(map[uuid.UUID]domain.Card),
		requests: make(map[uuid.UUID]domain.Request),
	}, nil
}

// ledgerTx stages writes in its own maps and applies them on Commit.
// It is used by one goroutine at a time.
type ledgerTx struct {
	ledger *ledger
	held   map[lockKey]struct{}
	order  []lockKey

	cards     map[uuid.UUID]domain.Card
	requests  map[uuid.UUID]domain.Request
	transfers []domain.Transfer
	done      bool
}

// lock takes the row lock unless this transaction already holds it.
// fresh reports whether the lock was newly acquired.
func (tx *ledgerTx) lock(ctx context.Context, key lockKey) (fresh bool, err error) {
	if _, ok := tx.held[key]; ok {
		return false, nil
	}
	if err := tx.ledger.store.locks.acquire(ctx, key, tx.ledger.lockTimeout); err != nil {
		return false, err
	}
	tx.held[key] = struct{}{}
	tx.order = append(tx.order, key)
	return true, nil
}

func (tx *ledgerTx) unlock(key lockKey) {
	delete(tx.held, key)
	for i, k := range tx.order {
		if k == key {
			tx.order = append(tx.order[:i], tx.order[i+1:]...)
			break
		}
	}
	tx.ledger.store.locks.release(key)
}

func (tx *ledgerTx) holds(key lockKey) bool {
	_, ok := tx.held[key]
	return ok
}

// CardForUpdate locks the card row and returns its current value
func (tx *ledgerTx) CardForUpdate(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	if tx.done {
		return nil, errTxDone
	}
	key := lockKey{table: cardsTable, id: id}
	fresh, err := tx.lock(ctx, key)
	if err != nil {
		return nil, err
	}

	if c, ok := tx.cards[id]; ok {
		return &c, nil
	}

	tx.ledger.store.mu.RLock()
	c, ok := tx.ledger.store.cards[id]
	tx.ledger.store.mu.RUnlock()
	if !ok {
		if fresh {
			tx.unlock(key)
		}
		return nil, cardNotFound(id)
	}
	return &c, nil
}

// SaveCard stages the card for commit
func (tx *ledgerTx) SaveCard(ctx context.Context, card *domain.Card) error {
	if tx.done {
		return errTxDone
	}
	if !tx.holds(lockKey{table: cardsTable, id: card.ID}) {
		return domain.NewError(domain.KindConflict, "card row not locked by transaction").With("card_id", card.ID.String())
	}
	if card.Balance.IsNegative() {
		return domain.NewError(domain.KindInvalidState, "negative balance").With("card_id", card.ID.String())
	}
	tx.cards[card.ID] = *card
	return nil
}

// RequestForUpdate locks the request row and returns its current value
func (tx *ledgerTx) RequestForUpdate(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	if tx.done {
		return nil, errTxDone
	}
	key := lockKey{table: requestsTable, id: id}
	fresh, err := tx.lock(ctx, key)
	if err != nil {
		return nil, err
	}

	if r, ok := tx.requests[id]; ok {
		return &r, nil
	}

	tx.ledger.store.mu.RLock()
	r, ok := tx.ledger.store.requests[id]
	tx.ledger.store.mu.RUnlock()
	if !ok {
		if fresh {
			tx.unlock(key)
		}
		return nil, requestNotFound(id)
	}
	return &r, nil
}

// SaveRequest stages the request for commit
func (tx *ledgerTx) SaveRequest(ctx context.Context, request *domain.Request) error {
	if tx.done {
		return errTxDone
	}
	if !tx.holds(lockKey{table: requestsTable, id: request.ID}) {
		return domain.NewError(domain.KindConflict, "request row not locked by transaction").With("request_id", request.ID.String())
	}
	tx.requests[request.ID] = *request
	return nil
}

// RecordTransfer stages a journal row for commit
func (tx *ledgerTx) RecordTransfer(ctx context.Context, transfer *domain.Transfer) error {
	if tx.done {
		return errTxDone
	}
	tx.transfers = append(tx.transfers, *transfer)
	return nil
}

// Commit applies every staged write at once and releases the locks
func (tx *ledgerTx) Commit() error {
	if tx.done {
		return errTxDone
	}
	defer tx.finish()

	s := tx.ledger.store
	s.mu.Lock()
	defer s.mu.Unlock()

	// Locked rows cannot be deleted, so every staged row still exists.
	for id, c := range tx.cards {
		s.cards[id] = c
	}
	for id, r := range tx.requests {
		s.requests[id] = r
	}
	s.transfers = append(s.transfers, tx.transfers...)
	return nil
}

// Rollback discards staged writes and releases the locks
func (tx *ledgerTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.finish()
	return nil
}

func (tx *ledgerTx) finish() {
	tx.done = true
	for i := len(tx.order) - 1; i >= 0; i-- {
		tx.ledger.store.locks.release(tx.order[i])
	}
	tx.order = nil
	tx.held = nil
	tx.cards = nil
	tx.requests = nil
	tx.transfers = nil
}
