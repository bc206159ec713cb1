package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hyfoxus/bank-rest/internal/domain"
)

// DefaultLockTimeout bounds every row lock wait when none is configured
const DefaultLockTimeout = 5 * time.Second

// setLockTimeout bounds row lock waits for the rest of the transaction
func setLockTimeout(ctx context.Context, dbTx *sql.Tx, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	ms := fmt.Sprintf("%dms", timeout.Milliseconds())
	if _, err := dbTx.ExecContext(ctx, `SELECT set_config('lock_timeout', $1, true)`, ms); err != nil {
		return classify("set lock timeout", err)
	}
	return nil
}

// ledger implements domain.Ledger
type ledger struct {
	db          *DB
	lockTimeout time.Duration
}

// NewLedger creates a ledger whose row lock waits are bounded by lockTimeout
func NewLedger(db *DB, lockTimeout time.Duration) domain.Ledger {
	return &ledger{db: db, lockTimeout: lockTimeout}
}

// Begin starts a database transaction with a bounded lock wait
func (l *ledger) Begin(ctx context.Context) (domain.LedgerTx, error) {
	dbTx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify("begin transaction", err)
	}
	if err := setLockTimeout(ctx, dbTx, l.lockTimeout); err != nil {
		dbTx.Rollback()
		return nil, err
	}
	return &ledgerTx{
		tx:       dbTx,
		cards:    make(map[uuid.UUID]struct{}),
		requests: make(map[uuid.UUID]struct{}),
	}, nil
}

// ledgerTx implements domain.LedgerTx on top of SELECT ... FOR UPDATE.
// It remembers which rows it locked so saves of unlocked rows are refused.
type ledgerTx struct {
	tx       *sql.Tx
	cards    map[uuid.UUID]struct{}
	requests map[uuid.UUID]struct{}
}

// CardForUpdate locks the card row and returns it
func (t *ledgerTx) CardForUpdate(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards c WHERE c.id = $1 FOR UPDATE`

	card, err := scanCard(t.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.KindNotFound, "card not found").With("card_id", id.String())
		}
		return nil, classify("lock card", err)
	}
	t.cards[id] = struct{}{}
	return card, nil
}

// SaveCard writes balance, status and expiry of a locked card
func (t *ledgerTx) SaveCard(ctx context.Context, card *domain.Card) error {
	if _, ok := t.cards[card.ID]; !ok {
		return domain.NewError(domain.KindConflict, "card row not locked by transaction").With("card_id", card.ID.String())
	}

	query := `UPDATE cards SET balance = $2, status = $3, expiry = $4 WHERE id = $1`
	_, err := t.tx.ExecContext(ctx, query,
		card.ID,
		card.Balance.StringFixed(domain.BalanceScale),
		string(card.Status),
		card.Expiry.LastDay(),
	)
	if err != nil {
		return classify("update card", err)
	}
	return nil
}

// RequestForUpdate locks the request row and returns it
func (t *ledgerTx) RequestForUpdate(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1 FOR UPDATE`

	req, err := scanRequest(t.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.KindNotFound, "request not found").With("request_id", id.String())
		}
		return nil, classify("lock request", err)
	}
	t.requests[id] = struct{}{}
	return req, nil
}

// SaveRequest writes the state of a locked request
func (t *ledgerTx) SaveRequest(ctx context.Context, request *domain.Request) error {
	if _, ok := t.requests[request.ID]; !ok {
		return domain.NewError(domain.KindConflict, "request row not locked by transaction").With("request_id", request.ID.String())
	}

	_, err := t.tx.ExecContext(ctx, `UPDATE requests SET state = $2 WHERE id = $1`, request.ID, string(request.State))
	if err != nil {
		return classify("update request", err)
	}
	return nil
}

// RecordTransfer inserts a journal row
func (t *ledgerTx) RecordTransfer(ctx context.Context, transfer *domain.Transfer) error {
	query := `
		INSERT INTO transfers (id, from_card_id, to_card_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := t.tx.ExecContext(ctx, query,
		transfer.ID,
		transfer.FromCardID,
		transfer.ToCardID,
		transfer.Amount.StringFixed(domain.BalanceScale),
		transfer.CreatedAt,
	)
	if err != nil {
		return classify("insert transfer", err)
	}
	return nil
}

// Commit commits the transaction
func (t *ledgerTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}

// Rollback aborts the transaction. It is a no-op once committed.
func (t *ledgerTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return classify("rollback transaction", err)
	}
	return nil
}
