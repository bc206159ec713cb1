package domain

import (
	"context"

	"github.com/google/uuid"
)

// CardFilter narrows card listings. Zero values mean "no filter".
type CardFilter struct {
	OwnerID   *uuid.UUID
	OwnerName string
	Status    CardStatus
	Last4     string
	Limit     int
	Offset    int
}

// CardRepository defines the interface for card persistence operations
type CardRepository interface {
	// GetByID retrieves a card by its ID without locking it
	GetByID(ctx context.Context, id uuid.UUID) (*Card, error)

	// Create creates a new card
	Create(ctx context.Context, card *Card) error

	// List retrieves cards matching the filter, ordered by ID
	List(ctx context.Context, filter CardFilter) ([]*Card, error)

	// Delete removes a card. Fails with Conflict while a request references it.
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserRepository defines the interface for user persistence operations
type UserRepository interface {
	// GetByID retrieves a user by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByName retrieves a user by its unique name
	GetByName(ctx context.Context, name string) (*User, error)

	// Create creates a new user. Fails with Conflict when the name is taken.
	Create(ctx context.Context, user *User) error
}

// RequestRepository defines the interface for request persistence operations
type RequestRepository interface {
	// GetByID retrieves a request by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)

	// Create creates a new request
	Create(ctx context.Context, request *Request) error

	// ListByState retrieves all requests in the given state, oldest first
	ListByState(ctx context.Context, state RequestState) ([]*Request, error)
}

// TransferRepository defines read access to the transfer journal
type TransferRepository interface {
	// ListByCard retrieves transfers touching the card, newest first
	ListByCard(ctx context.Context, cardID uuid.UUID, limit, offset int) ([]*Transfer, error)
}

// Ledger opens lock-scoped transactions over card and request rows
type Ledger interface {
	// Begin starts a transaction. Callers defer Rollback right away.
	Begin(ctx context.Context) (LedgerTx, error)
}

// LedgerTx is a transaction holding exclusive row locks.
// Locks acquired through the ForUpdate methods are held until Commit or
// Rollback; saving a row never releases its lock. Writes become visible
// together on Commit, or not at all.
type LedgerTx interface {
	// CardForUpdate locks the card row and returns it.
	// Fails with NotFound, or LockTimeout when the wait exceeds the bound.
	CardForUpdate(ctx context.Context, id uuid.UUID) (*Card, error)

	// SaveCard writes the card back. The row must be locked by this transaction.
	SaveCard(ctx context.Context, card *Card) error

	// RequestForUpdate locks the request row and returns it
	RequestForUpdate(ctx context.Context, id uuid.UUID) (*Request, error)

	// SaveRequest writes the request back. The row must be locked by this transaction.
	SaveRequest(ctx context.Context, request *Request) error

	// RecordTransfer appends a row to the transfer journal
	RecordTransfer(ctx context.Context, transfer *Transfer) error

	// Commit applies all writes atomically and releases every lock
	Commit() error

	// Rollback discards all writes and releases every lock.
	// It is a no-op after Commit.
	Rollback() error
}

// EventPublisher announces committed state changes to other systems
type EventPublisher interface {
	PublishTransfer(ctx context.Context, transfer *Transfer) error
	PublishCardBlocked(ctx context.Context, card *Card, request *Request) error
}

// Notifier tells operators about card state changes
type Notifier interface {
	CardBlocked(ctx context.Context, card *Card, request *Request) error
}
