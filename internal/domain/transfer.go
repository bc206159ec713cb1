package domain

import (
	"bytes"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transfer represents a committed money movement between two cards of one owner
type Transfer struct {
	ID         uuid.UUID
	FromCardID uuid.UUID
	ToCardID   uuid.UUID
	Amount     decimal.Decimal // scale 2, always positive
	CreatedAt  time.Time
}

// Validate checks the preconditions that need no store access
func (t *Transfer) Validate() error {
	if t.FromCardID == t.ToCardID {
		return NewError(KindInvalidArgument, "same card").With("card_id", t.FromCardID.String())
	}
	if !t.Amount.IsPositive() {
		return NewError(KindInvalidArgument, "non-positive amount").With("amount", t.Amount.String())
	}
	return nil
}

// LockOrder returns the two card ids in the global lock order (byte-wise).
// Every writer touching a pair of cards acquires them in this order.
func LockOrder(a, b uuid.UUID) (first, second uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}
