package domain

import (
	"time"
)

// Reasons attached to InvalidState errors raised by the card lifecycle
const (
	ReasonBlocked = "blocked"
	ReasonExpired = "expired"
)

// CheckUsable reports why a card cannot take part in a money movement at asOf.
// Expiry is computed from the expiry month, so a card whose stored status was
// never rewritten is still rejected once its month has passed.
func CheckUsable(card *Card, asOf time.Time) error {
	if card.Status == CardStatusBlocked {
		return NewError(KindInvalidState, ReasonBlocked).With("card_id", card.ID.String())
	}
	if card.Status == CardStatusExpired || card.Expiry.Passed(asOf) {
		return NewError(KindInvalidState, ReasonExpired).
			With("card_id", card.ID.String()).
			With("expiry", card.Expiry.String())
	}
	return nil
}

// IsUsable reports whether the card may be debited or credited at asOf
func IsUsable(card *Card, asOf time.Time) bool {
	return CheckUsable(card, asOf) == nil
}

// Transition moves the card to newStatus. EXPIRED is terminal with respect to
// ACTIVE; every other transition is permitted. The caller persists the card.
func Transition(card *Card, newStatus CardStatus) (*Card, error) {
	if !newStatus.Valid() {
		return nil, Errorf(KindInvalidArgument, "malformed status %q", newStatus)
	}
	if card.Status == CardStatusExpired && newStatus == CardStatusActive {
		return nil, NewError(KindInvalidState, "cannot re-activate expired card").
			With("card_id", card.ID.String())
	}
	card.Status = newStatus
	return card, nil
}
