package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// RequestState represents the state of a user request
type RequestState string

const (
	RequestStatePending  RequestState = "PENDING"
	RequestStateComplete RequestState = "COMPLETE"
)

// ParseRequestState parses a state token case-insensitively.
// ok is false for unknown or empty tokens.
func ParseRequestState(token string) (state RequestState, ok bool) {
	switch s := RequestState(strings.ToUpper(strings.TrimSpace(token))); s {
	case RequestStatePending, RequestStateComplete:
		return s, true
	}
	return "", false
}

// Request represents a user-initiated request against one of their cards
type Request struct {
	ID          uuid.UUID
	RequestorID uuid.UUID
	CardID      uuid.UUID
	State       RequestState
	Operation   string
	CreatedAt   time.Time
}

// Validate ensures the request adheres to domain rules
func (r *Request) Validate() error {
	if r.RequestorID == uuid.Nil {
		return NewError(KindInvalidArgument, "requestor is required")
	}
	if r.CardID == uuid.Nil {
		return NewError(KindInvalidArgument, "card is required")
	}
	op := strings.TrimSpace(r.Operation)
	if n := utf8.RuneCountInString(op); n < 2 || n > 64 {
		return NewError(KindInvalidArgument, "operation must be between 2 and 64 characters")
	}
	if r.State != RequestStatePending && r.State != RequestStateComplete {
		return Errorf(KindInvalidArgument, "malformed request state %q", r.State)
	}
	return nil
}

// IsComplete reports whether the request reached its terminal state
func (r *Request) IsComplete() bool {
	return r.State == RequestStateComplete
}

// IsBlockIntent reports whether the free-text operation asks to block the card
func IsBlockIntent(operation string) bool {
	op := strings.ToUpper(strings.TrimSpace(operation))
	return strings.Contains(op, "BLOCK") && !strings.Contains(op, "UNBLOCK")
}
