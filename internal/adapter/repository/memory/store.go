// Package memory is an in-process implementation of the domain ports.
// It backs the unit and concurrency tests and STORE=memory deployments.
package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/hyfoxus/bank-rest/internal/domain"
)

// Store holds every row by value. Repositories and ledger transactions
// share one Store; committed state is only ever changed under mu.
type Store struct {
	mu        sync.RWMutex
	users     map[uuid.UUID]domain.User
	cards     map[uuid.UUID]domain.Card
	requests  map[uuid.UUID]domain.Request
	transfers []domain.Transfer

	locks *rowLocks
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:    make(map[uuid.UUID]domain.User),
		cards:    make(map[uuid.UUID]domain.Card),
		requests: make(map[uuid.UUID]domain.Request),
		locks:    newRowLocks(),
	}
}

func cardNotFound(id uuid.UUID) error {
	return domain.NewError(domain.KindNotFound, "card not found").With("card_id", id.String())
}

func requestNotFound(id uuid.UUID) error {
	return domain.NewError(domain.KindNotFound, "request not found").With("request_id", id.String())
}

func userNotFound(key, value string) error {
	return domain.NewError(domain.KindNotFound, "user not found").With(key, value)
}

// cardReferenced reports whether a request points at the card. Caller holds mu.
func (s *Store) cardReferenced(id uuid.UUID) bool {
	for _, r := range s.requests {
		if r.CardID == id {
			return true
		}
	}
	return false
}
