package memory

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hyfoxus/bank-rest/internal/domain"
)

// cardRepository implements domain.CardRepository
type cardRepository struct {
	store       *Store
	lockTimeout time.Duration
}

// NewCardRepository creates a new card repository. Delete waits at most
// lockTimeout for a transaction holding the card row.
func NewCardRepository(store *Store, lockTimeout time.Duration) domain.CardRepository {
	return &cardRepository{store: store, lockTimeout: lockTimeout}
}

// GetByID retrieves a card by its ID
func (r *cardRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	c, ok := r.store.cards[id]
	if !ok {
		return nil, cardNotFound(id)
	}
	return &c, nil
}

// Create creates a new card
func (r *cardRepository) Create(ctx context.Context, card *domain.Card) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.cards[card.ID]; ok {
		return domain.NewError(domain.KindConflict, "card already exists").With("card_id", card.ID.String())
	}
	if _, ok := r.store.users[card.OwnerID]; !ok {
		return domain.NewError(domain.KindConflict, "card owner does not exist").With("user_id", card.OwnerID.String())
	}
	for _, c := range r.store.cards {
		if c.Number == card.Number {
			return domain.NewError(domain.KindConflict, "card number already issued").With("last4", card.Last4())
		}
	}
	r.store.cards[card.ID] = *card
	return nil
}

// List retrieves cards matching the filter, ordered by ID
func (r *cardRepository) List(ctx context.Context, filter domain.CardFilter) ([]*domain.Card, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	cards := make([]*domain.Card, 0)
	for _, c := range r.store.cards {
		if !r.matches(c, filter) {
			continue
		}
		c := c
		cards = append(cards, &c)
	}

	sort.Slice(cards, func(i, j int) bool {
		return bytes.Compare(cards[i].ID[:], cards[j].ID[:]) < 0
	})

	return paginate(cards, filter.Limit, filter.Offset), nil
}

// matches applies the filter to c. Caller holds mu.
func (r *cardRepository) matches(c domain.Card, filter domain.CardFilter) bool {
	if filter.OwnerID != nil && c.OwnerID != *filter.OwnerID {
		return false
	}
	if filter.Status != "" && c.Status != filter.Status {
		return false
	}
	if filter.Last4 != "" && c.Last4() != filter.Last4 {
		return false
	}
	if filter.OwnerName != "" {
		owner, ok := r.store.users[c.OwnerID]
		if !ok || owner.Name != filter.OwnerName {
			return false
		}
	}
	return true
}

// Delete removes a card. The card row lock is taken so a delete never
// races with a transaction that already read the card.
func (r *cardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	key := lockKey{table: cardsTable, id: id}
	if err := r.store.locks.acquire(ctx, key, r.lockTimeout); err != nil {
		return err
	}
	defer r.store.locks.release(key)

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.cards[id]; !ok {
		return cardNotFound(id)
	}
	if r.store.cardReferenced(id) {
		return domain.NewError(domain.KindConflict, "card is referenced by a request").With("card_id", id.String())
	}
	delete(r.store.cards, id)
	return nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
