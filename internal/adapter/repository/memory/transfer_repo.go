package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/hyfoxus/bank-rest/internal/domain"
)

// transferRepository implements domain.TransferRepository
type transferRepository struct {
	store *Store
}

// NewTransferRepository creates a new transfer journal reader
func NewTransferRepository(store *Store) domain.TransferRepository {
	return &transferRepository{store: store}
}

// ListByCard retrieves transfers touching the card, newest first
func (r *transferRepository) ListByCard(ctx context.Context, cardID uuid.UUID, limit, offset int) ([]*domain.Transfer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	transfers := make([]*domain.Transfer, 0)
	for i := len(r.store.transfers) - 1; i >= 0; i-- {
		t := r.store.transfers[i]
		if t.FromCardID != cardID && t.ToCardID != cardID {
			continue
		}
		transfers = append(transfers, &t)
	}

	sort.SliceStable(transfers, func(i, j int) bool {
		return transfers[i].CreatedAt.After(transfers[j].CreatedAt)
	})
	return paginate(transfers, limit, offset), nil
}
