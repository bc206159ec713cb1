package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/hyfoxus/bank-rest/internal/domain"
)

// requestRepository implements domain.RequestRepository
type requestRepository struct {
	store *Store
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(store *Store) domain.RequestRepository {
	return &requestRepository{store: store}
}

// GetByID retrieves a request by its ID
func (r *requestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	req, ok := r.store.requests[id]
	if !ok {
		return nil, requestNotFound(id)
	}
	return &req, nil
}

// Create creates a new request
func (r *requestRepository) Create(ctx context.Context, request *domain.Request) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.requests[request.ID]; ok {
		return domain.NewError(domain.KindConflict, "request already exists").With("request_id", request.ID.String())
	}
	if _, ok := r.store.cards[request.CardID]; !ok {
		return domain.NewError(domain.KindConflict, "request card does not exist").With("card_id", request.CardID.String())
	}
	if _, ok := r.store.users[request.RequestorID]; !ok {
		return domain.NewError(domain.KindConflict, "requestor does not exist").With("user_id", request.RequestorID.String())
	}
	r.store.requests[request.ID] = *request
	return nil
}

// ListByState retrieves all requests in the given state, oldest first
func (r *requestRepository) ListByState(ctx context.Context, state domain.RequestState) ([]*domain.Request, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	requests := make([]*domain.Request, 0)
	for _, req := range r.store.requests {
		if req.State != state {
			continue
		}
		req := req
		requests = append(requests, &req)
	}

	sort.Slice(requests, func(i, j int) bool {
		return requests[i].CreatedAt.Before(requests[j].CreatedAt)
	})
	return requests, nil
}
