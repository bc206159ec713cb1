package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/hyfoxus/bank-rest/internal/domain"
)

// userRepository implements domain.UserRepository
type userRepository struct {
	store *Store
}

// NewUserRepository creates a new user repository
func NewUserRepository(store *Store) domain.UserRepository {
	return &userRepository{store: store}
}

// GetByID retrieves a user by its ID
func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	u, ok := r.store.users[id]
	if !ok {
		return nil, userNotFound("user_id", id.String())
	}
	return &u, nil
}

// GetByName retrieves a user by its unique name
func (r *userRepository) GetByName(ctx context.Context, name string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, u := range r.store.users {
		if u.Name == name {
			return &u, nil
		}
	}
	return nil, userNotFound("name", name)
}

// Create creates a new user
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.users[user.ID]; ok {
		return domain.NewError(domain.KindConflict, "user already exists").With("user_id", user.ID.String())
	}
	for _, u := range r.store.users {
		if u.Name == user.Name {
			return domain.NewError(domain.KindConflict, "user name already taken").With("name", user.Name)
		}
	}
	r.store.users[user.ID] = *user
	return nil
}
