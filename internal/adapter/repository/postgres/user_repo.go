package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/hyfoxus/bank-rest/internal/domain"
)

// userRepository implements domain.UserRepository
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) domain.UserRepository {
	return &userRepository{db: db}
}

// GetByID retrieves a user by its ID
func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT id, name, role, password_hash FROM users WHERE id = $1`
	return r.getOne(ctx, query, id, "user_id", id.String())
}

// GetByName retrieves a user by its unique name
func (r *userRepository) GetByName(ctx context.Context, name string) (*domain.User, error) {
	query := `SELECT id, name, role, password_hash FROM users WHERE name = $1`
	return r.getOne(ctx, query, name, "name", name)
}

func (r *userRepository) getOne(ctx context.Context, query string, arg any, key, value string) (*domain.User, error) {
	var user domain.User
	var role string

	err := r.db.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.Name, &role, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.KindNotFound, "user not found").With(key, value)
		}
		return nil, classify("get user", err)
	}
	user.Role = domain.Role(role)
	return &user, nil
}

// Create creates a new user
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, name, role, password_hash)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query, user.ID, user.Name, string(user.Role), user.PasswordHash)
	if err != nil {
		return classify("create user", err)
	}
	return nil
}
