package seeder

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hyfoxus/bank-rest/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// SystemAdminID is the fixed ID of the bootstrap administrator
var SystemAdminID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// AdminSeeder ensures the bootstrap administrator exists
type AdminSeeder struct {
	repo     domain.UserRepository
	name     string
	password string
	cost     int
}

// NewAdminSeeder creates a new AdminSeeder instance
func NewAdminSeeder(repo domain.UserRepository, name, password string) *AdminSeeder {
	return &AdminSeeder{
		repo:     repo,
		name:     name,
		password: password,
		cost:     bcrypt.DefaultCost,
	}
}

// Seed creates the administrator if it does not exist yet.
// An existing administrator is left untouched, including its password.
func (s *AdminSeeder) Seed(ctx context.Context) (created bool, err error) {
	_, err = s.repo.GetByID(ctx, SystemAdminID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}

	if s.name == "" || s.password == "" {
		return false, domain.NewError(domain.KindInvalidArgument, "admin name and password are required to seed")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.password), s.cost)
	if err != nil {
		return false, err
	}

	admin := &domain.User{
		ID:           SystemAdminID,
		Name:         s.name,
		Role:         domain.RoleAdmin,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, admin); err != nil {
		return false, err
	}
	return true, nil
}
