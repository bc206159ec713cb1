package seeder

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hyfoxus/bank-rest/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByName(ctx context.Context, name string) (*domain.User, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func TestAdminSeeder_Seed_AdminMissing(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	seeder := NewAdminSeeder(mockRepo, "admin", "admin-password")
	seeder.cost = bcrypt.MinCost

	mockRepo.On("GetByID", ctx, SystemAdminID).Return(nil, domain.NewError(domain.KindNotFound, "user not found"))
	mockRepo.On("Create", ctx, mock.MatchedBy(func(user *domain.User) bool {
		return user.ID == SystemAdminID &&
			user.Name == "admin" &&
			user.Role == domain.RoleAdmin &&
			bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("admin-password")) == nil
	})).Return(nil)

	created, err := seeder.Seed(ctx)

	assert.NoError(t, err)
	assert.True(t, created)
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNumberOfCalls(t, "Create", 1)
}

func TestAdminSeeder_Seed_AdminExists(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	seeder := NewAdminSeeder(mockRepo, "admin", "admin-password")

	mockRepo.On("GetByID", ctx, SystemAdminID).Return(&domain.User{
		ID:   SystemAdminID,
		Name: "admin",
		Role: domain.RoleAdmin,
	}, nil)

	created, err := seeder.Seed(ctx)

	assert.NoError(t, err)
	assert.False(t, created)
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "Create")
}

func TestAdminSeeder_Seed_StoreFailure(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	seeder := NewAdminSeeder(mockRepo, "admin", "admin-password")

	mockRepo.On("GetByID", ctx, SystemAdminID).Return(nil, errors.New("connection refused"))

	_, err := seeder.Seed(ctx)

	assert.EqualError(t, err, "connection refused")
	mockRepo.AssertNotCalled(t, "Create")
}

func TestAdminSeeder_Seed_MissingCredentials(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	seeder := NewAdminSeeder(mockRepo, "admin", "")

	mockRepo.On("GetByID", ctx, SystemAdminID).Return(nil, domain.NewError(domain.KindNotFound, "user not found"))

	_, err := seeder.Seed(ctx)

	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	mockRepo.AssertNotCalled(t, "Create")
}
