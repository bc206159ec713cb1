package user

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hyfoxus/bank-rest/internal/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// CreateUserInput represents the input for registering a user
type CreateUserInput struct {
	Name     string
	Password string
	Role     string // defaults to USER
}

// UserService handles user registration and credential checks
type UserService struct {
	Users domain.UserRepository
	Log   logrus.FieldLogger
	Cost  int
}

// NewUserService creates a new UserService instance
func NewUserService(users domain.UserRepository, log logrus.FieldLogger) *UserService {
	return &UserService{
		Users: users,
		Log:   log,
		Cost:  bcrypt.DefaultCost,
	}
}

// Create registers a user. Admin only.
func (s *UserService) Create(ctx context.Context, principal domain.Principal, input CreateUserInput) (*domain.User, error) {
	if err := domain.AssertAdmin(principal); err != nil {
		return nil, err
	}
	return s.create(ctx, input)
}

func (s *UserService) create(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	if n := utf8.RuneCountInString(name); n < 3 || n > 64 {
		return nil, domain.NewError(domain.KindInvalidArgument, "username must be between 3 and 64 characters")
	}
	// bcrypt only looks at the first 72 bytes
	if n := len(input.Password); n < 6 || n > 72 {
		return nil, domain.NewError(domain.KindInvalidArgument, "password must be between 6 and 72 bytes")
	}

	role := domain.RoleUser
	if input.Role != "" {
		parsed, err := domain.ParseRole(input.Role)
		if err != nil {
			return nil, err
		}
		role = parsed
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.Cost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.New(),
		Name:         name,
		Role:         role,
		PasswordHash: string(hash),
	}
	if err := s.Users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.Log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("user created")
	return user, nil
}

// Get returns a user by ID
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.Users.GetByID(ctx, id)
}

// Authenticate checks a name/password pair and returns the matching user
func (s *UserService) Authenticate(ctx context.Context, name, password string) (*domain.User, error) {
	user, err := s.Users.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.KindForbidden, "invalid credentials")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.NewError(domain.KindForbidden, "invalid credentials")
	}
	return user, nil
}
