package expiry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hyfoxus/bank-rest/internal/adapter/repository/memory"
	"github.com/hyfoxus/bank-rest/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCardRepository is a mock implementation of CardRepository for testing
type MockCardRepository struct {
	mock.Mock
}

func (m *MockCardRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Card), args.Error(1)
}

func (m *MockCardRepository) Create(ctx context.Context, card *domain.Card) error {
	return m.Called(ctx, card).Error(0)
}

func (m *MockCardRepository) List(ctx context.Context, filter domain.CardFilter) ([]*domain.Card, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Card), args.Error(1)
}

func (m *MockCardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

var testNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func TestSweep(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	users := memory.NewUserRepository(store)
	cards := memory.NewCardRepository(store, time.Second)
	ledger := memory.NewLedger(store, 50*time.Millisecond)

	owner := &domain.User{ID: uuid.New(), Name: "owner", Role: domain.RoleUser}
	require.NoError(t, users.Create(ctx, owner))

	newCard := func(number string, status domain.CardStatus, expiry domain.ExpiryMonth) uuid.UUID {
		c := &domain.Card{ID: uuid.New(), OwnerID: owner.ID, Number: number, Balance: decimal.Zero, Status: status, Expiry: expiry}
		require.NoError(t, cards.Create(ctx, c))
		return c.ID
	}
	lapsedActive := newCard("4111111111111111", domain.CardStatusActive, domain.ExpiryMonth{Year: 2026, Month: time.February})
	lapsedBlocked := newCard("5555555555554444", domain.CardStatusBlocked, domain.ExpiryMonth{Year: 2025, Month: time.June})
	current := newCard("4000000000000002", domain.CardStatusActive, domain.ExpiryMonth{Year: 2026, Month: time.March})
	alreadyExpired := newCard("4242424242424242", domain.CardStatusExpired, domain.ExpiryMonth{Year: 2024, Month: time.January})

	log, _ := test.NewNullLogger()
	sweeper := NewSweeper(cards, ledger, log)
	sweeper.Now = func() time.Time { return testNow }

	n, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	status := func(id uuid.UUID) domain.CardStatus {
		c, err := cards.GetByID(ctx, id)
		require.NoError(t, err)
		return c.Status
	}
	assert.Equal(t, domain.CardStatusExpired, status(lapsedActive))
	assert.Equal(t, domain.CardStatusExpired, status(lapsedBlocked))
	assert.Equal(t, domain.CardStatusActive, status(current))
	assert.Equal(t, domain.CardStatusExpired, status(alreadyExpired))

	// A second sweep finds nothing to do.
	n, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSweep_LockedCardIsSkipped(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	users := memory.NewUserRepository(store)
	cards := memory.NewCardRepository(store, time.Second)
	ledger := memory.NewLedger(store, 20*time.Millisecond)

	owner := &domain.User{ID: uuid.New(), Name: "owner", Role: domain.RoleUser}
	require.NoError(t, users.Create(ctx, owner))
	card := &domain.Card{ID: uuid.New(), OwnerID: owner.ID, Number: "4111111111111111", Balance: decimal.Zero, Status: domain.CardStatusActive, Expiry: domain.ExpiryMonth{Year: 2025, Month: time.May}}
	require.NoError(t, cards.Create(ctx, card))

	holder, err := ledger.Begin(ctx)
	require.NoError(t, err)
	defer holder.Rollback()
	_, err = holder.CardForUpdate(ctx, card.ID)
	require.NoError(t, err)

	log, hook := test.NewNullLogger()
	sweeper := NewSweeper(cards, ledger, log)
	sweeper.Now = func() time.Time { return testNow }

	n, err := sweeper.Sweep(ctx)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	assert.Equal(t, "expiry sweep finished", hook.LastEntry().Message)
}

func TestSweep_ListFailure(t *testing.T) {
	cards := new(MockCardRepository)
	cards.On("List", mock.Anything, domain.CardFilter{Limit: pageSize, Offset: 0}).Return(nil, errors.New("connection refused"))

	log, _ := test.NewNullLogger()
	_, err := NewSweeper(cards, nil, log).Sweep(context.Background())
	assert.EqualError(t, err, "connection refused")
	cards.AssertExpectations(t)
}
