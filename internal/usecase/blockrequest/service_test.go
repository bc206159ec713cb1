package blockrequest

import (
	"context"
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

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishTransfer(ctx context.Context, transfer *domain.Transfer) error {
	args := m.Called(ctx, transfer)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishCardBlocked(ctx context.Context, card *domain.Card, request *domain.Request) error {
	args := m.Called(ctx, card, request)
	return args.Error(0)
}

// MockNotifier is a mock implementation of Notifier for testing
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) CardBlocked(ctx context.Context, card *domain.Card, request *domain.Request) error {
	args := m.Called(ctx, card, request)
	return args.Error(0)
}

var admin = domain.Principal{UserID: uuid.New(), Role: domain.RoleAdmin}

type env struct {
	store    *memory.Store
	service  *RequestService
	cards    domain.CardRepository
	requests domain.RequestRepository
	users    domain.UserRepository
	events   *MockEventPublisher
	notifier *MockNotifier
}

func newEnv(t *testing.T, lockTimeout time.Duration) *env {
	t.Helper()
	store := memory.NewStore()
	e := &env{
		store:    store,
		cards:    memory.NewCardRepository(store, lockTimeout),
		requests: memory.NewRequestRepository(store),
		users:    memory.NewUserRepository(store),
		events:   new(MockEventPublisher),
		notifier: new(MockNotifier),
	}
	log, _ := test.NewNullLogger()
	e.service = NewRequestService(memory.NewLedger(store, lockTimeout), e.requests, e.cards, e.users, e.events, e.notifier, log)
	return e
}

func (e *env) user(t *testing.T, name string) domain.Principal {
	t.Helper()
	u := &domain.User{ID: uuid.New(), Name: name, Role: domain.RoleUser}
	require.NoError(t, e.users.Create(context.Background(), u))
	return domain.Principal{UserID: u.ID, Role: u.Role}
}

func (e *env) card(t *testing.T, owner domain.Principal, number string, status domain.CardStatus) uuid.UUID {
	t.Helper()
	c := &domain.Card{
		ID:      uuid.New(),
		OwnerID: owner.UserID,
		Number:  number,
		Balance: decimal.RequireFromString("100.00"),
		Status:  status,
		Expiry:  domain.ExpiryMonth{Year: 2030, Month: time.December},
	}
	require.NoError(t, e.cards.Create(context.Background(), c))
	return c.ID
}

func (e *env) status(t *testing.T, id uuid.UUID) domain.CardStatus {
	t.Helper()
	c, err := e.cards.GetByID(context.Background(), id)
	require.NoError(t, err)
	return c.Status
}

func TestBlockRequest_Scenario(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, time.Second)
	owner := e.user(t, "owner")
	cardID := e.card(t, owner, "4111111111111111", domain.CardStatusActive)

	req, err := e.service.CreateRequest(ctx, owner, CreateRequestInput{CardID: cardID, Operation: "lost card, please block"})
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatePending, req.State)
	assert.Equal(t, owner.UserID, req.RequestorID)

	matchCard := mock.MatchedBy(func(c *domain.Card) bool { return c.ID == cardID && c.Status == domain.CardStatusBlocked })
	matchReq := mock.MatchedBy(func(r *domain.Request) bool { return r.ID == req.ID })
	e.events.On("PublishCardBlocked", ctx, matchCard, matchReq).Return(nil).Once()
	e.notifier.On("CardBlocked", ctx, matchCard, matchReq).Return(nil).Once()

	done, err := e.service.Fulfill(ctx, admin, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStateComplete, done.State)
	assert.Equal(t, domain.CardStatusBlocked, e.status(t, cardID))

	stored, err := e.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStateComplete, stored.State)

	// Fulfilling again is a no-op and announces nothing.
	again, err := e.service.Fulfill(ctx, admin, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStateComplete, again.State)
	assert.Equal(t, domain.CardStatusBlocked, e.status(t, cardID))

	e.events.AssertExpectations(t)
	e.notifier.AssertExpectations(t)
}

func TestFulfill_AlreadyBlockedCard(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, time.Second)
	owner := e.user(t, "owner")
	cardID := e.card(t, owner, "4111111111111111", domain.CardStatusBlocked)

	req, err := e.service.CreateRequest(ctx, owner, CreateRequestInput{CardID: cardID, Operation: "BLOCK"})
	require.NoError(t, err)

	done, err := e.service.Fulfill(ctx, admin, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStateComplete, done.State)
	assert.Equal(t, domain.CardStatusBlocked, e.status(t, cardID))

	e.events.AssertNotCalled(t, "PublishCardBlocked", mock.Anything, mock.Anything, mock.Anything)
	e.notifier.AssertNotCalled(t, "CardBlocked", mock.Anything, mock.Anything, mock.Anything)
}

func TestFulfill_UnsupportedOperation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, time.Second)
	owner := e.user(t, "owner")
	cardID := e.card(t, owner, "4111111111111111", domain.CardStatusBlocked)

	for _, op := range []string{"UNBLOCK", "close my account"} {
		t.Run(op, func(t *testing.T) {
			req, err := e.service.CreateRequest(ctx, owner, CreateRequestInput{CardID: cardID, Operation: op})
			require.NoError(t, err)

			_, err = e.service.Fulfill(ctx, admin, req.ID)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
			assert.Contains(t, err.Error(), "unsupported operation")

			stored, err := e.requests.GetByID(ctx, req.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.RequestStatePending, stored.State, "nothing is written")
			assert.Equal(t, domain.CardStatusBlocked, e.status(t, cardID))
		})
	}
}

func TestFulfill_Errors(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, time.Second)
	owner := e.user(t, "owner")
	cardID := e.card(t, owner, "4111111111111111", domain.CardStatusActive)
	req, err := e.service.CreateRequest(ctx, owner, CreateRequestInput{CardID: cardID, Operation: "BLOCK"})
	require.NoError(t, err)

	_, err = e.service.Fulfill(ctx, owner, req.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.service.Fulfill(ctx, admin, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, domain.CardStatusActive, e.status(t, cardID))
}

func TestFulfill_WaitsForCardLock(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 50*time.Millisecond)
	owner := e.user(t, "owner")
	cardID := e.card(t, owner, "4111111111111111", domain.CardStatusActive)
	req, err := e.service.CreateRequest(ctx, owner, CreateRequestInput{CardID: cardID, Operation: "BLOCK"})
	require.NoError(t, err)

	// A transfer in flight holds the card row.
	holder, err := memory.NewLedger(e.store, time.Second).Begin(ctx)
	require.NoError(t, err)
	_, err = holder.CardForUpdate(ctx, cardID)
	require.NoError(t, err)

	_, err = e.service.Fulfill(ctx, admin, req.ID)
	assert.ErrorIs(t, err, domain.ErrLockTimeout)

	stored, err := e.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatePending, stored.State)

	require.NoError(t, holder.Rollback())

	e.events.On("PublishCardBlocked", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	e.notifier.On("CardBlocked", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	_, err = e.service.Fulfill(ctx, admin, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CardStatusBlocked, e.status(t, cardID))
}

func TestCreateRequest(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, time.Second)
	owner := e.user(t, "owner")
	other := e.user(t, "other")
	cardID := e.card(t, owner, "4111111111111111", domain.CardStatusActive)

	tests := []struct {
		name      string
		principal domain.Principal
		input     CreateRequestInput
		wantErr   error
		wantState domain.RequestState
	}{
		{
			name:      "state token honored",
			principal: owner,
			input:     CreateRequestInput{CardID: cardID, Operation: "BLOCK", State: "complete"},
			wantState: domain.RequestStateComplete,
		},
		{
			name:      "unknown state token falls back to pending",
			principal: owner,
			input:     CreateRequestInput{CardID: cardID, Operation: "BLOCK", State: "whatever"},
			wantState: domain.RequestStatePending,
		},
		{
			name:      "admin files on behalf of owner",
			principal: admin,
			input:     CreateRequestInput{RequestorID: owner.UserID, CardID: cardID, Operation: "BLOCK"},
			wantState: domain.RequestStatePending,
		},
		{
			name:      "card owned by someone else",
			principal: other,
			input:     CreateRequestInput{CardID: cardID, Operation: "BLOCK"},
			wantErr:   domain.ErrForbidden,
		},
		{
			name:      "non-admin files for another user",
			principal: other,
			input:     CreateRequestInput{RequestorID: owner.UserID, CardID: cardID, Operation: "BLOCK"},
			wantErr:   domain.ErrForbidden,
		},
		{
			name:      "unknown card",
			principal: owner,
			input:     CreateRequestInput{CardID: uuid.New(), Operation: "BLOCK"},
			wantErr:   domain.ErrNotFound,
		},
		{
			name:      "unknown requestor",
			principal: admin,
			input:     CreateRequestInput{RequestorID: uuid.New(), CardID: cardID, Operation: "BLOCK"},
			wantErr:   domain.ErrNotFound,
		},
		{
			name:      "operation too short",
			principal: owner,
			input:     CreateRequestInput{CardID: cardID, Operation: "  b  "},
			wantErr:   domain.ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := e.service.CreateRequest(ctx, tt.principal, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, req)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, req.State)
		})
	}
}

func TestListPending(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, time.Second)
	owner := e.user(t, "owner")
	cardID := e.card(t, owner, "4111111111111111", domain.CardStatusActive)

	_, err := e.service.CreateRequest(ctx, owner, CreateRequestInput{CardID: cardID, Operation: "BLOCK"})
	require.NoError(t, err)
	_, err = e.service.CreateRequest(ctx, owner, CreateRequestInput{CardID: cardID, Operation: "BLOCK", State: "COMPLETE"})
	require.NoError(t, err)

	pending, err := e.service.ListPending(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = e.service.ListPending(ctx, owner)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
