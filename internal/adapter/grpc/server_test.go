package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hyfoxus/bank-rest/internal/adapter/auth"
	"github.com/hyfoxus/bank-rest/internal/adapter/events"
	"github.com/hyfoxus/bank-rest/internal/adapter/notify"
	"github.com/hyfoxus/bank-rest/internal/adapter/repository/memory"
	"github.com/hyfoxus/bank-rest/internal/domain"
	"github.com/hyfoxus/bank-rest/internal/usecase/blockrequest"
	"github.com/hyfoxus/bank-rest/internal/usecase/card"
	"github.com/hyfoxus/bank-rest/internal/usecase/transfer"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"not found", domain.NewError(domain.KindNotFound, "card"), codes.NotFound},
		{"invalid argument", domain.NewError(domain.KindInvalidArgument, "same card"), codes.InvalidArgument},
		{"forbidden", domain.NewError(domain.KindForbidden, "admin role required"), codes.PermissionDenied},
		{"invalid state", domain.NewError(domain.KindInvalidState, "blocked"), codes.FailedPrecondition},
		{"insufficient funds", domain.NewError(domain.KindInsufficientFunds, "insufficient funds"), codes.FailedPrecondition},
		{"conflict", domain.NewError(domain.KindConflict, "serialization failure"), codes.Aborted},
		{"lock timeout", domain.NewError(domain.KindLockTimeout, "lock wait exceeded"), codes.Unavailable},
		{"unavailable", domain.NewError(domain.KindUnavailable, "store down"), codes.Unavailable},
		{"wrapped domain error", fmt.Errorf("transfer: %w", domain.NewError(domain.KindNotFound, "card")), codes.NotFound},
		{"plain error", errors.New("boom"), codes.Internal},
		{"canceled", domain.NewError(domain.KindUnavailable, "lock wait canceled").Wrap(context.Canceled), codes.Canceled},
		{"status passes through", status.Error(codes.Unauthenticated, "nope"), codes.Unauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, ok := status.FromError(mapError(tt.err))
			require.True(t, ok)
			assert.Equal(t, tt.want, st.Code())
		})
	}

	assert.NoError(t, mapError(nil))
}

const testSecret = "e2e-secret"

type e2e struct {
	client *BankServiceClient
	users  domain.UserRepository
	issuer *auth.Issuer
}

func newE2E(t *testing.T) *e2e {
	t.Helper()

	store := memory.NewStore()
	users := memory.NewUserRepository(store)
	cards := memory.NewCardRepository(store, time.Second)
	ledger := memory.NewLedger(store, time.Second)
	log, _ := test.NewNullLogger()

	srv := NewServer(
		transfer.NewTransferService(ledger, cards, memory.NewTransferRepository(store), events.NopPublisher{}, log),
		card.NewCardService(ledger, cards, users, log),
		blockrequest.NewRequestService(ledger, memory.NewRequestRepository(store), cards, users, events.NopPublisher{}, notify.Nop{}, log),
	)

	lis := bufconn.Listen(1 << 20)
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(AuthInterceptor(auth.NewVerifier(testSecret))))
	RegisterBankServiceServer(grpcServer, srv)
	go func() {
		_ = grpcServer.Serve(lis)
	}()
	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &e2e{
		client: NewBankServiceClient(conn),
		users:  users,
		issuer: auth.NewIssuer(testSecret, time.Hour),
	}
}

// login creates a user and returns a context carrying its token
func (e *e2e) login(t *testing.T, name string, role domain.Role) (context.Context, *domain.User) {
	t.Helper()
	u := &domain.User{ID: uuid.New(), Name: name, Role: role}
	require.NoError(t, e.users.Create(context.Background(), u))
	token, err := e.issuer.Issue(u)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token), u
}

func requireCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok, "error should be a gRPC status")
	assert.Equal(t, want, st.Code(), st.Message())
}

func TestBankService_EndToEnd(t *testing.T) {
	e := newE2E(t)
	adminCtx, _ := e.login(t, "admin", domain.RoleAdmin)
	aliceCtx, alice := e.login(t, "alice", domain.RoleUser)

	// Issue two cards for alice
	issued, err := e.client.IssueCard(adminCtx, &IssueCardRequest{OwnerId: alice.ID.String(), Balance: "100"})
	require.NoError(t, err)
	from := issued.Card
	issued, err = e.client.IssueCard(adminCtx, &IssueCardRequest{OwnerId: alice.ID.String()})
	require.NoError(t, err)
	to := issued.Card

	assert.Equal(t, "ACTIVE", from.Status)
	assert.Regexp(t, `^\*{4} \*{4} \*{4} \d{4}$`, from.MaskedNumber)

	// A user cannot issue cards
	_, err = e.client.IssueCard(aliceCtx, &IssueCardRequest{OwnerId: alice.ID.String()})
	requireCode(t, err, codes.PermissionDenied)

	// Transfer between own cards
	res, err := e.client.Transfer(aliceCtx, &TransferRequest{FromCardId: from.Id, ToCardId: to.Id, Amount: "30"})
	require.NoError(t, err)
	assert.Equal(t, "70.00", res.FromBalance)
	assert.Equal(t, "30.00", res.ToBalance)
	assert.NotEmpty(t, res.TransferId)
	require.NotNil(t, res.CreatedAt)

	_, err = e.client.Transfer(aliceCtx, &TransferRequest{FromCardId: from.Id, ToCardId: to.Id, Amount: "500"})
	requireCode(t, err, codes.FailedPrecondition)

	_, err = e.client.Transfer(aliceCtx, &TransferRequest{FromCardId: from.Id, ToCardId: from.Id, Amount: "1"})
	requireCode(t, err, codes.InvalidArgument)

	list, err := e.client.ListCards(aliceCtx, &ListCardsRequest{})
	require.NoError(t, err)
	assert.Len(t, list.Cards, 2)

	// Block request workflow
	created, err := e.client.CreateBlockRequest(aliceCtx, &CreateBlockRequestRequest{CardId: from.Id, Operation: "BLOCK"})
	require.NoError(t, err)
	assert.Equal(t, "PENDING", created.Request.State)
	assert.Equal(t, alice.ID.String(), created.Request.RequestorId)

	_, err = e.client.FulfillRequest(aliceCtx, &FulfillRequestRequest{RequestId: created.Request.Id})
	requireCode(t, err, codes.PermissionDenied)

	fulfilled, err := e.client.FulfillRequest(adminCtx, &FulfillRequestRequest{RequestId: created.Request.Id})
	require.NoError(t, err)
	assert.Equal(t, "COMPLETE", fulfilled.Request.State)

	got, err := e.client.GetCard(aliceCtx, &GetCardRequest{CardId: from.Id})
	require.NoError(t, err)
	assert.Equal(t, "BLOCKED", got.Card.Status)
	assert.Equal(t, "70.00", got.Card.Balance)

	_, err = e.client.Transfer(aliceCtx, &TransferRequest{FromCardId: from.Id, ToCardId: to.Id, Amount: "1"})
	requireCode(t, err, codes.FailedPrecondition)

	// Admin reactivates the card
	updated, err := e.client.UpdateCardStatus(adminCtx, &UpdateCardStatusRequest{CardId: from.Id, Status: "active"})
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", updated.Card.Status)
}

func TestBankService_RequestErrors(t *testing.T) {
	e := newE2E(t)
	aliceCtx, _ := e.login(t, "alice", domain.RoleUser)
	adminCtx, _ := e.login(t, "admin", domain.RoleAdmin)
	bobCtx, bob := e.login(t, "bob", domain.RoleUser)

	issued, err := e.client.IssueCard(adminCtx, &IssueCardRequest{OwnerId: bob.ID.String(), Balance: "10"})
	require.NoError(t, err)

	_, err = e.client.GetCard(context.Background(), &GetCardRequest{CardId: issued.Card.Id})
	requireCode(t, err, codes.Unauthenticated)

	_, err = e.client.GetCard(aliceCtx, &GetCardRequest{CardId: "not-a-uuid"})
	requireCode(t, err, codes.InvalidArgument)

	_, err = e.client.GetCard(aliceCtx, &GetCardRequest{CardId: uuid.NewString()})
	requireCode(t, err, codes.NotFound)

	_, err = e.client.GetCard(aliceCtx, &GetCardRequest{CardId: issued.Card.Id})
	requireCode(t, err, codes.PermissionDenied)

	_, err = e.client.CreateBlockRequest(aliceCtx, &CreateBlockRequestRequest{CardId: issued.Card.Id, Operation: "BLOCK"})
	requireCode(t, err, codes.PermissionDenied)

	created, err := e.client.CreateBlockRequest(bobCtx, &CreateBlockRequestRequest{CardId: issued.Card.Id, Operation: "UNBLOCK"})
	require.NoError(t, err)
	_, err = e.client.FulfillRequest(adminCtx, &FulfillRequestRequest{RequestId: created.Request.Id})
	requireCode(t, err, codes.InvalidArgument)

	// State token is honoured when it parses and falls back to PENDING otherwise
	stated, err := e.client.CreateBlockRequest(bobCtx, &CreateBlockRequestRequest{CardId: issued.Card.Id, Operation: "BLOCK", State: "complete"})
	require.NoError(t, err)
	assert.Equal(t, "COMPLETE", stated.Request.State)

	unknown, err := e.client.CreateBlockRequest(bobCtx, &CreateBlockRequestRequest{CardId: issued.Card.Id, Operation: "BLOCK", State: "bogus"})
	require.NoError(t, err)
	assert.Equal(t, "PENDING", unknown.Request.State)

	_, err = e.client.ListCards(bobCtx, &ListCardsRequest{Status: "FROZEN"})
	requireCode(t, err, codes.InvalidArgument)
}
