package transfer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hyfoxus/bank-rest/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// TransferInput represents the input for moving funds between two cards
type TransferInput struct {
	FromCardID uuid.UUID
	ToCardID   uuid.UUID
	Amount     decimal.Decimal
}

// TransferResult is a committed transfer with both cards as written
type TransferResult struct {
	Transfer *domain.Transfer
	From     *domain.Card
	To       *domain.Card
}

// TransferService moves money between two cards of the same owner
type TransferService struct {
	Ledger    domain.Ledger
	Cards     domain.CardRepository
	Transfers domain.TransferRepository
	Events    domain.EventPublisher
	Log       logrus.FieldLogger
	Now       func() time.Time
}

// NewTransferService creates a new TransferService instance
func NewTransferService(
	ledger domain.Ledger,
	cards domain.CardRepository,
	transfers domain.TransferRepository,
	events domain.EventPublisher,
	log logrus.FieldLogger,
) *TransferService {
	return &TransferService{
		Ledger:    ledger,
		Cards:     cards,
		Transfers: transfers,
		Events:    events,
		Log:       log,
		Now:       time.Now,
	}
}

// Transfer moves input.Amount from one card to another in one ledger transaction.
// Logic:
//  1. Reject same-card and non-positive amounts before touching the store
//  2. Lock both cards in LockOrder
//  3. Check same owner, acting principal, usability of both cards, funds
//  4. Debit and credit, record the journal row, commit
//  5. Publish the transfer event (best effort)
//
// Any failure before commit leaves both balances untouched. Nothing is retried here.
func (s *TransferService) Transfer(ctx context.Context, principal domain.Principal, input TransferInput) (*TransferResult, error) {
	// 1. Preconditions without store access
	tr := &domain.Transfer{
		ID:         uuid.New(),
		FromCardID: input.FromCardID,
		ToCardID:   input.ToCardID,
		Amount:     domain.NormalizeAmount(input.Amount),
	}
	if err := tr.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.Ledger.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// 2. Lock in global order
	firstID, secondID := domain.LockOrder(tr.FromCardID, tr.ToCardID)
	first, err := tx.CardForUpdate(ctx, firstID)
	if err != nil {
		return nil, err
	}
	second, err := tx.CardForUpdate(ctx, secondID)
	if err != nil {
		return nil, err
	}
	from, to := first, second
	if firstID != tr.FromCardID {
		from, to = second, first
	}

	// 3. Validate
	if from.OwnerID != to.OwnerID {
		return nil, domain.NewError(domain.KindForbidden, "cross-owner transfer").
			With("from_card_id", from.ID.String()).
			With("to_card_id", to.ID.String())
	}
	if err := domain.AssertOwnerOrAdmin(principal, from); err != nil {
		return nil, err
	}

	now := s.Now().UTC()
	if err := domain.CheckUsable(from, now); err != nil {
		return nil, err
	}
	if err := domain.CheckUsable(to, now); err != nil {
		return nil, err
	}
	if from.Balance.LessThan(tr.Amount) {
		return nil, domain.NewError(domain.KindInsufficientFunds, "insufficient funds").
			With("card_id", from.ID.String()).
			With("amount", tr.Amount.StringFixed(domain.BalanceScale))
	}

	// 4. Mutate and persist
	from.Balance = from.Balance.Sub(tr.Amount)
	to.Balance = to.Balance.Add(tr.Amount)
	tr.CreatedAt = now

	if err := tx.SaveCard(ctx, from); err != nil {
		return nil, err
	}
	if err := tx.SaveCard(ctx, to); err != nil {
		return nil, err
	}
	if err := tx.RecordTransfer(ctx, tr); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log := s.Log.WithFields(logrus.Fields{
		"transfer_id":  tr.ID,
		"from_card_id": from.ID,
		"to_card_id":   to.ID,
		"amount":       tr.Amount.StringFixed(domain.BalanceScale),
	})
	log.Info("transfer committed")

	// 5. Publish
	if s.Events != nil {
		if err := s.Events.PublishTransfer(ctx, tr); err != nil {
			log.WithError(err).Warn("failed to publish transfer event")
		}
	}

	return &TransferResult{Transfer: tr, From: from, To: to}, nil
}

// ListTransfers returns the journal of a card the principal may see, newest first
func (s *TransferService) ListTransfers(ctx context.Context, principal domain.Principal, cardID uuid.UUID, limit, offset int) ([]*domain.Transfer, error) {
	card, err := s.Cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if err := domain.AssertOwnerOrAdmin(principal, card); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.Transfers.ListByCard(ctx, cardID, limit, offset)
}
