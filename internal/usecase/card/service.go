package card

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hyfoxus/bank-rest/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100

	numberLength  = 16
	issueAttempts = 3
	validityYears = 4
)

// IssueCardInput represents the input for issuing a card to a user
type IssueCardInput struct {
	OwnerID uuid.UUID
	Number  string // generated when empty
	Expiry  string // MM/YY; defaults to validityYears from now
	Status  string // defaults to ACTIVE
	Balance decimal.Decimal
}

// CardService handles card administration and card views
type CardService struct {
	Ledger domain.Ledger
	Cards  domain.CardRepository
	Users  domain.UserRepository
	Log    logrus.FieldLogger
	Now    func() time.Time
}

// NewCardService creates a new CardService instance
func NewCardService(ledger domain.Ledger, cards domain.CardRepository, users domain.UserRepository, log logrus.FieldLogger) *CardService {
	return &CardService{
		Ledger: ledger,
		Cards:  cards,
		Users:  users,
		Log:    log,
		Now:    time.Now,
	}
}

// Issue creates a card for a user. Admin only.
// Logic:
//  1. Owner must exist
//  2. Parse expiry and status, normalize balance
//  3. Generate a number when none is given, retrying on a number collision
func (s *CardService) Issue(ctx context.Context, principal domain.Principal, input IssueCardInput) (*domain.Card, error) {
	if err := domain.AssertAdmin(principal); err != nil {
		return nil, err
	}

	// 1. Owner
	if _, err := s.Users.GetByID(ctx, input.OwnerID); err != nil {
		return nil, err
	}

	// 2. Attributes
	expiry := domain.ExpiryFromDate(s.Now().UTC().AddDate(validityYears, 0, 0))
	if input.Expiry != "" {
		parsed, err := domain.ParseExpiry(input.Expiry)
		if err != nil {
			return nil, err
		}
		expiry = parsed
	}
	status := domain.CardStatusActive
	if input.Status != "" {
		parsed, err := domain.ParseCardStatus(input.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}

	card := &domain.Card{
		OwnerID: input.OwnerID,
		Balance: domain.NormalizeAmount(input.Balance),
		Status:  status,
		Expiry:  expiry,
	}

	// 3. Number
	for attempt := 1; ; attempt++ {
		card.ID = uuid.New()
		card.Number = input.Number
		if card.Number == "" {
			number, err := GenerateNumber(DefaultPrefix, numberLength)
			if err != nil {
				return nil, err
			}
			card.Number = number
		}
		if err := card.Validate(); err != nil {
			return nil, err
		}

		err := s.Cards.Create(ctx, card)
		if err == nil {
			break
		}
		if input.Number != "" || !errors.Is(err, domain.ErrConflict) || attempt == issueAttempts {
			return nil, err
		}
	}

	s.Log.WithFields(logrus.Fields{
		"card_id": card.ID,
		"user_id": card.OwnerID,
		"last4":   card.Last4(),
	}).Info("card issued")

	return card, nil
}

// Get returns a card the principal owns, or any card for an admin
func (s *CardService) Get(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Card, error) {
	card, err := s.Cards.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.AssertOwnerOrAdmin(principal, card); err != nil {
		return nil, err
	}
	return card, nil
}

// List returns cards matching the filter. Non-admins only ever see their own cards.
func (s *CardService) List(ctx context.Context, principal domain.Principal, filter domain.CardFilter) ([]*domain.Card, error) {
	if !principal.IsAdmin() {
		owner := principal.UserID
		filter.OwnerID = &owner
		filter.OwnerName = ""
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.Cards.List(ctx, filter)
}

// UpdateStatus applies a lifecycle transition under the card row lock. Admin only.
func (s *CardService) UpdateStatus(ctx context.Context, principal domain.Principal, id uuid.UUID, status string) (*domain.Card, error) {
	if err := domain.AssertAdmin(principal); err != nil {
		return nil, err
	}
	newStatus, err := domain.ParseCardStatus(status)
	if err != nil {
		return nil, err
	}

	return s.updateLocked(ctx, id, func(card *domain.Card) error {
		_, err := domain.Transition(card, newStatus)
		return err
	})
}

// UpdateBalance overwrites the balance under the card row lock. Admin only.
func (s *CardService) UpdateBalance(ctx context.Context, principal domain.Principal, id uuid.UUID, balance decimal.Decimal) (*domain.Card, error) {
	if err := domain.AssertAdmin(principal); err != nil {
		return nil, err
	}
	balance = domain.NormalizeAmount(balance)
	if balance.IsNegative() {
		return nil, domain.NewError(domain.KindInvalidArgument, "balance cannot be negative").
			With("card_id", id.String()).
			With("balance", balance.String())
	}

	return s.updateLocked(ctx, id, func(card *domain.Card) error {
		card.Balance = balance
		return nil
	})
}

func (s *CardService) updateLocked(ctx context.Context, id uuid.UUID, apply func(card *domain.Card) error) (*domain.Card, error) {
	tx, err := s.Ledger.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	card, err := tx.CardForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(card); err != nil {
		return nil, err
	}
	if err := tx.SaveCard(ctx, card); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.Log.WithFields(logrus.Fields{
		"card_id": card.ID,
		"status":  card.Status,
		"balance": card.Balance.StringFixed(domain.BalanceScale),
	}).Info("card updated")

	return card, nil
}

// Delete removes a card. Admin only; fails with Conflict while requests reference it.
func (s *CardService) Delete(ctx context.Context, principal domain.Principal, id uuid.UUID) error {
	if err := domain.AssertAdmin(principal); err != nil {
		return err
	}
	if err := s.Cards.Delete(ctx, id); err != nil {
		return err
	}
	s.Log.WithField("card_id", id).Info("card deleted")
	return nil
}
