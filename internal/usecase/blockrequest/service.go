package blockrequest

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hyfoxus/bank-rest/internal/domain"
	"github.com/sirupsen/logrus"
)

// CreateRequestInput represents the input for filing a request against a card
type CreateRequestInput struct {
	RequestorID uuid.UUID // uuid.Nil means the acting principal
	CardID      uuid.UUID
	Operation   string
	State       string // optional state token; unknown tokens fall back to PENDING
}

// RequestService handles the block-request workflow
type RequestService struct {
	Ledger   domain.Ledger
	Requests domain.RequestRepository
	Cards    domain.CardRepository
	Users    domain.UserRepository
	Events   domain.EventPublisher
	Notifier domain.Notifier
	Log      logrus.FieldLogger
	Now      func() time.Time
}

// NewRequestService creates a new RequestService instance
func NewRequestService(
	ledger domain.Ledger,
	requests domain.RequestRepository,
	cards domain.CardRepository,
	users domain.UserRepository,
	events domain.EventPublisher,
	notifier domain.Notifier,
	log logrus.FieldLogger,
) *RequestService {
	return &RequestService{
		Ledger:   ledger,
		Requests: requests,
		Cards:    cards,
		Users:    users,
		Events:   events,
		Notifier: notifier,
		Log:      log,
		Now:      time.Now,
	}
}

// CreateRequest files a new request.
// Logic:
//  1. Resolve the requestor (defaults to the principal; only admins may file for others)
//  2. Requestor and card must exist
//  3. The principal must own the card unless admin
//  4. State comes from the token when it parses, PENDING otherwise
func (s *RequestService) CreateRequest(ctx context.Context, principal domain.Principal, input CreateRequestInput) (*domain.Request, error) {
	// 1. Resolve requestor
	requestorID := input.RequestorID
	if requestorID == uuid.Nil {
		requestorID = principal.UserID
	}
	if requestorID != principal.UserID && !principal.IsAdmin() {
		return nil, domain.NewError(domain.KindForbidden, "cannot file requests for another user").
			With("user_id", principal.UserID.String()).
			With("requestor_id", requestorID.String())
	}

	// 2. Existence
	if _, err := s.Users.GetByID(ctx, requestorID); err != nil {
		return nil, err
	}
	card, err := s.Cards.GetByID(ctx, input.CardID)
	if err != nil {
		return nil, err
	}

	// 3. Ownership
	if err := domain.AssertOwnerOrAdmin(principal, card); err != nil {
		return nil, err
	}

	// 4. State
	state, ok := domain.ParseRequestState(input.State)
	if !ok {
		state = domain.RequestStatePending
	}

	req := &domain.Request{
		ID:          uuid.New(),
		RequestorID: requestorID,
		CardID:      card.ID,
		State:       state,
		Operation:   strings.TrimSpace(input.Operation),
		CreatedAt:   s.Now().UTC(),
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.Requests.Create(ctx, req); err != nil {
		return nil, err
	}

	s.Log.WithFields(logrus.Fields{
		"request_id": req.ID,
		"card_id":    req.CardID,
		"state":      req.State,
	}).Info("request created")

	return req, nil
}

// Fulfill completes a pending request and applies its intent to the card.
// Logic:
//  1. Admin only
//  2. Lock the request; a COMPLETE request is returned unchanged
//  3. Only block intents are supported; anything else is rejected before any write
//  4. Lock the card and move it to BLOCKED unless it already is
//  5. Mark the request COMPLETE and commit both rows together
//  6. Announce the block (best effort)
func (s *RequestService) Fulfill(ctx context.Context, principal domain.Principal, requestID uuid.UUID) (*domain.Request, error) {
	// 1. Authorization
	if err := domain.AssertAdmin(principal); err != nil {
		return nil, err
	}

	tx, err := s.Ledger.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// 2. Lock the request
	req, err := tx.RequestForUpdate(ctx, requestID)
	if err != nil {
		return nil, err
	}
	log := s.Log.WithFields(logrus.Fields{"request_id": req.ID, "card_id": req.CardID})
	if req.IsComplete() {
		log.Debug("request already complete")
		return req, nil
	}

	// 3. Intent
	if !domain.IsBlockIntent(req.Operation) {
		return nil, domain.NewError(domain.KindInvalidArgument, "unsupported operation").
			With("request_id", req.ID.String()).
			With("operation", req.Operation)
	}

	// 4. Block the card
	card, err := tx.CardForUpdate(ctx, req.CardID)
	if err != nil {
		return nil, err
	}
	blocked := false
	if card.Status != domain.CardStatusBlocked {
		if _, err := domain.Transition(card, domain.CardStatusBlocked); err != nil {
			return nil, err
		}
		if err := tx.SaveCard(ctx, card); err != nil {
			return nil, err
		}
		blocked = true
	}

	// 5. Complete the request
	req.State = domain.RequestStateComplete
	if err := tx.SaveRequest(ctx, req); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	log.WithField("card_blocked", blocked).Info("request fulfilled")

	// 6. Announce
	if blocked {
		s.announceBlocked(ctx, log, card, req)
	}

	return req, nil
}

func (s *RequestService) announceBlocked(ctx context.Context, log logrus.FieldLogger, card *domain.Card, req *domain.Request) {
	if s.Events != nil {
		if err := s.Events.PublishCardBlocked(ctx, card, req); err != nil {
			log.WithError(err).Warn("failed to publish card blocked event")
		}
	}
	if s.Notifier != nil {
		if err := s.Notifier.CardBlocked(ctx, card, req); err != nil {
			log.WithError(err).Warn("failed to send card blocked notification")
		}
	}
}

// ListPending returns the admin queue of PENDING requests, oldest first
func (s *RequestService) ListPending(ctx context.Context, principal domain.Principal) ([]*domain.Request, error) {
	if err := domain.AssertAdmin(principal); err != nil {
		return nil, err
	}
	return s.Requests.ListByState(ctx, domain.RequestStatePending)
}
