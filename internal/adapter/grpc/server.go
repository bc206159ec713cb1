package grpc

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hyfoxus/bank-rest/internal/domain"
	"github.com/hyfoxus/bank-rest/internal/usecase/blockrequest"
	"github.com/hyfoxus/bank-rest/internal/usecase/card"
	"github.com/hyfoxus/bank-rest/internal/usecase/transfer"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Server implements the BankService gRPC server
type Server struct {
	TransferService *transfer.TransferService
	CardService     *card.CardService
	RequestService  *blockrequest.RequestService
}

// NewServer creates a new gRPC server instance
func NewServer(
	transferService *transfer.TransferService,
	cardService *card.CardService,
	requestService *blockrequest.RequestService,
) *Server {
	return &Server{
		TransferService: transferService,
		CardService:     cardService,
		RequestService:  requestService,
	}
}

// Transfer handles the Transfer RPC
func (s *Server) Transfer(ctx context.Context, req *TransferRequest) (*TransferResponse, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}

	fromID, err := parseID("from_card_id", req.FromCardId)
	if err != nil {
		return nil, err
	}
	toID, err := parseID("to_card_id", req.ToCardId)
	if err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid amount format: %v", err)
	}

	result, err := s.TransferService.Transfer(ctx, principal, transfer.TransferInput{
		FromCardID: fromID,
		ToCardID:   toID,
		Amount:     amount,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &TransferResponse{
		TransferId:  result.Transfer.ID.String(),
		FromBalance: result.From.Balance.StringFixed(domain.BalanceScale),
		ToBalance:   result.To.Balance.StringFixed(domain.BalanceScale),
		CreatedAt:   timestamppb.New(result.Transfer.CreatedAt),
	}, nil
}

// GetCard handles the GetCard RPC
func (s *Server) GetCard(ctx context.Context, req *GetCardRequest) (*GetCardResponse, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID("card_id", req.CardId)
	if err != nil {
		return nil, err
	}

	c, err := s.CardService.Get(ctx, principal, id)
	if err != nil {
		return nil, mapError(err)
	}
	return &GetCardResponse{Card: domainCardToProto(c)}, nil
}

// ListCards handles the ListCards RPC
func (s *Server) ListCards(ctx context.Context, req *ListCardsRequest) (*ListCardsResponse, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if req.Limit < 0 {
		return nil, status.Errorf(codes.InvalidArgument, "limit must be non-negative")
	}
	if req.Offset < 0 {
		return nil, status.Errorf(codes.InvalidArgument, "offset must be non-negative")
	}

	filter := domain.CardFilter{
		OwnerName: req.OwnerName,
		Last4:     req.Last4,
		Limit:     int(req.Limit),
		Offset:    int(req.Offset),
	}
	// An empty status means no filter
	if req.Status != "" {
		st, err := domain.ParseCardStatus(req.Status)
		if err != nil {
			return nil, mapError(err)
		}
		filter.Status = st
	}

	cards, err := s.CardService.List(ctx, principal, filter)
	if err != nil {
		return nil, mapError(err)
	}

	protoCards := make([]*Card, 0, len(cards))
	for _, c := range cards {
		protoCards = append(protoCards, domainCardToProto(c))
	}
	return &ListCardsResponse{Cards: protoCards}, nil
}

// IssueCard handles the IssueCard RPC
func (s *Server) IssueCard(ctx context.Context, req *IssueCardRequest) (*IssueCardResponse, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	ownerID, err := parseID("owner_id", req.OwnerId)
	if err != nil {
		return nil, err
	}

	input := card.IssueCardInput{
		OwnerID: ownerID,
		Number:  req.Number,
		Expiry:  req.Expiry,
		Status:  req.Status,
	}
	if req.Balance != "" {
		if input.Balance, err = decimal.NewFromString(req.Balance); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid balance format: %v", err)
		}
	}

	c, err := s.CardService.Issue(ctx, principal, input)
	if err != nil {
		return nil, mapError(err)
	}
	return &IssueCardResponse{Card: domainCardToProto(c)}, nil
}

// UpdateCardStatus handles the UpdateCardStatus RPC
func (s *Server) UpdateCardStatus(ctx context.Context, req *UpdateCardStatusRequest) (*UpdateCardStatusResponse, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID("card_id", req.CardId)
	if err != nil {
		return nil, err
	}

	c, err := s.CardService.UpdateStatus(ctx, principal, id, req.Status)
	if err != nil {
		return nil, mapError(err)
	}
	return &UpdateCardStatusResponse{Card: domainCardToProto(c)}, nil
}

// CreateBlockRequest handles the CreateBlockRequest RPC
func (s *Server) CreateBlockRequest(ctx context.Context, req *CreateBlockRequestRequest) (*CreateBlockRequestResponse, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	cardID, err := parseID("card_id", req.CardId)
	if err != nil {
		return nil, err
	}

	input := blockrequest.CreateRequestInput{
		CardID:    cardID,
		Operation: req.Operation,
		State:     req.State,
	}
	// Parse optional requestor; the acting user files the request otherwise
	if req.RequestorId != "" {
		if input.RequestorID, err = parseID("requestor_id", req.RequestorId); err != nil {
			return nil, err
		}
	}

	r, err := s.RequestService.CreateRequest(ctx, principal, input)
	if err != nil {
		return nil, mapError(err)
	}
	return &CreateBlockRequestResponse{Request: domainRequestToProto(r)}, nil
}

// FulfillRequest handles the FulfillRequest RPC
func (s *Server) FulfillRequest(ctx context.Context, req *FulfillRequestRequest) (*FulfillRequestResponse, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID("request_id", req.RequestId)
	if err != nil {
		return nil, err
	}

	r, err := s.RequestService.Fulfill(ctx, principal, id)
	if err != nil {
		return nil, mapError(err)
	}
	return &FulfillRequestResponse{Request: domainRequestToProto(r)}, nil
}

func principalFrom(ctx context.Context) (domain.Principal, error) {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return domain.Principal{}, status.Error(codes.Unauthenticated, "missing principal")
	}
	return p, nil
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", field, err)
	}
	return id, nil
}

// domainCardToProto converts a domain Card to a Card message
func domainCardToProto(c *domain.Card) *Card {
	return &Card{
		Id:           c.ID.String(),
		OwnerId:      c.OwnerID.String(),
		MaskedNumber: c.MaskedNumber(),
		Status:       string(c.Status),
		Expiry:       c.Expiry.String(),
		Balance:      c.Balance.StringFixed(domain.BalanceScale),
	}
}

// domainRequestToProto converts a domain Request to a BlockRequest message
func domainRequestToProto(r *domain.Request) *BlockRequest {
	return &BlockRequest{
		Id:          r.ID.String(),
		RequestorId: r.RequestorID.String(),
		CardId:      r.CardID.String(),
		State:       string(r.State),
		Operation:   r.Operation,
		CreatedAt:   timestamppb.New(r.CreatedAt),
	}
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}

	var code codes.Code
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		code = codes.NotFound
	case domain.KindInvalidArgument:
		code = codes.InvalidArgument
	case domain.KindForbidden:
		code = codes.PermissionDenied
	case domain.KindInvalidState, domain.KindInsufficientFunds:
		code = codes.FailedPrecondition
	case domain.KindConflict:
		code = codes.Aborted
	case domain.KindLockTimeout, domain.KindUnavailable:
		code = codes.Unavailable
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}
