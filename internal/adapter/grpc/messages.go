package grpc

import (
	"google.golang.org/protobuf/types/known/timestamppb"
)

type TransferRequest struct {
	FromCardId string `json:"from_card_id"`
	ToCardId   string `json:"to_card_id"`
	Amount     string `json:"amount"`
}

type TransferResponse struct {
	TransferId  string                 `json:"transfer_id"`
	FromBalance string                 `json:"from_balance"`
	ToBalance   string                 `json:"to_balance"`
	CreatedAt   *timestamppb.Timestamp `json:"created_at"`
}

// Card never carries the full number
type Card struct {
	Id           string `json:"id"`
	OwnerId      string `json:"owner_id"`
	MaskedNumber string `json:"masked_number"`
	Status       string `json:"status"`
	Expiry       string `json:"expiry"`
	Balance      string `json:"balance"`
}

type GetCardRequest struct {
	CardId string `json:"card_id"`
}

type GetCardResponse struct {
	Card *Card `json:"card"`
}

type ListCardsRequest struct {
	Status    string `json:"status,omitempty"`
	Last4     string `json:"last4,omitempty"`
	OwnerName string `json:"owner_name,omitempty"`
	Limit     int32  `json:"limit,omitempty"`
	Offset    int32  `json:"offset,omitempty"`
}

type ListCardsResponse struct {
	Cards []*Card `json:"cards"`
}

type IssueCardRequest struct {
	OwnerId string `json:"owner_id"`
	Number  string `json:"number,omitempty"`
	Expiry  string `json:"expiry,omitempty"`
	Status  string `json:"status,omitempty"`
	Balance string `json:"balance,omitempty"`
}

type IssueCardResponse struct {
	Card *Card `json:"card"`
}

type UpdateCardStatusRequest struct {
	CardId string `json:"card_id"`
	Status string `json:"status"`
}

type UpdateCardStatusResponse struct {
	Card *Card `json:"card"`
}

type BlockRequest struct {
	Id          string                 `json:"id"`
	RequestorId string                 `json:"requestor_id"`
	CardId      string                 `json:"card_id"`
	State       string                 `json:"state"`
	Operation   string                 `json:"operation"`
	CreatedAt   *timestamppb.Timestamp `json:"created_at"`
}

type CreateBlockRequestRequest struct {
	CardId      string `json:"card_id"`
	Operation   string `json:"operation"`
	RequestorId string `json:"requestor_id,omitempty"`
	State       string `json:"state,omitempty"`
}

type CreateBlockRequestResponse struct {
	Request *BlockRequest `json:"request"`
}

type FulfillRequestRequest struct {
	RequestId string `json:"request_id"`
}

type FulfillRequestResponse struct {
	Request *BlockRequest `json:"request"`
}
