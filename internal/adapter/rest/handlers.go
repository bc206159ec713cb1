package rest

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hyfoxus/bank-rest/internal/domain"
	"github.com/hyfoxus/bank-rest/internal/usecase/blockrequest"
	"github.com/hyfoxus/bank-rest/internal/usecase/card"
	"github.com/hyfoxus/bank-rest/internal/usecase/transfer"
	"github.com/hyfoxus/bank-rest/internal/usecase/user"
	"github.com/shopspring/decimal"
)

type cardResponse struct {
	ID           string `json:"id"`
	OwnerID      string `json:"owner_id"`
	MaskedNumber string `json:"masked_number"`
	Expiry       string `json:"expiry"`
	Status       string `json:"status"`
	Balance      string `json:"balance"`
}

func newCardResponse(c *domain.Card) cardResponse {
	return cardResponse{
		ID:           c.ID.String(),
		OwnerID:      c.OwnerID.String(),
		MaskedNumber: c.MaskedNumber(),
		Expiry:       c.Expiry.String(),
		Status:       string(c.Status),
		Balance:      c.Balance.StringFixed(domain.BalanceScale),
	}
}

type transferResponse struct {
	ID          string    `json:"id"`
	FromCardID  string    `json:"from_card_id"`
	ToCardID    string    `json:"to_card_id"`
	Amount      string    `json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
	FromBalance string    `json:"from_balance,omitempty"`
	ToBalance   string    `json:"to_balance,omitempty"`
}

func newTransferResponse(t *domain.Transfer) transferResponse {
	return transferResponse{
		ID:         t.ID.String(),
		FromCardID: t.FromCardID.String(),
		ToCardID:   t.ToCardID.String(),
		Amount:     t.Amount.StringFixed(domain.BalanceScale),
		CreatedAt:  t.CreatedAt,
	}
}

type requestResponse struct {
	ID          string    `json:"id"`
	RequestorID string    `json:"requestor_id"`
	CardID      string    `json:"card_id"`
	State       string    `json:"state"`
	Operation   string    `json:"operation"`
	CreatedAt   time.Time `json:"created_at"`
}

func newRequestResponse(r *domain.Request) requestResponse {
	return requestResponse{
		ID:          r.ID.String(),
		RequestorID: r.RequestorID.String(),
		CardID:      r.CardID.String(),
		State:       string(r.State),
		Operation:   r.Operation,
		CreatedAt:   r.CreatedAt,
	}
}

type userResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Login exchanges a name/password pair for a bearer token
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.Log, err)
		return
	}

	u, err := h.Users.Authenticate(r.Context(), body.Username, body.Password)
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			writeStatus(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, h.Log, err)
		return
	}

	token, err := h.Issuer.Issue(u)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Transfer moves money between two of the caller's cards
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FromCardID uuid.UUID       `json:"from_card_id"`
		ToCardID   uuid.UUID       `json:"to_card_id"`
		Amount     decimal.Decimal `json:"amount"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.Log, err)
		return
	}

	result, err := h.Transfers.Transfer(r.Context(), principal(r), transfer.TransferInput{
		FromCardID: body.FromCardID,
		ToCardID:   body.ToCardID,
		Amount:     body.Amount,
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	resp := newTransferResponse(result.Transfer)
	resp.FromBalance = result.From.Balance.StringFixed(domain.BalanceScale)
	resp.ToBalance = result.To.Balance.StringFixed(domain.BalanceScale)
	writeJSON(w, http.StatusOK, resp)
}

// ListMyCards lists the caller's cards
func (h *Handler) ListMyCards(w http.ResponseWriter, r *http.Request) {
	h.listCards(w, r, false)
}

// ListCards lists every card, filtered by owner name when given
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	h.listCards(w, r, true)
}

func (h *Handler) listCards(w http.ResponseWriter, r *http.Request, byOwnerName bool) {
	limit, offset, err := page(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	q := r.URL.Query()
	filter := domain.CardFilter{
		Last4:  q.Get("last4"),
		Limit:  limit,
		Offset: offset,
	}
	if byOwnerName {
		filter.OwnerName = q.Get("owner")
	}
	if raw := q.Get("status"); raw != "" {
		if filter.Status, err = domain.ParseCardStatus(raw); err != nil {
			writeError(w, h.Log, err)
			return
		}
	}

	cards, err := h.Cards.List(r.Context(), principal(r), filter)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	resp := make([]cardResponse, 0, len(cards))
	for _, c := range cards {
		resp = append(resp, newCardResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetCard returns one card
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	c, err := h.Cards.Get(r.Context(), principal(r), id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, newCardResponse(c))
}

// ListCardTransfers returns the transfer journal of one card, newest first
func (h *Handler) ListCardTransfers(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	limit, offset, err := page(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	transfers, err := h.Transfers.ListTransfers(r.Context(), principal(r), id, limit, offset)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	resp := make([]transferResponse, 0, len(transfers))
	for _, t := range transfers {
		resp = append(resp, newTransferResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

// RequestBlock files a block request for one of the caller's cards
func (h *Handler) RequestBlock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CardID    uuid.UUID `json:"card_id"`
		Operation string    `json:"operation"`
		State     string    `json:"state"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.Log, err)
		return
	}

	// The requestor is always the caller here
	p := principal(r)
	req, err := h.Requests.CreateRequest(r.Context(), p, blockrequest.CreateRequestInput{
		RequestorID: p.UserID,
		CardID:      body.CardID,
		Operation:   body.Operation,
		State:       body.State,
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, newRequestResponse(req))
}

// ListPendingRequests returns the admin queue
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.Requests.ListPending(r.Context(), principal(r))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	resp := make([]requestResponse, 0, len(reqs))
	for _, req := range reqs {
		resp = append(resp, newRequestResponse(req))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CompleteRequest fulfills a pending request
func (h *Handler) CompleteRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	req, err := h.Requests.Fulfill(r.Context(), principal(r), id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, newRequestResponse(req))
}

// IssueCard issues a card to the user in the path
func (h *Handler) IssueCard(w http.ResponseWriter, r *http.Request) {
	ownerID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	var body struct {
		Number  string          `json:"number"`
		Expiry  string          `json:"expiry"`
		Status  string          `json:"status"`
		Balance decimal.Decimal `json:"balance"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.Log, err)
		return
	}

	c, err := h.Cards.Issue(r.Context(), principal(r), card.IssueCardInput{
		OwnerID: ownerID,
		Number:  body.Number,
		Expiry:  body.Expiry,
		Status:  body.Status,
		Balance: body.Balance,
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCardResponse(c))
}

// UpdateCardStatus applies a lifecycle transition
func (h *Handler) UpdateCardStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.Log, err)
		return
	}

	c, err := h.Cards.UpdateStatus(r.Context(), principal(r), id, body.Status)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, newCardResponse(c))
}

// UpdateCardBalance overwrites a card balance
func (h *Handler) UpdateCardBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	var body struct {
		Balance *decimal.Decimal `json:"balance"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.Log, err)
		return
	}
	if body.Balance == nil {
		writeError(w, h.Log, domain.NewError(domain.KindInvalidArgument, "balance is required"))
		return
	}

	c, err := h.Cards.UpdateBalance(r.Context(), principal(r), id, *body.Balance)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, newCardResponse(c))
}

// DeleteCard removes a card
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if err := h.Cards.Delete(r.Context(), principal(r), id); err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateUser registers a user
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.Log, err)
		return
	}

	u, err := h.Users.Create(r.Context(), principal(r), user.CreateUserInput{
		Name:     body.Name,
		Password: body.Password,
		Role:     body.Role,
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{ID: u.ID.String(), Name: u.Name, Role: string(u.Role)})
}

func principal(r *http.Request) domain.Principal {
	p, _ := domain.PrincipalFromContext(r.Context())
	return p
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	raw := mux.Vars(r)[name]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.Errorf(domain.KindInvalidArgument, "invalid %s format", name).With(name, raw)
	}
	return id, nil
}

// page reads limit and offset query parameters; zero means the use case default
func page(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			return 0, 0, domain.NewError(domain.KindInvalidArgument, "limit must be a non-negative integer")
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil || offset < 0 {
			return 0, 0, domain.NewError(domain.KindInvalidArgument, "offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}
