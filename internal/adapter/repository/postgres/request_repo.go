package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hyfoxus/bank-rest/internal/domain"
)

const requestColumns = `id, requestor_id, card_id, state, operation, created_at`

func scanRequest(row rowScanner) (*domain.Request, error) {
	var req domain.Request
	var state string

	if err := row.Scan(&req.ID, &req.RequestorID, &req.CardID, &state, &req.Operation, &req.CreatedAt); err != nil {
		return nil, err
	}

	// Unknown tokens read back as PENDING so a bad row never looks fulfilled.
	parsed, ok := domain.ParseRequestState(state)
	if !ok {
		parsed = domain.RequestStatePending
	}
	req.State = parsed
	req.CreatedAt = req.CreatedAt.UTC()

	return &req, nil
}

// requestRepository implements domain.RequestRepository
type requestRepository struct {
	db *DB
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *DB) domain.RequestRepository {
	return &requestRepository{db: db}
}

// GetByID retrieves a request by its ID
func (r *requestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`

	req, err := scanRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.KindNotFound, "request not found").With("request_id", id.String())
		}
		return nil, classify("get request by ID", err)
	}
	return req, nil
}

// Create creates a new request
func (r *requestRepository) Create(ctx context.Context, request *domain.Request) error {
	query := `
		INSERT INTO requests (id, requestor_id, card_id, state, operation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		request.ID,
		request.RequestorID,
		request.CardID,
		string(request.State),
		request.Operation,
		request.CreatedAt,
	)
	if err != nil {
		return classify("create request", err)
	}
	return nil
}

// ListByState retrieves all requests in the given state, oldest first
func (r *requestRepository) ListByState(ctx context.Context, state domain.RequestState) ([]*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE state = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, string(state))
	if err != nil {
		return nil, classify("list requests", err)
	}
	defer rows.Close()

	requests := make([]*domain.Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate requests", err)
	}
	return requests, nil
}
