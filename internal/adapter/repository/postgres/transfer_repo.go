package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hyfoxus/bank-rest/internal/domain"
	"github.com/shopspring/decimal"
)

// transferRepository implements domain.TransferRepository
type transferRepository struct {
	db *DB
}

// NewTransferRepository creates a new transfer journal reader
func NewTransferRepository(db *DB) domain.TransferRepository {
	return &transferRepository{db: db}
}

// ListByCard retrieves transfers touching the card, newest first
func (r *transferRepository) ListByCard(ctx context.Context, cardID uuid.UUID, limit, offset int) ([]*domain.Transfer, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, from_card_id, to_card_id, amount, created_at
		FROM transfers
		WHERE from_card_id = $1 OR to_card_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, cardID, limit, offset)
	if err != nil {
		return nil, classify("list transfers", err)
	}
	defer rows.Close()

	transfers := make([]*domain.Transfer, 0)
	for rows.Next() {
		var t domain.Transfer
		var amountStr string
		if err := rows.Scan(&t.ID, &t.FromCardID, &t.ToCardID, &amountStr, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount: %w", err)
		}
		t.Amount = amount
		t.CreatedAt = t.CreatedAt.UTC()
		transfers = append(transfers, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate transfers", err)
	}
	return transfers, nil
}
