package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hyfoxus/bank-rest/internal/domain"
	"github.com/shopspring/decimal"
)

const cardColumns = `c.id, c.owner_id, c.number, c.balance, c.status, c.expiry`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanCard reads one row selected with cardColumns
func scanCard(row rowScanner) (*domain.Card, error) {
	var card domain.Card
	var balanceStr string
	var status string
	var expiry time.Time

	if err := row.Scan(&card.ID, &card.OwnerID, &card.Number, &balanceStr, &status, &expiry); err != nil {
		return nil, err
	}

	// Parse balance (NUMERIC)
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance: %w", err)
	}
	card.Balance = balance
	card.Status = domain.CardStatus(status)
	card.Expiry = domain.ExpiryFromDate(expiry)

	return &card, nil
}

// cardRepository implements domain.CardRepository
type cardRepository struct {
	db          *DB
	lockTimeout time.Duration
}

// NewCardRepository creates a new card repository
func NewCardRepository(db *DB, lockTimeout time.Duration) domain.CardRepository {
	return &cardRepository{db: db, lockTimeout: lockTimeout}
}

// GetByID retrieves a card by its ID
func (r *cardRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards c WHERE c.id = $1`

	card, err := scanCard(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.KindNotFound, "card not found").With("card_id", id.String())
		}
		return nil, classify("get card by ID", err)
	}
	return card, nil
}

// Create creates a new card
func (r *cardRepository) Create(ctx context.Context, card *domain.Card) error {
	query := `
		INSERT INTO cards (id, owner_id, number, balance, status, expiry)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		card.ID,
		card.OwnerID,
		card.Number,
		card.Balance.StringFixed(domain.BalanceScale),
		string(card.Status),
		card.Expiry.LastDay(),
	)
	if err != nil {
		return classify("create card", err)
	}
	return nil
}

// List retrieves cards matching the filter, ordered by ID
func (r *cardRepository) List(ctx context.Context, filter domain.CardFilter) ([]*domain.Card, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	from := `cards c`
	if filter.OwnerID != nil {
		where = append(where, "c.owner_id = "+arg(*filter.OwnerID))
	}
	if filter.OwnerName != "" {
		from = `cards c JOIN users u ON u.id = c.owner_id`
		where = append(where, "u.name = "+arg(filter.OwnerName))
	}
	if filter.Status != "" {
		where = append(where, "c.status = "+arg(string(filter.Status)))
	}
	if filter.Last4 != "" {
		where = append(where, "right(c.number, 4) = "+arg(filter.Last4))
	}

	query := `SELECT ` + cardColumns + ` FROM ` + from
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY c.id`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("list cards", err)
	}
	defer rows.Close()

	cards := make([]*domain.Card, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate cards", err)
	}
	return cards, nil
}

// Delete removes a card. Requests referencing it make the delete fail with Conflict.
func (r *cardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin transaction", err)
	}
	defer dbTx.Rollback()

	if err := setLockTimeout(ctx, dbTx, r.lockTimeout); err != nil {
		return err
	}

	res, err := dbTx.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return classify("delete card", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("delete card", err)
	}
	if n == 0 {
		return domain.NewError(domain.KindNotFound, "card not found").With("card_id", id.String())
	}

	if err := dbTx.Commit(); err != nil {
		return classify("commit card delete", err)
	}
	return nil
}
