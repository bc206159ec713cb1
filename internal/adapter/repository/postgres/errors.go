package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/hyfoxus/bank-rest/internal/domain"
	"github.com/lib/pq"
)

// classify maps driver failures onto domain error kinds.
// Errors it does not recognise are wrapped with op and surface as Internal.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "55P03":
			return domain.NewError(domain.KindLockTimeout, "lock wait exceeded").With("op", op).Wrap(err)
		case "40001", "40P01":
			return domain.NewError(domain.KindConflict, "concurrent update, retry").Retryable().With("op", op).Wrap(err)
		case "23505":
			return domain.NewError(domain.KindConflict, "duplicate key").With("constraint", pqErr.Constraint).Wrap(err)
		case "23503":
			return domain.NewError(domain.KindConflict, "row is referenced").With("constraint", pqErr.Constraint).Wrap(err)
		case "23514":
			return domain.NewError(domain.KindInvalidState, "check constraint violated").With("constraint", pqErr.Constraint).Wrap(err)
		}
		if pqErr.Code.Class() == "08" || pqErr.Code.Class() == "57" {
			return domain.NewError(domain.KindUnavailable, "database unavailable").With("op", op).Wrap(err)
		}
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.NewError(domain.KindUnavailable, "database unavailable").With("op", op).Wrap(err)
	}

	return fmt.Errorf("failed to %s: %w", op, err)
}
