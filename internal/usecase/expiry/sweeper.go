package expiry

import (
	"context"
	"errors"
	"time"

	"github.com/hyfoxus/bank-rest/internal/domain"
	"github.com/sirupsen/logrus"
)

const pageSize = 500

// Sweeper rewrites the stored status of cards whose expiry month has passed.
// Transfers never rely on it: usability is always recomputed from the expiry month.
type Sweeper struct {
	Cards  domain.CardRepository
	Ledger domain.Ledger
	Log    logrus.FieldLogger
	Now    func() time.Time
}

// NewSweeper creates a new Sweeper instance
func NewSweeper(cards domain.CardRepository, ledger domain.Ledger, log logrus.FieldLogger) *Sweeper {
	return &Sweeper{
		Cards:  cards,
		Ledger: ledger,
		Log:    log,
		Now:    time.Now,
	}
}

// Sweep marks every lapsed card EXPIRED, each under its own row lock.
// A failure on one card is logged and does not stop the sweep.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.Now().UTC()
	expired := 0
	var errs []error

	for offset := 0; ; offset += pageSize {
		cards, err := s.Cards.List(ctx, domain.CardFilter{Limit: pageSize, Offset: offset})
		if err != nil {
			return expired, err
		}

		for _, card := range cards {
			if card.Status == domain.CardStatusExpired || !card.Expiry.Passed(now) {
				continue
			}
			changed, err := s.expire(ctx, card, now)
			if err != nil {
				s.Log.WithError(err).WithField("card_id", card.ID).Warn("failed to expire card")
				errs = append(errs, err)
				continue
			}
			if changed {
				expired++
			}
		}

		if len(cards) < pageSize {
			break
		}
	}

	s.Log.WithFields(logrus.Fields{"expired": expired, "failed": len(errs)}).Info("expiry sweep finished")
	return expired, errors.Join(errs...)
}

func (s *Sweeper) expire(ctx context.Context, card *domain.Card, now time.Time) (bool, error) {
	tx, err := s.Ledger.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	locked, err := tx.CardForUpdate(ctx, card.ID)
	if err != nil {
		return false, err
	}
	// Re-check under the lock; the row may have changed since the listing.
	if locked.Status == domain.CardStatusExpired || !locked.Expiry.Passed(now) {
		return false, nil
	}
	if _, err := domain.Transition(locked, domain.CardStatusExpired); err != nil {
		return false, err
	}
	if err := tx.SaveCard(ctx, locked); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
