package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceScale is the fixed-point scale of every balance and amount
const BalanceScale int32 = 2

// CardStatus represents the lifecycle status of a card
type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
	CardStatusExpired CardStatus = "EXPIRED"
)

// Valid reports whether s is a known status
func (s CardStatus) Valid() bool {
	switch s {
	case CardStatusActive, CardStatusBlocked, CardStatusExpired:
		return true
	}
	return false
}

// ParseCardStatus parses a status name case-insensitively
func ParseCardStatus(s string) (CardStatus, error) {
	status := CardStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", Errorf(KindInvalidArgument, "malformed status %q", s)
	}
	return status, nil
}

// ExpiryMonth is the month/year a card is valid through
type ExpiryMonth struct {
	Year  int
	Month time.Month
}

// ParseExpiry parses an expiry in MM/YY form
func ParseExpiry(s string) (ExpiryMonth, error) {
	t, err := time.Parse("01/06", strings.TrimSpace(s))
	if err != nil {
		return ExpiryMonth{}, Errorf(KindInvalidArgument, "malformed expiry %q, expected MM/YY", s)
	}
	return ExpiryMonth{Year: t.Year(), Month: t.Month()}, nil
}

// ExpiryFromDate returns the expiry month containing t
func ExpiryFromDate(t time.Time) ExpiryMonth {
	return ExpiryMonth{Year: t.Year(), Month: t.Month()}
}

// IsZero reports whether the expiry was never set
func (e ExpiryMonth) IsZero() bool {
	return e.Year == 0 && e.Month == 0
}

// LastDay returns the last calendar day of the expiry month (UTC midnight)
func (e ExpiryMonth) LastDay() time.Time {
	return e.firstInstantAfter().AddDate(0, 0, -1)
}

func (e ExpiryMonth) firstInstantAfter() time.Time {
	return time.Date(e.Year, e.Month+1, 1, 0, 0, 0, 0, time.UTC)
}

// Passed reports whether asOf is after the end of the expiry month
func (e ExpiryMonth) Passed(asOf time.Time) bool {
	if e.IsZero() {
		return false
	}
	return !asOf.UTC().Before(e.firstInstantAfter())
}

func (e ExpiryMonth) String() string {
	return fmt.Sprintf("%02d/%02d", int(e.Month), e.Year%100)
}

// Card represents a card entity in the domain layer.
// Number is sensitive: views outside the store use MaskedNumber.
type Card struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
	Number  string
	Balance decimal.Decimal
	Status  CardStatus
	Expiry  ExpiryMonth
}

// MaskedNumber returns the number with everything but the last four digits hidden
func (c *Card) MaskedNumber() string {
	return MaskNumber(c.Number)
}

// Last4 returns the last four digits of the number
func (c *Card) Last4() string {
	if len(c.Number) < 4 {
		return ""
	}
	return c.Number[len(c.Number)-4:]
}

// MaskNumber masks a card number for display
func MaskNumber(number string) string {
	if len(number) < 4 {
		return "****"
	}
	return "**** **** **** " + number[len(number)-4:]
}

// Validate ensures the card adheres to domain rules
func (c *Card) Validate() error {
	if c.OwnerID == uuid.Nil {
		return NewError(KindInvalidArgument, "card owner is required")
	}
	if err := ValidateCardNumber(c.Number); err != nil {
		return err
	}
	if c.Balance.IsNegative() {
		return NewError(KindInvalidArgument, "balance cannot be negative").With("card_id", c.ID.String())
	}
	if !c.Status.Valid() {
		return Errorf(KindInvalidArgument, "malformed status %q", c.Status)
	}
	if c.Expiry.IsZero() || c.Expiry.Month < time.January || c.Expiry.Month > time.December {
		return NewError(KindInvalidArgument, "card expiry is required")
	}
	return nil
}

// ValidateCardNumber checks length (12-19 digits) and the Luhn checksum
func ValidateCardNumber(number string) error {
	if len(number) < 12 || len(number) > 19 {
		return Errorf(KindInvalidArgument, "card number must have 12 to 19 digits, got %d", len(number))
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			return NewError(KindInvalidArgument, "card number must contain digits only")
		}
	}
	if LuhnCheckDigit(number[:len(number)-1]) != number[len(number)-1] {
		return NewError(KindInvalidArgument, "card number fails Luhn check")
	}
	return nil
}

// LuhnCheckDigit computes the check digit to append to payload
func LuhnCheckDigit(payload string) byte {
	sum := 0
	double := true
	for i := len(payload) - 1; i >= 0; i-- {
		d, _ := strconv.Atoi(string(payload[i]))
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return byte('0' + (10-sum%10)%10)
}

// NormalizeAmount rounds an amount to the balance scale
func NormalizeAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(BalanceScale)
}
