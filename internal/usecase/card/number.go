package card

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/hyfoxus/bank-rest/internal/domain"
)

// DefaultPrefix is the issuer prefix of generated card numbers
const DefaultPrefix = "4000"

// GenerateNumber generates a Luhn-valid card number with the given prefix and length
func GenerateNumber(prefix string, length int) (string, error) {
	if length < len(prefix)+1 || length < 12 || length > 19 {
		return "", fmt.Errorf("invalid card number length: %d", length)
	}

	// Random digits between prefix and check digit
	digits := make([]byte, length-len(prefix)-1)
	if _, err := rand.Read(digits); err != nil {
		return "", fmt.Errorf("failed to generate random digits: %w", err)
	}

	var builder strings.Builder
	builder.WriteString(prefix)
	for _, b := range digits {
		builder.WriteByte(b%10 + '0')
	}
	payload := builder.String()

	return payload + string(domain.LuhnCheckDigit(payload)), nil
}
