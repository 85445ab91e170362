// Package card charges Stripe-tokenized cards. A card charge is the
// synchronous deposit source: the outcome is known before the ledger
// row is written, so no reconciliation leg exists for it.
package card

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sharon404/wallet-app/internal/apperr"
	"github.com/Sharon404/wallet-app/internal/config"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/charge"
)

var (
	ErrInvalidCard = errors.New("invalid card")
	ErrCardExpired = errors.New("card is expired or has invalid expiry date")
)

// Service charges a tokenized card.
type Service interface {
	// Charge collects amount in the given currency from the token and
	// returns the processor's charge id.
	Charge(ctx context.Context, token string, amount decimal.Decimal, currency string) (string, error)
}

type service struct{}

func NewService() Service {
	stripe.Key = config.GetEnv("STRIPE_SECRET_KEY", "")
	return &service{}
}

func (s *service) Charge(ctx context.Context, token string, amount decimal.Decimal, currency string) (string, error) {
	if !strings.HasPrefix(token, "tok_") {
		return "", fmt.Errorf("%w: expected a tokenized card", ErrInvalidCard)
	}

	params := &stripe.ChargeParams{
		Amount:      stripe.Int64(amount.Mul(decimal.NewFromInt(100)).IntPart()),
		Currency:    stripe.String(strings.ToLower(currency)),
		Description: stripe.String("Wallet deposit"),
	}
	params.Context = ctx
	if err := params.SetSource(token); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCard, err)
	}

	ch, err := charge.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			return "", &apperr.ProviderError{
				Kind:    apperr.ProviderRejected,
				Code:    string(stripeErr.Code),
				Message: stripeErr.Msg,
			}
		}
		return "", &apperr.ProviderError{
			Kind:    apperr.ProviderTransport,
			Code:    "unreachable",
			Message: err.Error(),
		}
	}
	return ch.ID, nil
}

// ValidateCardNumber runs a Luhn check over a raw card number before it
// is ever sent anywhere.
func ValidateCardNumber(cardNumber string) bool {
	if len(cardNumber) < 12 {
		return false
	}
	var sum int
	shouldDouble := false

	for i := len(cardNumber) - 1; i >= 0; i-- {
		if cardNumber[i] < '0' || cardNumber[i] > '9' {
			return false
		}
		digit := int(cardNumber[i] - '0')
		if shouldDouble {
			digit = digit * 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		shouldDouble = !shouldDouble
	}

	return sum%10 == 0
}

// ValidateExpiry checks a card expiry month/year against the clock.
func ValidateExpiry(month, year int) bool {
	if month < 1 || month > 12 {
		return false
	}

	currentYear, currentMonth, _ := time.Now().Date()
	if year < currentYear || (year == currentYear && month < int(currentMonth)) {
		return false
	}

	return true
}
