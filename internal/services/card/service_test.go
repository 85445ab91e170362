package card

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateCardNumber(t *testing.T) {
	valid := []string{
		"4242424242424242",
		"4111111111111111",
		"5500005555555559",
	}
	for _, n := range valid {
		assert.True(t, ValidateCardNumber(n), "expected %s to pass", n)
	}

	invalid := []string{
		"4242424242424241", // bad checksum
		"1234",             // too short
		"4242-4242-4242",   // non-digits
		"",
	}
	for _, n := range invalid {
		assert.False(t, ValidateCardNumber(n), "expected %s to fail", n)
	}
}

func TestValidateExpiry(t *testing.T) {
	now := time.Now()

	assert.True(t, ValidateExpiry(int(now.Month()), now.Year()))
	assert.True(t, ValidateExpiry(1, now.Year()+1))

	assert.False(t, ValidateExpiry(int(now.Month()), now.Year()-1))
	assert.False(t, ValidateExpiry(0, now.Year()+1))
	assert.False(t, ValidateExpiry(13, now.Year()+1))
}

func TestChargeRejectsRawCardNumbers(t *testing.T) {
	svc := NewService()
	_, err := svc.Charge(context.Background(), "4242424242424242", decimal.NewFromInt(100), "KES")
	assert.ErrorIs(t, err, ErrInvalidCard)

	_, err = svc.Charge(context.Background(), "", decimal.NewFromInt(100), "KES")
	assert.ErrorIs(t, err, ErrInvalidCard)
}
