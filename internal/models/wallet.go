package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Currencies a wallet can be denominated in.
var SupportedCurrencies = []string{
	"KES", "UGX", "TZS", "RWF", "BIF", "ZAR",
	"USD", "GBP", "EUR", "AED", "SAR", "EGP", "NGN",
}

const DefaultCurrency = "KES"

// NormalizeCurrency uppercases a currency code. Comparison is an exact
// string match; no other normalization is applied.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsSupportedCurrency reports whether code is in the supported set.
func IsSupportedCurrency(code string) bool {
	code = NormalizeCurrency(code)
	for _, c := range SupportedCurrencies {
		if c == code {
			return true
		}
	}
	return false
}

type Wallet struct {
	ID        uint            `gorm:"primarykey"`
	WalletID  string          `gorm:"uniqueIndex;not null"`
	UserID    uint            `gorm:"uniqueIndex;not null"`
	Balance   decimal.Decimal `gorm:"type:numeric(12,2);default:0"`
	Currency  string          `gorm:"type:varchar(3);default:'KES'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.WalletID == "" {
		w.WalletID = uuid.NewString()
	}
	if w.Currency == "" {
		w.Currency = DefaultCurrency
	}
	return nil
}
