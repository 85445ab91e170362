package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction kinds
const (
	TransactionTypeDeposit    = "DEPOSIT"
	TransactionTypeWithdrawal = "WITHDRAWAL"
	TransactionTypeTransfer   = "TRANSFER"
	TransactionTypeConversion = "CONVERSION"
)

// Transaction statuses
const (
	StatusPending = "PENDING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// CounterpartyExternal marks a ledger row whose other leg is outside the
// system (a provider account rather than another wallet).
const CounterpartyExternal = "external"

// Transaction is one ledger row: a single leg of a settlement. Amount
// fields are immutable once the row is terminal.
type Transaction struct {
	ID              uint            `gorm:"primarykey"`
	TransactionID   string          `gorm:"uniqueIndex;not null"`
	WalletID        uint            `gorm:"index;not null"`
	Type            string          `gorm:"not null"`
	Amount          decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	CurrencyFrom    string          `gorm:"type:varchar(3);default:'KES'"`
	CurrencyTo      string          `gorm:"type:varchar(3);default:'KES'"`
	ConvertedAmount decimal.Decimal `gorm:"type:numeric(12,2)"`
	ExchangeRate    decimal.Decimal `gorm:"type:numeric(18,8)"`
	Counterparty    string
	Status          string `gorm:"index;not null;default:'PENDING'"`
	Description     string
	// ProviderRef correlates this row with an external gateway operation.
	ProviderRef string `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.TransactionID == "" {
		t.TransactionID = uuid.NewString()
	}
	return nil
}

// Terminal reports whether the row has reached a final state.
func (t *Transaction) Terminal() bool {
	return t.Status == StatusSuccess || t.Status == StatusFailed
}
