package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Provider request kinds
const (
	ProviderRequestDeposit  = "deposit"
	ProviderRequestWithdraw = "withdraw"
)

// Provider request statuses
const (
	ProviderStatusPending = "pending"
	ProviderStatusSuccess = "success"
	ProviderStatusFailed  = "failed"
)

// ProviderRequest maps an external gateway reference to local state. It is
// created when a provider leg is initiated and lets the reconciliation
// processor recover the owning user and amount from callbacks that carry
// only partial metadata.
type ProviderRequest struct {
	ID        uint            `gorm:"primarykey"`
	Reference string          `gorm:"uniqueIndex;not null"`
	UserID    uint            `gorm:"index;not null"`
	Amount    decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Phone     string          `gorm:"index"`
	Account   string
	Kind      string `gorm:"not null"`
	Status    string `gorm:"index;not null;default:'pending'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
