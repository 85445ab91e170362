package settlement

import (
	"context"

	"github.com/Sharon404/wallet-app/internal/models"
	"github.com/Sharon404/wallet-app/internal/providers"

	"github.com/shopspring/decimal"
)

// Converter converts between currencies. Satisfied by rates.Service.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, decimal.Decimal, error)
}

// CredentialVerifier checks the PIN and OTP second factors. Both checks
// fail closed: a missing credential is invalid, never a skipped check.
type CredentialVerifier interface {
	VerifyPin(ctx context.Context, userID uint, pin string) bool
	VerifyOtp(ctx context.Context, userID uint, code string) bool
}

// PushGateway is the mobile-money gateway leg.
type PushGateway interface {
	InitiatePush(ctx context.Context, phone string, amount decimal.Decimal, accountReference string) (providers.InitiateResult, error)
	InitiateWithdraw(ctx context.Context, phone string, amount decimal.Decimal, reference string) (providers.InitiateResult, error)
}

// TransferGateway is the card/bank transfer gateway leg.
type TransferGateway interface {
	InitiateTransfer(ctx context.Context, accountBank, accountNumber string, amount decimal.Decimal, currency, narration, reference string) (providers.InitiateResult, error)
}

// CardCharger collects a synchronous card payment. Satisfied by
// card.Service.
type CardCharger interface {
	Charge(ctx context.Context, token string, amount decimal.Decimal, currency string) (string, error)
}

// Users resolves transfer recipients. Satisfied by
// repositories.UserRepository.
type Users interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// Notifier delivers settlement receipts to the affected users.
// Satisfied by notification.Service. Delivery is best effort.
type Notifier interface {
	SendTransferNotification(ctx context.Context, userID uint, tx *models.Transaction) error
}
