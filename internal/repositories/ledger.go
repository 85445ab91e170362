package repositories

import (
	"context"

	"github.com/Sharon404/wallet-app/internal/models"

	"github.com/shopspring/decimal"
)

// Ledger is durable CRUD over wallets, ledger rows and provider requests,
// with support for atomic multi-row units via InTransaction. Balance
// mutations on one wallet are serialized with row locks so concurrent
// settlements never observe a stale balance.
type Ledger interface {
	// GetOrCreateWallet is idempotent: a uniqueness constraint on user_id
	// guarantees at most one wallet per user even under concurrent calls.
	GetOrCreateWallet(ctx context.Context, userID uint, currency string) (*models.Wallet, error)
	GetWalletByUserID(ctx context.Context, userID uint) (*models.Wallet, error)
	GetWalletByID(ctx context.Context, walletID uint) (*models.Wallet, error)

	// ApplyBalanceDelta locks the wallet row, verifies the currency and
	// applies delta. It fails with apperr.ErrInsufficientFunds if the
	// resulting balance would go negative and apperr.ErrCurrencyMismatch
	// if currency does not match the wallet.
	ApplyBalanceDelta(ctx context.Context, walletID uint, delta decimal.Decimal, currency string) (*models.Wallet, error)

	RecordTransaction(ctx context.Context, tx *models.Transaction) error
	UpdateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransactionByReference(ctx context.Context, ref string) (*models.Transaction, error)
	// FindPendingByReference locks and returns the PENDING row correlated
	// with a provider reference; terminal rows are never returned, which
	// makes callback replays no-ops.
	FindPendingByReference(ctx context.Context, ref string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, walletID uint, limit, offset int) ([]models.Transaction, error)

	CreateProviderRequest(ctx context.Context, req *models.ProviderRequest) error
	UpdateProviderRequest(ctx context.Context, req *models.ProviderRequest) error
	FindPendingProviderRequest(ctx context.Context, reference string) (*models.ProviderRequest, error)
	// FindPendingByPhoneAndAmount is the last-resort fuzzy match: pending
	// requests whose phone ends in the given suffix and whose amount is
	// equal. Inherently ambiguous; see the reconcile package.
	FindPendingByPhoneAndAmount(ctx context.Context, phoneSuffix string, amount decimal.Decimal) (*models.ProviderRequest, error)

	// InTransaction runs fn inside one database transaction; every
	// repository call made through the Ledger passed to fn commits or
	// rolls back together.
	InTransaction(ctx context.Context, fn func(tx Ledger) error) error
}
