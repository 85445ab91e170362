package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sharon404/wallet-app/internal/apperr"
	"github.com/Sharon404/wallet-app/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) Ledger {
	return &ledger{db: db}
}

func (r *ledger) GetOrCreateWallet(ctx context.Context, userID uint, currency string) (*models.Wallet, error) {
	if currency == "" {
		currency = models.DefaultCurrency
	}
	wallet := &models.Wallet{
		UserID:   userID,
		Balance:  decimal.Zero,
		Currency: models.NormalizeCurrency(currency),
	}
	// Insert-or-skip on the user_id unique index; a plain lookup-then-insert
	// would race under concurrent registration calls.
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(wallet).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	return r.GetWalletByUserID(ctx, userID)
}

func (r *ledger) GetWalletByUserID(ctx context.Context, userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *ledger) GetWalletByID(ctx context.Context, walletID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).First(&wallet, walletID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *ledger) ApplyBalanceDelta(ctx context.Context, walletID uint, delta decimal.Decimal, currency string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&wallet, walletID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}

	if currency != "" && wallet.Currency != models.NormalizeCurrency(currency) {
		return nil, apperr.ErrCurrencyMismatch
	}

	next := wallet.Balance.Add(delta)
	if next.IsNegative() {
		return nil, apperr.ErrInsufficientFunds
	}

	wallet.Balance = next
	if err := r.db.WithContext(ctx).Save(&wallet).Error; err != nil {
		return nil, fmt.Errorf("failed to update wallet balance: %w", err)
	}
	return &wallet, nil
}

func (r *ledger) RecordTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx.Amount.IsNegative() || tx.ConvertedAmount.IsNegative() {
		return apperr.ErrValidation
	}
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

func (r *ledger) UpdateTransaction(ctx context.Context, tx *models.Transaction) error {
	if err := r.db.WithContext(ctx).Save(tx).Error; err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return nil
}

func (r *ledger) GetTransactionByReference(ctx context.Context, ref string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).
		Where("transaction_id = ? OR provider_ref = ?", ref, ref).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

func (r *ledger) FindPendingByReference(ctx context.Context, ref string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("provider_ref = ? AND status = ?", ref, models.StatusPending).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to find pending transaction: %w", err)
	}
	return &tx, nil
}

func (r *ledger) ListTransactions(ctx context.Context, walletID uint, limit, offset int) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

func (r *ledger) CreateProviderRequest(ctx context.Context, req *models.ProviderRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("failed to create provider request: %w", err)
	}
	return nil
}

func (r *ledger) UpdateProviderRequest(ctx context.Context, req *models.ProviderRequest) error {
	if err := r.db.WithContext(ctx).Save(req).Error; err != nil {
		return fmt.Errorf("failed to update provider request: %w", err)
	}
	return nil
}

func (r *ledger) FindPendingProviderRequest(ctx context.Context, reference string) (*models.ProviderRequest, error) {
	var req models.ProviderRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("reference = ? AND status = ?", reference, models.ProviderStatusPending).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProviderRequestNotFound
		}
		return nil, fmt.Errorf("failed to find provider request: %w", err)
	}
	return &req, nil
}

func (r *ledger) FindPendingByPhoneAndAmount(ctx context.Context, phoneSuffix string, amount decimal.Decimal) (*models.ProviderRequest, error) {
	var req models.ProviderRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("phone LIKE ? AND amount = ? AND status = ?",
			"%"+phoneSuffix, amount, models.ProviderStatusPending).
		Order("created_at ASC").
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProviderRequestNotFound
		}
		return nil, fmt.Errorf("failed to find provider request by phone: %w", err)
	}
	return &req, nil
}

func (r *ledger) InTransaction(ctx context.Context, fn func(tx Ledger) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledger{db: tx})
	})
}
