// Package settlement is the authoritative state machine for money
// movement. Every balance mutation and ledger row in the system is
// written here or by the reconcile processor, always inside one atomic
// unit per logical operation.
package settlement

import (
	"context"
	"fmt"
	"log"

	"github.com/Sharon404/wallet-app/internal/apperr"
	"github.com/Sharon404/wallet-app/internal/models"
	"github.com/Sharon404/wallet-app/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Config tunes the engine.
type Config struct {
	// LargeTransferThreshold is the amount at or above which a transfer
	// requires the OTP second factor. The boundary is inclusive.
	LargeTransferThreshold decimal.Decimal
}

// Service accepts settlement requests and drives them to a synchronous
// outcome or a PENDING receipt.
type Service interface {
	Settle(ctx context.Context, req Request) (*Receipt, error)
	Status(ctx context.Context, userID uint, reference string) (*models.Transaction, error)
	History(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, error)
	Wallet(ctx context.Context, userID uint) (*models.Wallet, error)
}

type service struct {
	ledger      repositories.Ledger
	users       Users
	converter   Converter
	credentials CredentialVerifier
	push        PushGateway
	transfers   TransferGateway
	cards       CardCharger
	notifier    Notifier
	cfg         Config
}

func NewService(
	ledger repositories.Ledger,
	users Users,
	converter Converter,
	credentials CredentialVerifier,
	push PushGateway,
	transfers TransferGateway,
	cards CardCharger,
	notifier Notifier,
	cfg Config,
) Service {
	if ledger == nil {
		panic("ledger is required")
	}
	if users == nil {
		panic("users is required")
	}
	if converter == nil {
		panic("converter is required")
	}
	if credentials == nil {
		panic("credential verifier is required")
	}
	if cfg.LargeTransferThreshold.IsZero() {
		cfg.LargeTransferThreshold = decimal.NewFromInt(50_000)
	}
	return &service{
		ledger:      ledger,
		users:       users,
		converter:   converter,
		credentials: credentials,
		push:        push,
		transfers:   transfers,
		cards:       cards,
		notifier:    notifier,
		cfg:         cfg,
	}
}

func (s *service) Settle(ctx context.Context, req Request) (*Receipt, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, ErrInvalidAmount)
	}

	switch {
	case req.Source == EndpointWallet && req.Destination == EndpointWallet:
		return s.transfer(ctx, req)
	case req.Source == EndpointWallet && req.Destination == EndpointExternal:
		return s.withdraw(ctx, req)
	case req.Source == EndpointExternal && req.Destination == EndpointWallet:
		return s.deposit(ctx, req)
	default:
		return nil, apperr.ErrUnsupportedFlow
	}
}

// transfer moves funds between two wallets. Both ledger rows and both
// balance mutations commit or fail together; wallets are locked in
// ascending id order so concurrent opposite-direction transfers cannot
// deadlock.
func (s *service) transfer(ctx context.Context, req Request) (*Receipt, error) {
	if !s.credentials.VerifyPin(ctx, req.UserID, req.Pin) {
		return nil, apperr.ErrInvalidCredential
	}
	if req.Amount.GreaterThanOrEqual(s.cfg.LargeTransferThreshold) {
		if !s.credentials.VerifyOtp(ctx, req.UserID, req.Otp) {
			return nil, apperr.ErrInvalidCredential
		}
	}

	if req.Recipient == "" || req.Recipient == req.UserEmail {
		if req.Recipient == req.UserEmail {
			return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, ErrSelfTransfer)
		}
		return nil, apperr.ErrRecipientNotFound
	}

	recipient, err := s.users.GetByEmail(ctx, req.Recipient)
	if err != nil {
		return nil, apperr.ErrRecipientNotFound
	}

	senderWallet, err := s.ledger.GetWalletByUserID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	receiverWallet, err := s.ledger.GetOrCreateWallet(ctx, recipient.ID, models.DefaultCurrency)
	if err != nil {
		return nil, err
	}

	if senderWallet.Balance.LessThan(req.Amount) {
		return nil, apperr.ErrInsufficientFunds
	}

	converted, rate, err := s.converter.Convert(ctx, req.Amount, senderWallet.Currency, receiverWallet.Currency)
	if err != nil {
		return nil, err
	}

	var newBalance decimal.Decimal
	var debit, credit *models.Transaction
	err = s.ledger.InTransaction(ctx, func(tx repositories.Ledger) error {
		type mutation struct {
			walletID uint
			delta    decimal.Decimal
			currency string
		}
		muts := []mutation{
			{senderWallet.ID, req.Amount.Neg(), senderWallet.Currency},
			{receiverWallet.ID, converted, receiverWallet.Currency},
		}
		// Consistent global lock order by wallet id.
		if muts[1].walletID < muts[0].walletID {
			muts[0], muts[1] = muts[1], muts[0]
		}
		for _, m := range muts {
			w, err := tx.ApplyBalanceDelta(ctx, m.walletID, m.delta, m.currency)
			if err != nil {
				return err
			}
			if w.ID == senderWallet.ID {
				newBalance = w.Balance
			}
		}

		debit = &models.Transaction{
			WalletID:        senderWallet.ID,
			Type:            models.TransactionTypeTransfer,
			Amount:          req.Amount,
			CurrencyFrom:    senderWallet.Currency,
			CurrencyTo:      receiverWallet.Currency,
			ConvertedAmount: converted,
			ExchangeRate:    rate,
			Counterparty:    recipient.Email,
			Status:          models.StatusSuccess,
			Description:     fmt.Sprintf("Sent to %s", recipient.Email),
		}
		if req.Description != "" {
			debit.Description = req.Description
		}
		if err := tx.RecordTransaction(ctx, debit); err != nil {
			return err
		}

		credit = &models.Transaction{
			WalletID:        receiverWallet.ID,
			Type:            models.TransactionTypeTransfer,
			Amount:          req.Amount,
			CurrencyFrom:    senderWallet.Currency,
			CurrencyTo:      receiverWallet.Currency,
			ConvertedAmount: converted,
			ExchangeRate:    rate,
			Counterparty:    req.UserEmail,
			Status:          models.StatusSuccess,
			Description:     fmt.Sprintf("Received from %s", req.UserEmail),
		}
		return tx.RecordTransaction(ctx, credit)
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.SendTransferNotification(ctx, req.UserID, debit); err != nil {
			log.Printf("transfer notification to sender %d: %v", req.UserID, err)
		}
		if err := s.notifier.SendTransferNotification(ctx, recipient.ID, credit); err != nil {
			log.Printf("transfer notification to recipient %d: %v", recipient.ID, err)
		}
	}

	return &Receipt{
		Status:          models.StatusSuccess,
		NewBalance:      newBalance,
		Amount:          req.Amount,
		ConvertedAmount: converted,
		ExchangeRate:    rate,
		CurrencyFrom:    senderWallet.Currency,
		CurrencyTo:      receiverWallet.Currency,
		Message:         "Transfer successful",
	}, nil
}

// withdraw reserves funds and initiates the external leg. The debit, the
// PENDING ledger row, the provider request and the gateway call share one
// atomic unit: a definite synchronous gateway failure rolls everything
// back, an ambiguous timeout commits the reservation and leaves the row
// PENDING for reconciliation.
func (s *service) withdraw(ctx context.Context, req Request) (*Receipt, error) {
	if !s.credentials.VerifyPin(ctx, req.UserID, req.Pin) {
		return nil, apperr.ErrInvalidCredential
	}
	if req.Phone == "" && req.AccountNumber == "" {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, ErrMissingLeg)
	}

	wallet, err := s.ledger.GetWalletByUserID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if wallet.Balance.LessThan(req.Amount) {
		return nil, apperr.ErrInsufficientFunds
	}

	currencyTo := models.NormalizeCurrency(req.CurrencyTo)
	if currencyTo == "" {
		currencyTo = wallet.Currency
	}
	converted, rate, err := s.converter.Convert(ctx, req.Amount, wallet.Currency, currencyTo)
	if err != nil {
		return nil, err
	}

	reference := uuid.NewString()
	receipt := &Receipt{
		Reference:       reference,
		Status:          models.StatusPending,
		Amount:          req.Amount,
		ConvertedAmount: converted,
		ExchangeRate:    rate,
		CurrencyFrom:    wallet.Currency,
		CurrencyTo:      currencyTo,
		Message:         "Withdrawal initiated, awaiting confirmation",
	}

	err = s.ledger.InTransaction(ctx, func(tx repositories.Ledger) error {
		w, err := tx.ApplyBalanceDelta(ctx, wallet.ID, req.Amount.Neg(), wallet.Currency)
		if err != nil {
			return err
		}
		receipt.NewBalance = w.Balance

		entry := &models.Transaction{
			WalletID:        wallet.ID,
			Type:            models.TransactionTypeWithdrawal,
			Amount:          req.Amount,
			CurrencyFrom:    wallet.Currency,
			CurrencyTo:      currencyTo,
			ConvertedAmount: converted,
			ExchangeRate:    rate,
			Counterparty:    models.CounterpartyExternal,
			Status:          models.StatusPending,
			Description:     "Wallet withdrawal",
			ProviderRef:     reference,
		}
		if err := tx.RecordTransaction(ctx, entry); err != nil {
			return err
		}

		pr := &models.ProviderRequest{
			Reference: reference,
			UserID:    req.UserID,
			Amount:    req.Amount,
			Phone:     req.Phone,
			Account:   req.AccountNumber,
			Kind:      models.ProviderRequestWithdraw,
			Status:    models.ProviderStatusPending,
		}
		if err := tx.CreateProviderRequest(ctx, pr); err != nil {
			return err
		}

		var result struct {
			ref string
			err error
		}
		if req.Phone != "" {
			res, perr := s.push.InitiateWithdraw(ctx, req.Phone, converted, reference)
			result.ref, result.err = res.Reference, perr
		} else {
			res, perr := s.transfers.InitiateTransfer(ctx, req.AccountBank, req.AccountNumber,
				converted, currencyTo, "Wallet Withdrawal", reference)
			result.ref, result.err = res.Reference, perr
		}

		if result.err != nil {
			if apperr.IsProviderTimeout(result.err) {
				// Outcome unknown: the reservation is real, keep it and
				// let reconciliation or verify resolve it.
				log.Printf("withdrawal %s: gateway timeout, left pending", reference)
				return nil
			}
			return result.err
		}

		// Correlate on the gateway-assigned reference when one differs
		// from ours; callbacks will carry theirs.
		if result.ref != "" && result.ref != reference {
			entry.ProviderRef = result.ref
			if err := tx.UpdateTransaction(ctx, entry); err != nil {
				return err
			}
			pr.Reference = result.ref
			if err := tx.UpdateProviderRequest(ctx, pr); err != nil {
				return err
			}
			receipt.Reference = result.ref
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return receipt, nil
}

// deposit credits the wallet from an external source. Mobile pushes stay
// PENDING until the callback; card and direct deposits settle
// synchronously.
func (s *service) deposit(ctx context.Context, req Request) (*Receipt, error) {
	wallet, err := s.ledger.GetOrCreateWallet(ctx, req.UserID, models.DefaultCurrency)
	if err != nil {
		return nil, err
	}

	currencyFrom := models.NormalizeCurrency(req.CurrencyFrom)
	if currencyFrom == "" {
		currencyFrom = wallet.Currency
	}
	converted, rate, err := s.converter.Convert(ctx, req.Amount, currencyFrom, wallet.Currency)
	if err != nil {
		return nil, err
	}

	if req.Phone != "" {
		return s.pushDeposit(ctx, req, wallet, currencyFrom, converted, rate)
	}

	description := "Deposit successful"
	if req.CardToken != "" {
		chargeID, err := s.cards.Charge(ctx, req.CardToken, req.Amount, currencyFrom)
		if err != nil {
			return nil, err
		}
		description = fmt.Sprintf("Card deposit (charge %s)", chargeID)
	}

	var newBalance decimal.Decimal
	err = s.ledger.InTransaction(ctx, func(tx repositories.Ledger) error {
		w, err := tx.ApplyBalanceDelta(ctx, wallet.ID, converted, wallet.Currency)
		if err != nil {
			return err
		}
		newBalance = w.Balance

		return tx.RecordTransaction(ctx, &models.Transaction{
			WalletID:        wallet.ID,
			Type:            models.TransactionTypeDeposit,
			Amount:          req.Amount,
			CurrencyFrom:    currencyFrom,
			CurrencyTo:      wallet.Currency,
			ConvertedAmount: converted,
			ExchangeRate:    rate,
			Counterparty:    models.CounterpartyExternal,
			Status:          models.StatusSuccess,
			Description:     description,
		})
	})
	if err != nil {
		return nil, err
	}

	return &Receipt{
		Status:          models.StatusSuccess,
		NewBalance:      newBalance,
		Amount:          req.Amount,
		ConvertedAmount: converted,
		ExchangeRate:    rate,
		CurrencyFrom:    currencyFrom,
		CurrencyTo:      wallet.Currency,
		Message:         "Deposit successful",
	}, nil
}

// pushDeposit initiates an STK push. No local mutation precedes the
// gateway call, so a synchronous failure leaves no state behind; the
// credit happens at reconciliation time.
func (s *service) pushDeposit(ctx context.Context, req Request, wallet *models.Wallet, currencyFrom string, converted, rate decimal.Decimal) (*Receipt, error) {
	initiationRef := uuid.NewString()
	res, err := s.push.InitiatePush(ctx, req.Phone, req.Amount, initiationRef)
	if err != nil {
		return nil, err
	}
	// Callbacks carry the gateway reference when one was assigned.
	reference := res.Reference
	if reference == "" {
		reference = initiationRef
	}

	err = s.ledger.InTransaction(ctx, func(tx repositories.Ledger) error {
		entry := &models.Transaction{
			WalletID:        wallet.ID,
			Type:            models.TransactionTypeDeposit,
			Amount:          req.Amount,
			CurrencyFrom:    currencyFrom,
			CurrencyTo:      wallet.Currency,
			ConvertedAmount: converted,
			ExchangeRate:    rate,
			Counterparty:    models.CounterpartyExternal,
			Status:          models.StatusPending,
			Description:     "Mobile money deposit",
			ProviderRef:     reference,
		}
		if err := tx.RecordTransaction(ctx, entry); err != nil {
			return err
		}
		return tx.CreateProviderRequest(ctx, &models.ProviderRequest{
			Reference: reference,
			UserID:    req.UserID,
			Amount:    req.Amount,
			Phone:     req.Phone,
			Kind:      models.ProviderRequestDeposit,
			Status:    models.ProviderStatusPending,
		})
	})
	if err != nil {
		return nil, err
	}

	return &Receipt{
		Reference:       reference,
		Status:          models.StatusPending,
		NewBalance:      wallet.Balance,
		Amount:          req.Amount,
		ConvertedAmount: converted,
		ExchangeRate:    rate,
		CurrencyFrom:    currencyFrom,
		CurrencyTo:      wallet.Currency,
		Message:         "Payment request sent to phone, awaiting confirmation",
	}, nil
}

func (s *service) Status(ctx context.Context, userID uint, reference string) (*models.Transaction, error) {
	entry, err := s.ledger.GetTransactionByReference(ctx, reference)
	if err != nil {
		return nil, apperr.ErrNotFound
	}
	wallet, err := s.ledger.GetWalletByID(ctx, entry.WalletID)
	if err != nil {
		return nil, err
	}
	if wallet.UserID != userID {
		return nil, apperr.ErrForbidden
	}
	return entry, nil
}

func (s *service) History(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, error) {
	wallet, err := s.ledger.GetWalletByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.ledger.ListTransactions(ctx, wallet.ID, limit, offset)
}

func (s *service) Wallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	return s.ledger.GetWalletByUserID(ctx, userID)
}
