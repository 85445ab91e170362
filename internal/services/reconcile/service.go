// Package reconcile turns asynchronous provider callbacks into final
// ledger state. It is the only writer of PENDING→terminal transitions,
// and every transition runs in one atomic unit with its balance effect.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Sharon404/wallet-app/internal/models"
	"github.com/Sharon404/wallet-app/internal/repositories"

	"github.com/shopspring/decimal"
)

// Event is a normalized provider callback. Providers populate whatever
// identifiers their payload carries; matching tries them in order of
// reliability.
type Event struct {
	// ProviderRef is the gateway-assigned operation id.
	ProviderRef string
	// InitiationRef is the reference we supplied when initiating, when
	// the callback echoes it back (e.g. a transfer tx_ref).
	InitiationRef string
	// Phone is the payer/payee number, used only for last-resort fuzzy
	// matching when no reference matched.
	Phone string

	Amount    decimal.Decimal
	Succeeded bool
	Reason    string
}

// Outcome reports what a callback did. Unmatched and replayed callbacks
// return an Outcome with Matched=false and no error; the webhook surface
// acknowledges regardless.
type Outcome struct {
	Matched   bool
	Reference string
	Status    string
}

type Service interface {
	Process(ctx context.Context, ev Event) (*Outcome, error)
}

type service struct {
	ledger repositories.Ledger
}

func NewService(ledger repositories.Ledger) Service {
	if ledger == nil {
		panic("ledger is required")
	}
	return &service{ledger: ledger}
}

// Process resolves the pending operation a callback refers to and applies
// its outcome. Matching order:
//
//  1. provider reference against pending provider requests
//  2. our initiation reference, for gateways that echo it back
//  3. phone suffix plus exact amount, pending requests only
//
// Only PENDING state is ever matched, so a replayed callback finds
// nothing and changes nothing.
func (s *service) Process(ctx context.Context, ev Event) (*Outcome, error) {
	outcome := &Outcome{}

	err := s.ledger.InTransaction(ctx, func(tx repositories.Ledger) error {
		pr, err := s.match(ctx, tx, ev)
		if err != nil {
			if errors.Is(err, repositories.ErrProviderRequestNotFound) {
				log.Printf("reconcile: no pending match for callback ref=%q init=%q", ev.ProviderRef, ev.InitiationRef)
				return nil
			}
			return err
		}

		entry, err := tx.FindPendingByReference(ctx, pr.Reference)
		if err != nil {
			if errors.Is(err, repositories.ErrTransactionNotFound) {
				// Request without a ledger row; close it out alone.
				return s.closeRequest(ctx, tx, pr, ev, outcome)
			}
			return err
		}

		switch entry.Type {
		case models.TransactionTypeDeposit:
			return s.settleDeposit(ctx, tx, pr, entry, ev, outcome)
		case models.TransactionTypeWithdrawal:
			return s.settleWithdrawal(ctx, tx, pr, entry, ev, outcome)
		default:
			return fmt.Errorf("pending row %s has unexpected type %s", entry.TransactionID, entry.Type)
		}
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (s *service) match(ctx context.Context, tx repositories.Ledger, ev Event) (*models.ProviderRequest, error) {
	if ev.ProviderRef != "" {
		pr, err := tx.FindPendingProviderRequest(ctx, ev.ProviderRef)
		if err == nil {
			return pr, nil
		}
		if !errors.Is(err, repositories.ErrProviderRequestNotFound) {
			return nil, err
		}
	}

	if ev.InitiationRef != "" && ev.InitiationRef != ev.ProviderRef {
		pr, err := tx.FindPendingProviderRequest(ctx, ev.InitiationRef)
		if err == nil {
			return pr, nil
		}
		if !errors.Is(err, repositories.ErrProviderRequestNotFound) {
			return nil, err
		}
	}

	// Fuzzy fallback only for callbacks that carried no usable
	// reference: a reference that simply failed to match must not be
	// re-routed to an unrelated request.
	if ev.ProviderRef == "" && ev.InitiationRef == "" {
		suffix := PhoneSuffix(ev.Phone)
		if suffix != "" {
			return tx.FindPendingByPhoneAndAmount(ctx, suffix, ev.Amount)
		}
	}

	return nil, repositories.ErrProviderRequestNotFound
}

// settleDeposit credits the wallet and flips the row in one unit. The
// credit uses the converted amount recorded at initiation time.
func (s *service) settleDeposit(ctx context.Context, tx repositories.Ledger, pr *models.ProviderRequest, entry *models.Transaction, ev Event, outcome *Outcome) error {
	if ev.Succeeded {
		wallet, err := tx.GetWalletByID(ctx, entry.WalletID)
		if err != nil {
			return err
		}
		if _, err := tx.ApplyBalanceDelta(ctx, wallet.ID, entry.ConvertedAmount, wallet.Currency); err != nil {
			return err
		}
		entry.Status = models.StatusSuccess
		pr.Status = models.ProviderStatusSuccess
	} else {
		entry.Status = models.StatusFailed
		if ev.Reason != "" {
			entry.Description = ev.Reason
		}
		pr.Status = models.ProviderStatusFailed
	}

	if err := tx.UpdateTransaction(ctx, entry); err != nil {
		return err
	}
	if err := tx.UpdateProviderRequest(ctx, pr); err != nil {
		return err
	}

	outcome.Matched = true
	outcome.Reference = entry.TransactionID
	outcome.Status = entry.Status
	return nil
}

// settleWithdrawal finalizes a reserved withdrawal. A failure refunds the
// reserved amount; the pending-only match guarantees the refund happens at
// most once no matter how many times the callback is delivered.
func (s *service) settleWithdrawal(ctx context.Context, tx repositories.Ledger, pr *models.ProviderRequest, entry *models.Transaction, ev Event, outcome *Outcome) error {
	if ev.Succeeded {
		entry.Status = models.StatusSuccess
		pr.Status = models.ProviderStatusSuccess
	} else {
		wallet, err := tx.GetWalletByID(ctx, entry.WalletID)
		if err != nil {
			return err
		}
		if _, err := tx.ApplyBalanceDelta(ctx, wallet.ID, entry.Amount, wallet.Currency); err != nil {
			return err
		}
		entry.Status = models.StatusFailed
		if ev.Reason != "" {
			entry.Description = ev.Reason
		}
		pr.Status = models.ProviderStatusFailed
	}

	if err := tx.UpdateTransaction(ctx, entry); err != nil {
		return err
	}
	if err := tx.UpdateProviderRequest(ctx, pr); err != nil {
		return err
	}

	outcome.Matched = true
	outcome.Reference = entry.TransactionID
	outcome.Status = entry.Status
	return nil
}

func (s *service) closeRequest(ctx context.Context, tx repositories.Ledger, pr *models.ProviderRequest, ev Event, outcome *Outcome) error {
	if ev.Succeeded {
		pr.Status = models.ProviderStatusSuccess
	} else {
		pr.Status = models.ProviderStatusFailed
	}
	if err := tx.UpdateProviderRequest(ctx, pr); err != nil {
		return err
	}
	outcome.Matched = true
	outcome.Reference = pr.Reference
	outcome.Status = pr.Status
	return nil
}
