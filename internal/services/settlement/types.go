package settlement

import (
	"github.com/shopspring/decimal"
)

// Endpoint is one side of a money movement.
type Endpoint string

const (
	EndpointWallet   Endpoint = "wallet"
	EndpointExternal Endpoint = "external"
)

// Request is one settlement intent. The (Source, Destination) pair
// selects the flow: wallet→wallet is a transfer, wallet→external a
// withdrawal, external→wallet a deposit.
type Request struct {
	UserID    uint
	UserEmail string

	Source      Endpoint
	Destination Endpoint

	Amount decimal.Decimal

	// Transfer fields
	Recipient string // recipient email
	Pin       string
	Otp       string

	// CurrencyTo is the requested destination currency. Empty means the
	// destination wallet's own currency.
	CurrencyTo string
	// CurrencyFrom is the external source currency on deposits. Empty
	// means the wallet currency.
	CurrencyFrom string

	// External leg fields
	Phone         string // mobile push-payment leg
	CardToken     string // synchronous card leg
	AccountBank   string // bank transfer leg
	AccountNumber string

	Description string
}

// Receipt is the synchronous outcome of a settlement request. For
// provider-backed flows whose outcome is unknown, Status is PENDING and
// Reference correlates the later callback; that is the expected
// async-settlement contract, not an error.
type Receipt struct {
	Reference       string          `json:"reference"`
	Status          string          `json:"status"`
	NewBalance      decimal.Decimal `json:"new_balance"`
	Amount          decimal.Decimal `json:"amount"`
	ConvertedAmount decimal.Decimal `json:"converted_amount"`
	ExchangeRate    decimal.Decimal `json:"exchange_rate"`
	CurrencyFrom    string          `json:"currency_from"`
	CurrencyTo      string          `json:"currency_to"`
	Message         string          `json:"message"`
}
