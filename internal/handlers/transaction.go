package handlers

import (
	"github.com/Sharon404/wallet-app/internal/services/settlement"
	"github.com/Sharon404/wallet-app/internal/utils"
	"github.com/Sharon404/wallet-app/internal/utils/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type TransactionHandler struct {
	settlements settlement.Service
}

func NewTransactionHandler(settlements settlement.Service) *TransactionHandler {
	return &TransactionHandler{settlements: settlements}
}

// Create is the unified settlement endpoint. The (source, destination)
// pair in the body selects the flow; the remaining fields are
// flow-specific.
func (h *TransactionHandler) Create(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Source      string          `json:"source" validate:"required,endpoint"`
		Destination string          `json:"destination" validate:"required,endpoint"`
		Amount      decimal.Decimal `json:"amount" validate:"required"`

		Recipient string `json:"recipient" validate:"omitempty,email"`
		Pin       string `json:"pin"`
		Otp       string `json:"otp"`

		CurrencyFrom string `json:"currency_from" validate:"currency"`
		CurrencyTo   string `json:"currency_to" validate:"currency"`

		Phone         string `json:"phone"`
		CardToken     string `json:"card_token"`
		AccountBank   string `json:"account_bank"`
		AccountNumber string `json:"account_number"`

		Description string `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if errs := validation.Validate(input); errs != nil {
		return utils.Respond(c, fiber.StatusBadRequest, fiber.Map{"errors": errs})
	}

	receipt, err := h.settlements.Settle(c.Context(), settlement.Request{
		UserID:        claims.UserID,
		UserEmail:     claims.Email,
		Source:        settlement.Endpoint(input.Source),
		Destination:   settlement.Endpoint(input.Destination),
		Amount:        input.Amount,
		Recipient:     input.Recipient,
		Pin:           input.Pin,
		Otp:           input.Otp,
		CurrencyFrom:  input.CurrencyFrom,
		CurrencyTo:    input.CurrencyTo,
		Phone:         input.Phone,
		CardToken:     input.CardToken,
		AccountBank:   input.AccountBank,
		AccountNumber: input.AccountNumber,
		Description:   input.Description,
	})
	if err != nil {
		return utils.AppError(c, err)
	}
	return utils.Success(c, receipt)
}

// Status returns one transaction by our reference or the provider's.
func (h *TransactionHandler) Status(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	reference := c.Params("reference")
	if reference == "" {
		return utils.BadRequest(c, "Transaction reference is required")
	}

	tx, err := h.settlements.Status(c.Context(), claims.UserID, reference)
	if err != nil {
		return utils.AppError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"reference":        tx.TransactionID,
		"type":             tx.Type,
		"status":           tx.Status,
		"amount":           tx.Amount,
		"converted_amount": tx.ConvertedAmount,
		"exchange_rate":    tx.ExchangeRate,
		"currency_from":    tx.CurrencyFrom,
		"currency_to":      tx.CurrencyTo,
		"description":      tx.Description,
		"created_at":       tx.CreatedAt,
	})
}

// History lists the caller's transactions, newest first.
func (h *TransactionHandler) History(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	txs, err := h.settlements.History(c.Context(), claims.UserID, limit, offset)
	if err != nil {
		return utils.InternalError(c, "Failed to list transactions")
	}
	return utils.Success(c, fiber.Map{
		"transactions": txs,
		"count":        len(txs),
	})
}
