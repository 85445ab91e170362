package handlers

import (
	"context"

	"github.com/Sharon404/wallet-app/internal/models"
	"github.com/Sharon404/wallet-app/internal/providers/flutterwave"
	"github.com/Sharon404/wallet-app/internal/services/rates"
	"github.com/Sharon404/wallet-app/internal/services/settlement"
	"github.com/Sharon404/wallet-app/internal/utils"
	"github.com/Sharon404/wallet-app/internal/utils/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// BankDirectory lists payout banks. Satisfied by flutterwave.Client.
type BankDirectory interface {
	Banks(ctx context.Context, countryCode string) ([]flutterwave.Bank, error)
}

type WalletHandler struct {
	settlements settlement.Service
	rates       rates.Service
	banks       BankDirectory
}

func NewWalletHandler(settlements settlement.Service, ratesService rates.Service, banks BankDirectory) *WalletHandler {
	return &WalletHandler{
		settlements: settlements,
		rates:       ratesService,
		banks:       banks,
	}
}

// extractUserClaims is a helper function to reduce duplication
func extractUserClaims(c *fiber.Ctx) (*models.UserClaims, error) {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok || claims == nil {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}

func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	wallet, err := h.settlements.Wallet(c.Context(), claims.UserID)
	if err != nil {
		return utils.InternalError(c, "Failed to get wallet")
	}

	return utils.Success(c, fiber.Map{
		"wallet": fiber.Map{
			"wallet_id": wallet.WalletID,
			"balance":   wallet.Balance,
			"currency":  wallet.Currency,
		},
	})
}

// ConvertPreview quotes a conversion without moving money.
func (h *WalletHandler) ConvertPreview(c *fiber.Ctx) error {
	if _, err := extractUserClaims(c); err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil || !amount.IsPositive() {
		return utils.BadRequest(c, "Amount must be greater than 0")
	}
	from := models.NormalizeCurrency(c.Query("from"))
	to := models.NormalizeCurrency(c.Query("to"))
	if err := validation.ValidateVar(from, "required,currency"); err != nil {
		return utils.BadRequest(c, "Unsupported source currency")
	}
	if err := validation.ValidateVar(to, "required,currency"); err != nil {
		return utils.BadRequest(c, "Unsupported target currency")
	}

	converted, rate, err := h.rates.Convert(c.Context(), amount, from, to)
	if err != nil {
		return utils.AppError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"amount":           amount,
		"converted_amount": converted,
		"exchange_rate":    rate,
		"from":             from,
		"to":               to,
	})
}

// ListBanks returns the payout banks for a country.
func (h *WalletHandler) ListBanks(c *fiber.Ctx) error {
	if _, err := extractUserClaims(c); err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	country := c.Query("country", "KE")
	banks, err := h.banks.Banks(c.Context(), country)
	if err != nil {
		return utils.AppError(c, err)
	}
	return utils.Success(c, fiber.Map{"banks": banks})
}
