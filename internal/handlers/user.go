package handlers

import (
	"github.com/Sharon404/wallet-app/internal/repositories"
	"github.com/Sharon404/wallet-app/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	users repositories.UserRepository
}

func NewUserHandler(users repositories.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

// GetProfile returns the authenticated user's account details.
func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	user, err := h.users.GetByID(c.Context(), claims.UserID)
	if err != nil {
		return utils.NotFound(c, "User not found")
	}

	return utils.Success(c, fiber.Map{
		"user": fiber.Map{
			"id":            user.ID,
			"email":         user.Email,
			"first_name":    user.FirstName,
			"last_name":     user.LastName,
			"mobile":        user.Mobile,
			"active":        user.Active,
			"pin_set":       user.Pin != "",
			"last_login_at": user.LastLoginAt,
			"created_at":    user.CreatedAt,
		},
	})
}
