package handlers

import (
	"errors"
	"log"
	"time"

	"github.com/Sharon404/wallet-app/internal/config"
	"github.com/Sharon404/wallet-app/internal/services/auth"
	"github.com/Sharon404/wallet-app/internal/utils"
	"github.com/Sharon404/wallet-app/internal/utils/validation"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService auth.Service
}

func NewAuthHandler(authService auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterUser creates an account and its wallet, then sends an
// activation token.
func (h *AuthHandler) RegisterUser(c *fiber.Ctx) error {
	var input struct {
		Email     string `json:"email" validate:"required,email"`
		Password  string `json:"password" validate:"required,min=8"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Mobile    string `json:"mobile"`
		Currency  string `json:"currency" validate:"currency"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if errs := validation.Validate(input); errs != nil {
		return utils.Respond(c, fiber.StatusBadRequest, fiber.Map{"errors": errs})
	}

	user, err := h.authService.Register(c.Context(), auth.RegisterInput{
		Email:     input.Email,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Mobile:    input.Mobile,
		Currency:  input.Currency,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			return utils.BadRequest(c, "Email already registered")
		case errors.Is(err, auth.ErrWeakPassword):
			return utils.BadRequest(c, err.Error())
		default:
			log.Printf("Registration failed: %v", err)
			return utils.InternalError(c, "Registration failed")
		}
	}

	return utils.Respond(c, fiber.StatusCreated, fiber.Map{
		"message": "Account created, check your inbox for the activation link",
		"user": fiber.Map{
			"id":    user.ID,
			"email": user.Email,
		},
	})
}

// ActivateUser consumes an activation token.
func (h *AuthHandler) ActivateUser(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return utils.BadRequest(c, "Activation token is required")
	}
	if err := h.authService.Activate(c.Context(), token); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			return utils.BadRequest(c, "Invalid or expired activation token")
		}
		return utils.InternalError(c, "Activation failed")
	}
	return utils.Success(c, fiber.Map{"message": "Account activated"})
}

// LoginUser checks the password and sends an OTP. Tokens are only issued
// after VerifyOtp.
func (h *AuthHandler) LoginUser(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if errs := validation.Validate(input); errs != nil {
		return utils.Respond(c, fiber.StatusBadRequest, fiber.Map{"errors": errs})
	}

	user, err := h.authService.Login(c.Context(), input.Email, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			return utils.Unauthorized(c, "Invalid email or password")
		case errors.Is(err, auth.ErrInactiveAccount):
			return utils.Forbidden(c, "Account not activated")
		default:
			return utils.InternalError(c, "Authentication failed")
		}
	}

	return utils.Success(c, fiber.Map{
		"message": "OTP sent",
		"user_id": user.ID,
	})
}

// VerifyOtp completes login and returns JWT tokens.
func (h *AuthHandler) VerifyOtp(c *fiber.Ctx) error {
	var input struct {
		Email string `json:"email" validate:"required,email"`
		Otp   string `json:"otp" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if errs := validation.Validate(input); errs != nil {
		return utils.Respond(c, fiber.StatusBadRequest, fiber.Map{"errors": errs})
	}

	user, accessToken, refreshToken, err := h.authService.VerifyLoginOtp(c.Context(), input.Email, input.Otp)
	if err != nil {
		return utils.Unauthorized(c, "Invalid or expired OTP")
	}

	h.setAuthCookies(c, accessToken, refreshToken)

	return utils.Success(c, fiber.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user": fiber.Map{
			"id":    user.ID,
			"email": user.Email,
		},
	})
}

// RefreshToken rotates the token pair.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var input struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&input); err != nil || input.RefreshToken == "" {
		// Fall back to the cookie set at login.
		input.RefreshToken = c.Cookies("refresh_token")
	}
	if input.RefreshToken == "" {
		return utils.BadRequest(c, "Refresh token is required")
	}

	accessToken, refreshToken, err := h.authService.RefreshTokens(c.Context(), input.RefreshToken)
	if err != nil {
		return utils.Unauthorized(c, "Invalid refresh token")
	}

	h.setAuthCookies(c, accessToken, refreshToken)

	return utils.Success(c, fiber.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

// Logout invalidates every outstanding token for the user.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}
	if err := h.authService.Logout(c.Context(), userID); err != nil {
		return utils.InternalError(c, "Logout failed")
	}

	c.ClearCookie("access_token", "refresh_token")
	return utils.Success(c, fiber.Map{"message": "Logged out"})
}

// ChangePassword updates the password and invalidates existing sessions.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		OldPassword string `json:"old_password" validate:"required"`
		NewPassword string `json:"new_password" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if errs := validation.Validate(input); errs != nil {
		return utils.Respond(c, fiber.StatusBadRequest, fiber.Map{"errors": errs})
	}

	if err := h.authService.ChangePassword(c.Context(), userID, input.OldPassword, input.NewPassword); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			return utils.BadRequest(c, "Invalid old password")
		case errors.Is(err, auth.ErrWeakPassword):
			return utils.BadRequest(c, err.Error())
		default:
			return utils.InternalError(c, "Failed to change password")
		}
	}
	return utils.Success(c, fiber.Map{"message": "Password changed"})
}

// SetPin sets the 6-digit transaction PIN.
func (h *AuthHandler) SetPin(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Pin string `json:"pin" validate:"required,pin"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if errs := validation.Validate(input); errs != nil {
		return utils.Respond(c, fiber.StatusBadRequest, fiber.Map{"errors": errs})
	}

	if err := h.authService.SetPin(c.Context(), userID, input.Pin); err != nil {
		return utils.BadRequest(c, err.Error())
	}
	return utils.Success(c, fiber.Map{"message": "PIN set"})
}

// RequestOtp issues a fresh OTP for a large transfer.
func (h *AuthHandler) RequestOtp(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}
	if err := h.authService.RequestOtp(c.Context(), userID); err != nil {
		return utils.InternalError(c, "Failed to send OTP")
	}
	return utils.Success(c, fiber.Map{"message": "OTP sent"})
}

func (h *AuthHandler) setAuthCookies(c *fiber.Ctx, accessToken, refreshToken string) {
	secure := config.IsProduction()
	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    accessToken,
		Expires:  time.Now().Add(15 * time.Minute),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: "Strict",
	})
	c.Cookie(&fiber.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		Expires:  time.Now().Add(7 * 24 * time.Hour),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: "Strict",
	})
}
