// Package auth owns accounts, sessions and the second factors the
// settlement engine depends on. Registration creates the user's wallet
// explicitly so every authenticated user has exactly one from day one.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Sharon404/wallet-app/internal/models"
	"github.com/Sharon404/wallet-app/internal/repositories"
	"github.com/Sharon404/wallet-app/internal/utils"
	"github.com/Sharon404/wallet-app/internal/utils/validation"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("account not activated")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrWeakPassword       = errors.New("password must be at least 8 characters and contain special characters")
	ErrPinNotSet          = errors.New("transaction PIN not set")
)

const (
	otpTTL        = 5 * time.Minute
	activationTTL = 24 * time.Hour
	otpDigits     = 6
)

// CodeStore holds short-lived one-time codes. Satisfied by
// cache.CacheService.
type CodeStore interface {
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// Notifier delivers codes to the user out of band.
type Notifier interface {
	SendOtp(ctx context.Context, user *models.User, code string)
	SendActivation(ctx context.Context, user *models.User, token string)
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Mobile    string
	Currency  string
}

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	Activate(ctx context.Context, token string) error
	Login(ctx context.Context, email, password string) (*models.User, error)
	VerifyLoginOtp(ctx context.Context, email, code string) (*models.User, string, string, error)
	RefreshTokens(ctx context.Context, refreshToken string) (string, string, error)
	Logout(ctx context.Context, userID uint) error
	ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error
	SetPin(ctx context.Context, userID uint, pin string) error
	RequestOtp(ctx context.Context, userID uint) error

	// Second factors for money movement. Both fail closed.
	VerifyPin(ctx context.Context, userID uint, pin string) bool
	VerifyOtp(ctx context.Context, userID uint, code string) bool
}

type service struct {
	users    repositories.UserRepository
	ledger   repositories.Ledger
	codes    CodeStore
	notifier Notifier
}

func NewService(users repositories.UserRepository, ledger repositories.Ledger, codes CodeStore, notifier Notifier) Service {
	return &service{
		users:    users,
		ledger:   ledger,
		codes:    codes,
		notifier: notifier,
	}
}

func (s *service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if len(in.Password) < 8 || !validation.HasSpecialChar(in.Password) {
		return nil, ErrWeakPassword
	}
	currency := models.NormalizeCurrency(in.Currency)
	if currency == "" {
		currency = models.DefaultCurrency
	}
	if !models.IsSupportedCurrency(currency) {
		return nil, fmt.Errorf("unsupported currency %q", currency)
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:     in.Email,
		Password:  string(hashed),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Mobile:    in.Mobile,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	// Wallet creation is part of registration, not deferred to first use.
	if _, err := s.ledger.GetOrCreateWallet(ctx, user.ID, currency); err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	token := utils.MustGenerateSecureCode()
	if err := s.codes.SetWithTTL(ctx, activationKey(token), user.ID, activationTTL); err != nil {
		return nil, fmt.Errorf("failed to store activation token: %w", err)
	}
	s.notifier.SendActivation(ctx, user, token)

	return user, nil
}

func (s *service) Activate(ctx context.Context, token string) error {
	var userID uint
	found, err := s.codes.Get(ctx, activationKey(token), &userID)
	if err != nil {
		return err
	}
	if !found {
		return ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return ErrInvalidToken
	}
	user.Active = true
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	return s.codes.Delete(ctx, activationKey(token))
}

// Login checks the password and sends an OTP. The session only exists
// after VerifyLoginOtp.
func (s *service) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		log.Printf("Login failed: user not found for %s", email)
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		log.Printf("Login failed: incorrect password for user ID %d", user.ID)
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrInactiveAccount
	}

	if err := s.RequestOtp(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) VerifyLoginOtp(ctx context.Context, email, code string) (*models.User, string, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", "", ErrInvalidCredentials
	}
	if !s.VerifyOtp(ctx, user.ID, code) {
		return nil, "", "", ErrInvalidCredentials
	}

	user.LastLoginAt = time.Now()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, "", "", err
	}

	access, refresh, err := utils.GenerateTokens(&models.UserClaims{
		UserID:       user.ID,
		Email:        user.Email,
		TokenVersion: user.TokenVersion,
	})
	if err != nil {
		log.Println("Error generating tokens:", err)
		return nil, "", "", errors.New("error generating tokens")
	}
	return user, access, refresh, nil
}

func (s *service) RefreshTokens(ctx context.Context, refreshToken string) (string, string, error) {
	_, claims, err := utils.ParseToken(refreshToken)
	if err != nil {
		return "", "", ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return "", "", ErrInvalidToken
	}
	if user.TokenVersion != claims.TokenVersion {
		return "", "", ErrInvalidToken
	}

	return utils.GenerateTokens(&models.UserClaims{
		UserID:       user.ID,
		Email:        user.Email,
		TokenVersion: user.TokenVersion,
	})
}

// Logout bumps the token version so every outstanding token is rejected.
func (s *service) Logout(ctx context.Context, userID uint) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	user.TokenVersion++
	return s.users.Update(ctx, user)
}

func (s *service) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}
	if len(newPassword) < 8 || !validation.HasSpecialChar(newPassword) {
		return ErrWeakPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashed)
	user.TokenVersion++ // Invalidate existing tokens
	return s.users.Update(ctx, user)
}

func (s *service) SetPin(ctx context.Context, userID uint, pin string) error {
	if err := validation.ValidateVar(pin, "pin"); err != nil {
		return errors.New("PIN must be exactly 6 digits")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash pin: %w", err)
	}
	user.Pin = string(hashed)
	return s.users.Update(ctx, user)
}

func (s *service) RequestOtp(ctx context.Context, userID uint) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	code, err := utils.GenerateNumericCode(otpDigits)
	if err != nil {
		return fmt.Errorf("failed to generate otp: %w", err)
	}
	if err := s.codes.SetWithTTL(ctx, otpKey(userID), code, otpTTL); err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	s.notifier.SendOtp(ctx, user, code)
	return nil
}

// VerifyPin compares against the stored bcrypt hash. A user without a PIN
// never passes.
func (s *service) VerifyPin(ctx context.Context, userID uint, pin string) bool {
	if pin == "" {
		return false
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil || user.Pin == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.Pin), []byte(pin)) == nil
}

// VerifyOtp consumes the stored code on success so it cannot be replayed.
func (s *service) VerifyOtp(ctx context.Context, userID uint, code string) bool {
	if code == "" {
		return false
	}
	var stored string
	found, err := s.codes.Get(ctx, otpKey(userID), &stored)
	if err != nil || !found || stored != code {
		return false
	}
	if err := s.codes.Delete(ctx, otpKey(userID)); err != nil {
		log.Printf("failed to delete consumed otp for user %d: %v", userID, err)
	}
	return true
}

func otpKey(userID uint) string {
	return fmt.Sprintf("otp:user:%d", userID)
}

func activationKey(token string) string {
	return fmt.Sprintf("activation:%s", token)
}
