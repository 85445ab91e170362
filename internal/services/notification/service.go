package notification

import (
	"context"
	"log"

	"github.com/Sharon404/wallet-app/internal/models"
)

// Service is a minimal notification service implementation. Delivery is
// log-only; a real SMS or email channel plugs in behind the same methods.
type Service struct{}

// NewService creates a new notification service.
func NewService() *Service { return &Service{} }

// SendOtp logs a one-time code delivery.
func (s *Service) SendOtp(ctx context.Context, user *models.User, code string) {
	log.Printf("Notify user %d: OTP %s", user.ID, code)
}

// SendActivation logs an account activation link delivery.
func (s *Service) SendActivation(ctx context.Context, user *models.User, token string) {
	log.Printf("Notify user %d: activation token %s", user.ID, token)
}

// SendTransferNotification logs a settlement notification.
func (s *Service) SendTransferNotification(ctx context.Context, userID uint, tx *models.Transaction) error {
	log.Printf("Notify user %d of transaction %s (%s)", userID, tx.TransactionID, tx.Status)
	return nil
}
