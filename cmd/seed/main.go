// Command seed creates a pair of demo accounts with funded wallets for
// local development.
package main

import (
	"log"

	"github.com/Sharon404/wallet-app/internal/config"
	"github.com/Sharon404/wallet-app/internal/models"
	"github.com/Sharon404/wallet-app/internal/repositories"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type seedUser struct {
	email    string
	password string
	pin      string
	balance  string
	currency string
}

func main() {
	config.LoadEnv()

	if err := repositories.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if sqlDB, err := repositories.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	seeds := []seedUser{
		{"alice@example.com", "alice-pass!1", "123456", "100000.00", "KES"},
		{"bob@example.com", "bob-pass!1", "654321", "500.00", "USD"},
	}

	for _, s := range seeds {
		var existing models.User
		if err := repositories.DB.Where("email = ?", s.email).First(&existing).Error; err == nil {
			log.Printf("User %s already exists, skipping", s.email)
			continue
		}

		password, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal("Failed to hash password:", err)
		}
		pin, err := bcrypt.GenerateFromPassword([]byte(s.pin), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal("Failed to hash pin:", err)
		}

		user := models.User{
			Email:        s.email,
			Password:     string(password),
			Pin:          string(pin),
			Active:       true,
			TokenVersion: 1,
		}
		if err := repositories.DB.Create(&user).Error; err != nil {
			log.Fatal("Failed to create user:", err)
		}

		wallet := models.Wallet{
			UserID:   user.ID,
			Balance:  decimal.RequireFromString(s.balance),
			Currency: s.currency,
		}
		if err := repositories.DB.Create(&wallet).Error; err != nil {
			log.Fatal("Failed to create wallet:", err)
		}

		log.Printf("✅ Seeded %s with %s %s", s.email, s.balance, s.currency)
	}
}
