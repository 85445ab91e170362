package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;not null"`
	Password     string `gorm:"not null"`
	FirstName    string
	LastName     string
	Mobile       string
	Pin          string // bcrypt hash of the 6-digit transfer PIN, empty until set
	Active       bool   `gorm:"default:false"`
	TokenVersion int    `gorm:"default:1"`
	LastLoginAt  time.Time
}
