package handlers

import (
	"github.com/Sharon404/wallet-app/internal/repositories"

	"github.com/gofiber/fiber/v2"
)

func HealthCheck(c *fiber.Ctx) error {
	database := "connected"
	if db, err := repositories.DB.DB(); err != nil || db.Ping() != nil {
		database = "unreachable"
	}
	redis := "connected"
	if err := repositories.CacheService.HealthCheck(c.Context()); err != nil {
		redis = "unreachable"
	}

	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": "1.0.0",
		"services": fiber.Map{
			"database": database,
			"redis":    redis,
		},
	})
}
