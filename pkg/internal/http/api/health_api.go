package api

import (
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func getHealth(c *fiber.Ctx) error {
	report := services.CheckHealth()
	if !report.IsHealthy() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(report)
	}
	return c.JSON(report)
}
