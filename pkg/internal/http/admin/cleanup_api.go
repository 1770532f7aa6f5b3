package admin

import (
	"crypto/subtle"
	"strings"

	"git.solsynth.dev/hypernet/nanovote/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
)

// ensureAdminToken guards the admin routes with the static bearer token in
// security.admin_token. An empty token disables the routes.
func ensureAdminToken(c *fiber.Ctx) error {
	expected := viper.GetString("security.admin_token")
	if len(expected) == 0 {
		return fiber.NewError(fiber.StatusForbidden, "admin api is disabled")
	}

	provided := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid admin token")
	}

	return c.Next()
}

func adminTriggerCleanup(c *fiber.Ctx) error {
	count, err := services.CleanupExpiredPolls()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(fiber.Map{"count": count})
}
