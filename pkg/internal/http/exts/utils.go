package exts

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validation = validator.New(validator.WithRequiredStructEnabled())

func BindAndValidate(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	} else if err := validation.Struct(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// ClientFingerprint identifies the voter behind a request by its address.
// The proxy header is honored only for trusted proxies, see NewServer.
func ClientFingerprint(c *fiber.Ctx) string {
	if ip := c.IP(); len(ip) > 0 {
		return ip
	}
	return c.Context().RemoteIP().String()
}
