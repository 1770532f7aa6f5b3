package http

import (
	"strings"

	"git.solsynth.dev/hypernet/nanovote/pkg/internal/http/admin"
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/http/api"
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/realtime"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

type HTTPApp struct {
	app *fiber.App
}

func NewServer(hub *realtime.Hub) *HTTPApp {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		EnableIPValidation:      true,
		ServerHeader:            "NanoVote",
		AppName:                 "NanoVote",
		// The proxy header is only read from peers listed in security.trusted_proxies,
		// everyone else is identified by the peer address.
		ProxyHeader:             viper.GetString("security.proxy_header"),
		EnableTrustedProxyCheck: true,
		TrustedProxies:          viper.GetStringSlice("security.trusted_proxies"),
		JSONEncoder:             jsoniter.ConfigCompatibleWithStandardLibrary.Marshal,
		JSONDecoder:             jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal,
		BodyLimit:               64 * 1024,
		EnablePrintRoutes:       viper.GetBool("debug.print_routes"),
	})

	origins := viper.GetStringSlice("cors.allow_origins")
	app.Use(cors.New(cors.Config{
		AllowCredentials: false,
		AllowMethods: strings.Join([]string{
			fiber.MethodGet,
			fiber.MethodPost,
			fiber.MethodOptions,
			fiber.MethodHead,
		}, ","),
		AllowOrigins: lo.Ternary(len(origins) > 0, strings.Join(origins, ","), "*"),
	}))

	app.Use(logger.New(logger.Config{
		Format: "${status} | ${latency} | ${method} ${path}\n",
		Output: log.Logger,
	}))

	api.MapAPIs(app, "/api", hub)
	admin.MapControllers(app, "/api/admin")

	return &HTTPApp{app}
}

func (v *HTTPApp) Listen() {
	if err := v.app.Listen(viper.GetString("bind")); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when starting server...")
	}
}

func (v *HTTPApp) Shutdown() error {
	return v.app.Shutdown()
}
