package api

import (
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/realtime"
	"github.com/gofiber/fiber/v2"
)

var eventHub *realtime.Hub

func MapAPIs(app *fiber.App, baseURL string, hub *realtime.Hub) {
	eventHub = hub

	app.Get("/health", getHealth)

	api := app.Group(baseURL).Name("API")
	{
		polls := api.Group("/polls").Name("Polls API")
		{
			polls.Post("/", createPoll)
			polls.Get("/:pollId", getPoll)
			polls.Post("/:pollId/vote", votePoll)
			polls.Get("/:pollId/events", listenPollEvents)
		}
	}
}
