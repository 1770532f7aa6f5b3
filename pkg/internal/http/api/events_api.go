package api

import (
	"bufio"
	"fmt"
	"time"

	"git.solsynth.dev/hypernet/nanovote/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/models"
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/realtime"
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/valyala/fasthttp"
)

const defaultHeartbeat = 15 * time.Second

func writeServerEvent(w *bufio.Writer, event realtime.Event) error {
	payload, err := jsoniter.Marshal(event.Data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload); err != nil {
		return err
	}
	return w.Flush()
}

func listenPollEvents(c *fiber.Ctx) error {
	pollId := c.Params("pollId")

	if eventHub == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "realtime updates are disabled")
	}
	if !services.PollExists(pollId) {
		return exts.SendVoteError(c, &services.VoteError{Code: services.CodePollNotFound})
	}

	heartbeat := viper.GetDuration("realtime.heartbeat")
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}

	sub := eventHub.Subscribe(pollId)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer eventHub.Unsubscribe(sub)

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		if err := writeServerEvent(w, realtime.Event{
			Type: "connected",
			Data: fiber.Map{"poll_id": pollId},
		}); err != nil {
			return
		}

		for {
			select {
			case event, ok := <-sub.C:
				if !ok {
					return
				}
				if err := writeServerEvent(w, event); err != nil {
					log.Debug().Err(err).Str("poll", pollId).Msg("Event stream closed by client.")
					return
				}
			case <-ticker.C:
				// The sweep may have run before this subscriber joined the room
				if !services.PollExists(pollId) {
					_ = writeServerEvent(w, realtime.Event{
						Type: models.EventPollExpired,
						Data: models.PollClosedEvent{PollID: pollId},
					})
					return
				}
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))

	return nil
}
