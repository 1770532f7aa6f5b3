package api

import (
	"fmt"

	"git.solsynth.dev/hypernet/nanovote/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/models"
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func getPoll(c *fiber.Ctx) error {
	pollId := c.Params("pollId")

	poll, err := services.GetPoll(pollId, exts.ClientFingerprint(c))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	} else if poll == nil {
		return exts.SendVoteError(c, &services.VoteError{Code: services.CodePollNotFound})
	}

	return c.JSON(poll)
}

func createPoll(c *fiber.Ctx) error {
	var data struct {
		Title         string   `json:"title" validate:"required"`
		Options       []string `json:"options" validate:"required"`
		Duration      string   `json:"duration"`
		AllowMultiple bool     `json:"allow_multiple"`
		MinSelection  *int     `json:"min_selection"`
		MaxSelection  *int     `json:"max_selection"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	poll, err := services.NewPoll(models.PollCreation{
		Title:         data.Title,
		Options:       data.Options,
		Duration:      data.Duration,
		AllowMultiple: data.AllowMultiple,
		MinSelection:  data.MinSelection,
		MaxSelection:  data.MaxSelection,
	})
	if err != nil {
		return exts.SendVoteError(c, err)
	}

	return c.JSON(fiber.Map{
		"poll_id":    poll.ID,
		"url":        fmt.Sprintf("/p/%s", poll.ID),
		"expires_at": poll.ExpiresAt.Unix(),
	})
}
