package api

import (
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func votePoll(c *fiber.Ctx) error {
	pollId := c.Params("pollId")

	var data struct {
		OptionID  *uint  `json:"option_id"`
		OptionIDs []uint `json:"option_ids"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	var choices []uint
	if data.OptionID != nil && len(data.OptionIDs) > 0 {
		return fiber.NewError(fiber.StatusBadRequest, "option_id and option_ids cannot be used together")
	} else if data.OptionID != nil {
		choices = []uint{*data.OptionID}
	} else {
		choices = data.OptionIDs
	}

	result, err := services.Vote(pollId, exts.ClientFingerprint(c), choices)
	if err != nil {
		return exts.SendVoteError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"options":     result.Options,
		"total_votes": result.TotalVotes,
	})
}
