package exts

import (
	"errors"

	"git.solsynth.dev/hypernet/nanovote/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

// VoteErrorStatus maps a vote error code to the HTTP status it is reported with.
func VoteErrorStatus(code string) int {
	switch code {
	case services.CodePollNotFound:
		return fiber.StatusNotFound
	case services.CodePollExpired:
		return fiber.StatusGone
	case services.CodeAlreadyVoted:
		return fiber.StatusConflict
	case services.CodeVoteFailed, services.CodeCreateFailed:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusBadRequest
	}
}

// SendVoteError writes err as {code, option_id?, count?, message?}.
// Errors that are not vote errors fall back to a plain fiber error.
func SendVoteError(c *fiber.Ctx, err error) error {
	var ve *services.VoteError
	if !errors.As(err, &ve) {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	body := fiber.Map{"code": ve.Code}
	if ve.OptionID != nil {
		body["option_id"] = *ve.OptionID
	}
	if ve.Count != nil {
		body["count"] = *ve.Count
	}
	if len(ve.Message) > 0 {
		body["message"] = ve.Message
	}

	return c.Status(VoteErrorStatus(ve.Code)).JSON(body)
}
