package services

import (
	"errors"

	"git.solsynth.dev/hypernet/nanovote/pkg/internal/database"
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// validateChoices runs the checks that only depend on the immutable poll head.
func validateChoices(head *pollHead, choices []uint) error {
	if !head.AllowMultiple && len(choices) > 1 {
		return newVoteError(CodeMultipleNotAllowed)
	}
	if head.AllowMultiple {
		if head.MinSelection != nil && len(choices) < *head.MinSelection {
			return &VoteError{Code: CodeMinSelection, Count: lo.ToPtr(*head.MinSelection)}
		}
		if head.MaxSelection != nil && len(choices) > *head.MaxSelection {
			return &VoteError{Code: CodeMaxSelection, Count: lo.ToPtr(*head.MaxSelection)}
		}
	}
	for _, id := range choices {
		if !lo.Contains(head.OptionIDs, id) {
			return &VoteError{Code: CodeInvalidOption, OptionID: lo.ToPtr(id)}
		}
	}
	return nil
}

// Vote records the ballot of fingerprint on a poll and returns the tallies
// right after it was applied.
//
// The ballot insert, the counter increments and the liveness re-check run in
// one transaction. The ballot key is (poll, voter digest) and is inserted with
// ON CONFLICT DO NOTHING, so of two racing votes from one voter exactly one
// writes the ballot and the other rolls back with ALREADY_VOTED.
func Vote(pollID string, fingerprint string, optionIDs []uint) (models.VoteResult, error) {
	var result models.VoteResult

	if len(optionIDs) == 0 {
		return result, newVoteError(CodeMissingOption)
	}
	choices := lo.Uniq(optionIDs)

	head, err := getPollHead(pollID)
	if err != nil {
		log.Error().Err(err).Str("poll", pollID).Msg("An error occurred when loading poll for voting...")
		return result, &VoteError{Code: CodeVoteFailed, Err: err}
	} else if head == nil {
		return result, newVoteError(CodePollNotFound)
	}

	now := Now()
	if !now.Before(head.ExpiresAt) {
		return result, newVoteError(CodePollExpired)
	}
	if err := validateChoices(head, choices); err != nil {
		return result, err
	}

	ballot := models.PollBallot{
		PollID:      pollID,
		VoterDigest: DigestFingerprint(fingerprint),
		Options:     choices,
		CreatedAt:   now,
		ExpiresAt:   head.ExpiresAt.UTC(),
	}

	err = database.C.Transaction(func(tx *gorm.DB) error {
		// The poll row update doubles as the liveness check; an expired or swept
		// poll matches no rows.
		res := tx.Model(&models.Poll{}).
			Where("id = ? AND expires_at > ?", pollID, now).
			Updates(map[string]any{
				"total_votes":   gorm.Expr("total_votes + ?", len(choices)),
				"unique_voters": gorm.Expr("unique_voters + ?", 1),
			})
		if res.Error != nil {
			return res.Error
		} else if res.RowsAffected == 0 {
			return newVoteError(CodePollExpired)
		}

		res = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ballot)
		if res.Error != nil {
			return res.Error
		} else if res.RowsAffected == 0 {
			return newVoteError(CodeAlreadyVoted)
		}

		res = tx.Model(&models.PollOption{}).
			Where("poll_id = ? AND id IN ?", pollID, choices).
			Update("votes", gorm.Expr("votes + ?", 1))
		if res.Error != nil {
			return res.Error
		} else if res.RowsAffected != int64(len(choices)) {
			return &VoteError{Code: CodeVoteFailed, Message: "option set of the poll does not match"}
		}

		if err := tx.Where("poll_id = ?", pollID).Order("id ASC").Find(&result.Options).Error; err != nil {
			return err
		}
		var stats models.Poll
		if err := tx.Select("total_votes").Where("id = ?", pollID).First(&stats).Error; err != nil {
			return err
		}
		result.TotalVotes = stats.TotalVotes

		return nil
	})
	if err != nil {
		var ve *VoteError
		if errors.As(err, &ve) {
			return models.VoteResult{}, ve
		}
		log.Error().Err(err).Str("poll", pollID).Msg("An error occurred when applying vote...")
		return models.VoteResult{}, &VoteError{Code: CodeVoteFailed, Err: err}
	}

	log.Debug().Str("poll", pollID).Int("choices", len(choices)).Msg("Applied a vote.")

	tallies := lo.SliceToMap(result.Options, func(item models.PollOption) (uint, int64) {
		return item.ID, item.Votes
	})
	n := getNotifier()
	for _, id := range choices {
		n.NotifyVote(models.VoteEvent{
			PollID:     pollID,
			OptionID:   id,
			Votes:      tallies[id],
			TotalVotes: result.TotalVotes,
		})
	}

	return result, nil
}
