package services

import (
	"time"

	"git.solsynth.dev/hypernet/nanovote/pkg/internal/database"
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

const cleanupBatchSize = 500

func DoAutoDatabaseCleanup() {
	log.Debug().Time("now", time.Now()).Msg("Now cleaning up expired polls...")

	count, err := CleanupExpiredPolls()
	if err != nil {
		log.Error().Err(err).Msg("An error occurred when cleaning up expired polls...")
		return
	}

	log.Debug().Int("count", count).Msg("Clean up expired polls completed.")
}

// CleanupExpiredPolls removes every poll past its expiry together with its
// options and ballots, then emits one closed event per removed poll.
func CleanupExpiredPolls() (int, error) {
	now := Now()

	var ids []string
	if err := database.C.Model(&models.Poll{}).
		Where("expires_at <= ?", now).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}

	var removed []string
	for _, chunk := range lo.Chunk(ids, cleanupBatchSize) {
		if err := database.C.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("id IN ? AND expires_at <= ?", chunk, now).Delete(&models.Poll{}).Error; err != nil {
				return err
			}
			if err := tx.Where("poll_id IN ?", chunk).Delete(&models.PollOption{}).Error; err != nil {
				return err
			}
			return tx.Where("poll_id IN ?", chunk).Delete(&models.PollBallot{}).Error
		}); err != nil {
			return len(removed), err
		}
		removed = append(removed, chunk...)
	}

	// Ballots whose poll vanished without going through the sweep
	if err := database.C.Where("expires_at <= ?", now).Delete(&models.PollBallot{}).Error; err != nil {
		log.Warn().Err(err).Msg("An error occurred when purging stale ballots...")
	}

	n := getNotifier()
	for _, id := range removed {
		invalidatePollCache(id)
		n.NotifyPollClosed(models.PollClosedEvent{PollID: id})
	}

	return len(removed), nil
}
