package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	localCache "git.solsynth.dev/hypernet/nanovote/pkg/internal/cache"
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/database"
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/models"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxPollIDAttempts = 5

// pollHead is the immutable part of a poll the vote engine validates against.
type pollHead struct {
	ID            string
	AllowMultiple bool
	MinSelection  *int
	MaxSelection  *int
	OptionIDs     []uint
	ExpiresAt     time.Time
}

func GetPollHeadCacheKey(id string) string {
	return fmt.Sprintf("poll-head#%s", id)
}

func GetPollCacheTag(id string) string {
	return fmt.Sprintf("poll#%s", id)
}

func cachePollHead(head pollHead) {
	if localCache.S == nil {
		return
	}
	ttl := time.Until(head.ExpiresAt)
	if ttl <= 0 {
		return
	}

	marshal := marshaler.New(cache.New[any](localCache.S))
	_ = marshal.Set(
		context.Background(),
		GetPollHeadCacheKey(head.ID),
		head,
		store.WithExpiration(ttl),
		store.WithCost(1),
		store.WithTags([]string{"poll-head", GetPollCacheTag(head.ID)}),
	)
}

func invalidatePollCache(id string) {
	if localCache.S == nil {
		return
	}
	cacheManager := cache.New[any](localCache.S)
	_ = cacheManager.Invalidate(context.Background(), store.WithInvalidateTags([]string{GetPollCacheTag(id)}))
}

// getPollHead returns nil without error when the poll record does not exist.
// Expired but not yet swept polls are still returned.
func getPollHead(id string) (*pollHead, error) {
	if localCache.S != nil {
		marshal := marshaler.New(cache.New[any](localCache.S))
		if val, err := marshal.Get(context.Background(), GetPollHeadCacheKey(id), new(pollHead)); err == nil {
			head := val.(*pollHead)
			// msgpack decodes times in the local zone, ballots copy this value into the store
			head.ExpiresAt = head.ExpiresAt.UTC()
			return head, nil
		}
	}

	var poll models.Poll
	if err := database.C.Where("id = ?", id).First(&poll).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var optionIDs []uint
	if err := database.C.Model(&models.PollOption{}).
		Where("poll_id = ?", id).
		Order("id ASC").
		Pluck("id", &optionIDs).Error; err != nil {
		return nil, err
	}

	head := pollHead{
		ID:            poll.ID,
		AllowMultiple: poll.AllowMultiple,
		MinSelection:  poll.MinSelection,
		MaxSelection:  poll.MaxSelection,
		OptionIDs:     optionIDs,
		ExpiresAt:     poll.ExpiresAt.UTC(),
	}
	cachePollHead(head)

	return &head, nil
}

func invalidPoll(message string) *VoteError {
	return &VoteError{Code: CodeInvalidPoll, Message: message}
}

func normalizePollCreation(data models.PollCreation) (models.Poll, error) {
	var poll models.Poll

	title := strings.TrimSpace(data.Title)
	if len(title) == 0 {
		return poll, invalidPoll("title is required")
	}
	if utf8.RuneCountInString(title) > models.PollTitleMaxLength {
		return poll, invalidPoll(fmt.Sprintf("title must be at most %d characters", models.PollTitleMaxLength))
	}

	if len(data.Options) > models.PollMaxOptions {
		return poll, invalidPoll(fmt.Sprintf("a poll takes at most %d options", models.PollMaxOptions))
	}
	var texts []string
	for _, raw := range data.Options {
		text := strings.TrimSpace(raw)
		if len(text) == 0 {
			continue
		}
		if runes := []rune(text); len(runes) > models.PollOptionMaxLength {
			text = strings.TrimSpace(string(runes[:models.PollOptionMaxLength]))
		}
		texts = append(texts, text)
	}
	if len(texts) < models.PollMinOptions {
		return poll, invalidPoll(fmt.Sprintf("a poll needs at least %d non-empty options", models.PollMinOptions))
	}
	if len(lo.Uniq(texts)) != len(texts) {
		return poll, invalidPoll("options must be unique")
	}

	duration := lo.Ternary(len(data.Duration) > 0, data.Duration, models.DefaultPollDuration)
	if _, ok := models.PollDurations[duration]; !ok {
		return poll, invalidPoll(fmt.Sprintf("unsupported duration: %s", duration))
	}

	if data.AllowMultiple {
		if data.MinSelection != nil && *data.MinSelection < 1 {
			return poll, invalidPoll("min selection must be at least 1")
		}
		if data.MaxSelection != nil && *data.MaxSelection < 1 {
			return poll, invalidPoll("max selection must be at least 1")
		}
		if data.MinSelection != nil && data.MaxSelection != nil && *data.MaxSelection < *data.MinSelection {
			return poll, invalidPoll("max selection must not be less than min selection")
		}
		if data.MinSelection != nil && *data.MinSelection > len(texts) {
			return poll, invalidPoll("min selection exceeds the number of options")
		}
		poll.MinSelection = data.MinSelection
		poll.MaxSelection = data.MaxSelection
	}

	poll.Title = title
	poll.Duration = duration
	poll.AllowMultiple = data.AllowMultiple
	poll.Options = lo.Map(texts, func(text string, idx int) models.PollOption {
		return models.PollOption{ID: uint(idx + 1), Text: text}
	})

	return poll, nil
}

// NewPoll validates the creation input and writes the poll, its options and
// its zeroed stats in a single transaction.
func NewPoll(data models.PollCreation) (models.Poll, error) {
	poll, err := normalizePollCreation(data)
	if err != nil {
		return poll, err
	}

	poll.Language = DetectLanguage(poll.Title)
	poll.CreatedAt = Now()
	poll.ExpiresAt = poll.CreatedAt.Add(models.PollDurations[poll.Duration])

	// Ids are short, a primary key conflict draws a new one
	for attempt := 0; attempt < maxPollIDAttempts; attempt++ {
		poll.ID = NewPollID()
		for idx := range poll.Options {
			poll.Options[idx].PollID = poll.ID
		}

		err = database.C.Transaction(func(tx *gorm.DB) error {
			if err := tx.Omit(clause.Associations).Create(&poll).Error; err != nil {
				return err
			}
			return tx.Create(&poll.Options).Error
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		log.Warn().Str("poll", poll.ID).Int("attempt", attempt+1).Msg("Poll id collided, drawing a new one...")
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return poll, &VoteError{Code: CodeCreateFailed, Message: "unable to allocate a poll id", Err: err}
	} else if err != nil {
		log.Error().Err(err).Str("poll", poll.ID).Msg("An error occurred when creating poll...")
		return poll, &VoteError{Code: CodeCreateFailed, Err: err}
	}

	cachePollHead(pollHead{
		ID:            poll.ID,
		AllowMultiple: poll.AllowMultiple,
		MinSelection:  poll.MinSelection,
		MaxSelection:  poll.MaxSelection,
		OptionIDs:     lo.Map(poll.Options, func(item models.PollOption, _ int) uint { return item.ID }),
		ExpiresAt:     poll.ExpiresAt,
	})

	log.Debug().
		Str("poll", poll.ID).
		Int("options", len(poll.Options)).
		Time("expires_at", poll.ExpiresAt).
		Msg("Created a poll.")

	return poll, nil
}

// GetPoll returns nil when the poll does not exist or its lifetime is over.
// HasVoted and VotedFor come from the ballot of the given fingerprint.
func GetPoll(id string, fingerprint string) (*models.PollSnapshot, error) {
	var poll models.Poll
	if err := database.C.
		Where("id = ? AND expires_at > ?", id, Now()).
		Preload("Options", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("id ASC")
		}).
		First(&poll).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	snapshot := &models.PollSnapshot{
		ID:            poll.ID,
		Title:         poll.Title,
		Language:      poll.Language,
		Options:       poll.Options,
		TotalVotes:    poll.TotalVotes,
		UniqueVoters:  poll.UniqueVoters,
		CreatedAt:     poll.CreatedAt.Unix(),
		ExpiresAt:     poll.ExpiresAt.Unix(),
		AllowMultiple: poll.AllowMultiple,
		MinSelection:  poll.MinSelection,
		MaxSelection:  poll.MaxSelection,
	}

	if len(fingerprint) > 0 {
		var ballot models.PollBallot
		if err := database.C.
			Where("poll_id = ? AND voter_digest = ?", id, DigestFingerprint(fingerprint)).
			First(&ballot).Error; err == nil {
			snapshot.HasVoted = true
			snapshot.VotedFor = ballot.Options
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	return snapshot, nil
}

func PollExists(id string) bool {
	var count int64
	if err := database.C.Model(&models.Poll{}).
		Where("id = ? AND expires_at > ?", id, Now()).
		Count(&count).Error; err != nil {
		log.Warn().Err(err).Str("poll", id).Msg("An error occurred when checking poll existence...")
		return false
	}
	return count > 0
}
