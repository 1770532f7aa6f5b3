package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	PollTitleMaxLength  = 100
	PollOptionMaxLength = 50
	PollMinOptions      = 2
	PollMaxOptions      = 20
)

// PollDurations maps the accepted lifetime labels to the poll TTL.
var PollDurations = map[string]time.Duration{
	"3m":  3 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"6h":  6 * time.Hour,
	"1d":  24 * time.Hour,
	"3d":  3 * 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"10d": 10 * 24 * time.Hour,
}

const DefaultPollDuration = "1d"

// Poll carries the poll metadata together with its aggregate stats,
// so the two can never be observed apart.
type Poll struct {
	ID            string       `json:"id" gorm:"primaryKey;size:8"`
	Title         string       `json:"title" gorm:"size:100"`
	Language      string       `json:"language" gorm:"size:8"`
	Duration      string       `json:"duration" gorm:"size:4"`
	AllowMultiple bool         `json:"allow_multiple"`
	MinSelection  *int         `json:"min_selection"`
	MaxSelection  *int         `json:"max_selection"`
	TotalVotes    int64        `json:"total_votes"`
	UniqueVoters  int64        `json:"unique_voters"`
	Options       []PollOption `json:"options" gorm:"foreignKey:PollID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	ExpiresAt     time.Time    `json:"expires_at" gorm:"index"`
}

type PollOption struct {
	PollID string `json:"-" gorm:"primaryKey;size:8"`
	ID     uint   `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Text   string `json:"text" gorm:"size:50"`
	Votes  int64  `json:"votes"`
}

// PollBallot is the proof that a voter digest has voted on a poll.
// The raw fingerprint is never stored.
type PollBallot struct {
	PollID      string                    `json:"poll_id" gorm:"primaryKey;size:8"`
	VoterDigest string                    `json:"-" gorm:"primaryKey;size:64"`
	Options     datatypes.JSONSlice[uint] `json:"options"`
	CreatedAt   time.Time                 `json:"created_at"`
	ExpiresAt   time.Time                 `json:"expires_at" gorm:"index"`
}

type PollCreation struct {
	Title         string
	Options       []string
	Duration      string
	AllowMultiple bool
	MinSelection  *int
	MaxSelection  *int
}

type PollSnapshot struct {
	ID            string       `json:"poll_id"`
	Title         string       `json:"title"`
	Language      string       `json:"language"`
	Options       []PollOption `json:"options"`
	TotalVotes    int64        `json:"total_votes"`
	UniqueVoters  int64        `json:"unique_voters"`
	CreatedAt     int64        `json:"created_at"`
	ExpiresAt     int64        `json:"expires_at"`
	AllowMultiple bool         `json:"allow_multiple"`
	MinSelection  *int         `json:"min_selection"`
	MaxSelection  *int         `json:"max_selection"`
	HasVoted      bool         `json:"has_voted"`
	VotedFor      []uint       `json:"voted_for"`
}

type VoteResult struct {
	Options    []PollOption `json:"options"`
	TotalVotes int64        `json:"total_votes"`
}
