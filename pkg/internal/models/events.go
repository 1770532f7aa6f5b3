package models

const (
	EventVoteUpdate  = "vote_update"
	EventPollExpired = "poll_expired"
)

type VoteEvent struct {
	PollID     string `json:"poll_id"`
	OptionID   uint   `json:"option_id"`
	Votes      int64  `json:"votes"`
	TotalVotes int64  `json:"total_votes"`
}

type PollClosedEvent struct {
	PollID string `json:"poll_id"`
}
