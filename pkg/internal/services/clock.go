package services

import (
	"time"

	"github.com/google/uuid"
)

// Now is the clock used for poll lifetimes, swappable in tests.
var Now = func() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

const PollIDLength = 8

// NewPollID draws a poll id. Collisions are resolved by NewPoll retrying the insert.
var NewPollID = func() string {
	return uuid.NewString()[:PollIDLength]
}
