package services

import (
	"sync"

	"git.solsynth.dev/hypernet/nanovote/pkg/internal/models"
)

// Notifier receives the events produced by the vote engine and the expiry
// sweeper. Implementations must not block the caller.
type Notifier interface {
	NotifyVote(event models.VoteEvent)
	NotifyPollClosed(event models.PollClosedEvent)
}

type noopNotifier struct{}

func (noopNotifier) NotifyVote(models.VoteEvent)             {}
func (noopNotifier) NotifyPollClosed(models.PollClosedEvent) {}

var (
	notifierLock sync.RWMutex
	notifier     Notifier = noopNotifier{}
)

func SetNotifier(n Notifier) {
	notifierLock.Lock()
	defer notifierLock.Unlock()
	if n == nil {
		notifier = noopNotifier{}
	} else {
		notifier = n
	}
}

func getNotifier() Notifier {
	notifierLock.RLock()
	defer notifierLock.RUnlock()
	return notifier
}
