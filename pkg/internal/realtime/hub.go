package realtime

import (
	"sync"

	"git.solsynth.dev/hypernet/nanovote/pkg/internal/models"
	"github.com/rs/zerolog/log"
)

type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type Subscriber struct {
	PollID string
	C      <-chan Event

	ch chan Event
}

// Hub fans poll events out to the subscribers of each poll.
// Publishing never blocks, a subscriber whose buffer is full misses the event.
type Hub struct {
	lock   sync.Mutex
	rooms  map[string]map[*Subscriber]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		rooms:  make(map[string]map[*Subscriber]struct{}),
		buffer: buffer,
	}
}

func (v *Hub) Subscribe(pollID string) *Subscriber {
	ch := make(chan Event, v.buffer)
	sub := &Subscriber{PollID: pollID, C: ch, ch: ch}

	v.lock.Lock()
	defer v.lock.Unlock()
	if _, ok := v.rooms[pollID]; !ok {
		v.rooms[pollID] = make(map[*Subscriber]struct{})
	}
	v.rooms[pollID][sub] = struct{}{}

	log.Debug().Str("poll", pollID).Int("members", len(v.rooms[pollID])).Msg("Subscriber joined poll room.")
	return sub
}

// Unsubscribe closes the subscriber channel unless the room was closed already.
func (v *Hub) Unsubscribe(sub *Subscriber) {
	v.lock.Lock()
	defer v.lock.Unlock()

	room, ok := v.rooms[sub.PollID]
	if !ok {
		return
	}
	if _, ok := room[sub]; !ok {
		return
	}
	delete(room, sub)
	close(sub.ch)
	if len(room) == 0 {
		delete(v.rooms, sub.PollID)
	}
}

func (v *Hub) Count(pollID string) int {
	v.lock.Lock()
	defer v.lock.Unlock()
	return len(v.rooms[pollID])
}

func (v *Hub) broadcast(pollID string, event Event) {
	for sub := range v.rooms[pollID] {
		select {
		case sub.ch <- event:
		default:
			log.Warn().Str("poll", pollID).Str("event", event.Type).Msg("Subscriber buffer is full, dropped an event...")
		}
	}
}

func (v *Hub) NotifyVote(event models.VoteEvent) {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.broadcast(event.PollID, Event{Type: models.EventVoteUpdate, Data: event})
}

// NotifyPollClosed delivers the closing event and then closes the room.
func (v *Hub) NotifyPollClosed(event models.PollClosedEvent) {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.broadcast(event.PollID, Event{Type: models.EventPollExpired, Data: event})
	for sub := range v.rooms[event.PollID] {
		close(sub.ch)
	}
	delete(v.rooms, event.PollID)
}
