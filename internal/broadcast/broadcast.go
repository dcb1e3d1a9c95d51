package broadcast

import (
	"encoding/json"
	"sync"

	"lightsout/internal/events"

	"github.com/sirupsen/logrus"
)

// EventMessage is one SSE frame: an event name plus a JSON payload.
type EventMessage struct {
	Event string
	Data  string
}

// Broadcaster fans bus events out to SSE subscribers as JSON frames.
type Broadcaster struct {
	Mu      sync.Mutex
	Clients map[chan EventMessage]bool
}

func NewBroadcaster(bus *events.Bus) *Broadcaster {
	b := &Broadcaster{
		Clients: make(map[chan EventMessage]bool),
	}
	go func() {
		for ev := range bus.LeaderboardUpdates {
			b.Broadcast("leaderboardUpdate", ev)
		}
	}()
	go func() {
		for ev := range bus.ChallengeResolved {
			b.Broadcast("challengeResolved", ev)
		}
	}()
	return b
}

func (b *Broadcaster) Subscribe() chan EventMessage {
	ch := make(chan EventMessage, 10)
	b.Mu.Lock()
	b.Clients[ch] = true
	b.Mu.Unlock()
	return ch
}

func (b *Broadcaster) Unsubscribe(ch chan EventMessage) {
	b.Mu.Lock()
	delete(b.Clients, ch)
	b.Mu.Unlock()
	close(ch)
}

// Broadcast marshals the payload and sends it to every subscriber.
// Non-blocking: subscribers with full channels miss the frame.
func (b *Broadcaster) Broadcast(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logrus.Errorf("broadcast marshal error: %v", err)
		return
	}

	b.Mu.Lock()
	defer b.Mu.Unlock()
	for ch := range b.Clients {
		select {
		case ch <- EventMessage{Event: event, Data: string(data)}:
		default:
			// skip clients with full data channels
		}
	}
}
