package broadcast

import (
	"encoding/json"
	"testing"
	"time"

	"lightsout/internal/events"
)

func TestNewBroadcaster(t *testing.T) {
	bus := events.NewBus()
	b := NewBroadcaster(bus)
	if b == nil {
		t.Fatal("NewBroadcaster() returned nil")
	}
}

func TestBroadcaster_SubscribeUnsubscribe(t *testing.T) {
	bus := events.NewBus()
	b := NewBroadcaster(bus)

	ch := b.Subscribe()
	if ch == nil {
		t.Fatal("Subscribe() returned nil")
	}

	b.Mu.Lock()
	if len(b.Clients) != 1 {
		t.Errorf("clients count = %d, want 1", len(b.Clients))
	}
	b.Mu.Unlock()

	b.Unsubscribe(ch)

	b.Mu.Lock()
	if len(b.Clients) != 0 {
		t.Errorf("clients count after unsubscribe = %d, want 0", len(b.Clients))
	}
	b.Mu.Unlock()
}

func TestBroadcaster_Broadcast(t *testing.T) {
	bus := events.NewBus()
	b := NewBroadcaster(bus)

	ch1 := b.Subscribe()
	ch2 := b.Subscribe()

	b.Broadcast("test-event", map[string]string{"k": "v"})

	for _, ch := range []chan EventMessage{ch1, ch2} {
		select {
		case msg := <-ch:
			if msg.Event != "test-event" {
				t.Errorf("event = %q, want test-event", msg.Event)
			}
			var payload map[string]string
			if err := json.Unmarshal([]byte(msg.Data), &payload); err != nil {
				t.Errorf("data not valid JSON: %v", err)
			} else if payload["k"] != "v" {
				t.Errorf("payload = %v, want k=v", payload)
			}
		case <-time.After(1 * time.Second):
			t.Fatal("subscriber timed out")
		}
	}

	b.Unsubscribe(ch1)
	b.Unsubscribe(ch2)
}

func TestBroadcaster_SkipsFullChannels(t *testing.T) {
	bus := events.NewBus()
	b := NewBroadcaster(bus)

	ch := b.Subscribe()

	// Fill the channel buffer (capacity 10)
	for i := 0; i < 10; i++ {
		b.Broadcast("fill", "data")
	}

	done := make(chan bool)
	go func() {
		b.Broadcast("overflow", "data")
		done <- true
	}()

	select {
	case <-done:
		// Success - didn't block
	case <-time.After(1 * time.Second):
		t.Fatal("Broadcast blocked on full channel")
	}

	b.Unsubscribe(ch)
}

func TestBroadcaster_LeaderboardForwarding(t *testing.T) {
	bus := events.NewBus()
	b := NewBroadcaster(bus)

	ch := b.Subscribe()

	bus.LeaderboardUpdates <- events.LeaderboardUpdateEvent{
		Scope: "global", Period: "daily", PlayerID: "p1", ReactionMs: 198,
	}

	select {
	case msg := <-ch:
		if msg.Event != "leaderboardUpdate" {
			t.Errorf("event = %q, want leaderboardUpdate", msg.Event)
		}
		var ev events.LeaderboardUpdateEvent
		if err := json.Unmarshal([]byte(msg.Data), &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.PlayerID != "p1" || ev.ReactionMs != 198 {
			t.Errorf("got %+v, want p1/198", ev)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for leaderboard broadcast")
	}

	b.Unsubscribe(ch)
}
