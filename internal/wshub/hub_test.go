package wshub

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewHub(t *testing.T) {
	h := NewHub()
	if h == nil {
		t.Fatal("NewHub() returned nil")
	}
	if h.Count() != 0 {
		t.Errorf("new hub count = %d, want 0", h.Count())
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	h := NewHub()
	c := &Client{PlayerID: "p1", Name: "Alice", Send: make(chan []byte, 4)}

	h.Register(c)
	if h.Count() != 1 {
		t.Errorf("count after register = %d, want 1", h.Count())
	}

	h.Unregister("p1")
	if h.Count() != 0 {
		t.Errorf("count after unregister = %d, want 0", h.Count())
	}

	// Channel should be closed
	select {
	case _, ok := <-c.Send:
		if ok {
			t.Error("expected closed Send channel")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestHub_RegisterDisplacesOldConnection(t *testing.T) {
	h := NewHub()
	old := &Client{PlayerID: "p1", Send: make(chan []byte, 4)}
	h.Register(old)

	reconnected := &Client{PlayerID: "p1", Send: make(chan []byte, 4)}
	h.Register(reconnected)

	if h.Count() != 1 {
		t.Errorf("count after reconnect = %d, want 1", h.Count())
	}

	// The displaced connection's channel closes so its write pump exits
	select {
	case _, ok := <-old.Send:
		if ok {
			t.Error("expected closed Send channel on displaced client")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for displaced channel close")
	}

	// The new connection still receives broadcasts
	h.Broadcast(ServerMessage{Type: "ping"})
	select {
	case <-reconnected.Send:
	case <-time.After(time.Second):
		t.Fatal("reconnected client never received broadcast")
	}
}

func TestHub_Broadcast(t *testing.T) {
	h := NewHub()
	c1 := &Client{PlayerID: "p1", Send: make(chan []byte, 4)}
	c2 := &Client{PlayerID: "p2", Send: make(chan []byte, 4)}
	h.Register(c1)
	h.Register(c2)

	h.Broadcast(ServerMessage{Type: "attempt", PlayerID: "p1", ReactionMs: 230})

	for _, c := range []*Client{c1, c2} {
		select {
		case data := <-c.Send:
			var msg ServerMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if msg.Type != "attempt" || msg.ReactionMs != 230 {
				t.Errorf("got %+v, want attempt/230", msg)
			}
		case <-time.After(time.Second):
			t.Fatalf("client %s never received broadcast", c.PlayerID)
		}
	}
}

func TestHub_BroadcastExcept(t *testing.T) {
	h := NewHub()
	c1 := &Client{PlayerID: "p1", Send: make(chan []byte, 4)}
	c2 := &Client{PlayerID: "p2", Send: make(chan []byte, 4)}
	h.Register(c1)
	h.Register(c2)

	h.BroadcastExcept("p1", ServerMessage{Type: "accepted", PlayerID: "p1"})

	select {
	case <-c2.Send:
	case <-time.After(time.Second):
		t.Fatal("p2 never received message")
	}

	select {
	case <-c1.Send:
		t.Error("sender should not receive its own message")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_UnregisterNotifiesOthers(t *testing.T) {
	h := NewHub()
	c1 := &Client{PlayerID: "p1", Send: make(chan []byte, 4)}
	c2 := &Client{PlayerID: "p2", Send: make(chan []byte, 4)}
	h.Register(c1)
	h.Register(c2)

	h.Unregister("p1")

	select {
	case data := <-c2.Send:
		var msg ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.Type != "leave" || msg.PlayerID != "p1" {
			t.Errorf("got %+v, want leave/p1", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("p2 never received leave message")
	}
}

func TestHub_DropsOnFullChannel(t *testing.T) {
	h := NewHub()
	c := &Client{PlayerID: "p1", Send: make(chan []byte, 1)}
	h.Register(c)

	h.Broadcast(ServerMessage{Type: "one"})

	done := make(chan bool)
	go func() {
		h.Broadcast(ServerMessage{Type: "two"})
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on full channel")
	}
}
