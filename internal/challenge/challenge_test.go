package challenge

import (
	"testing"
	"time"

	"lightsout/internal/events"
	"lightsout/internal/game"
)

func newTestService() *Service {
	return NewService(nil, events.NewBus())
}

func TestService_CreateAssignsSeedAndCode(t *testing.T) {
	s := newTestService()
	c, err := s.Create("alice", game.DifficultyStandard)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if c.Code == "" || len(c.Code) != codeLength {
		t.Errorf("code = %q, want %d characters", c.Code, codeLength)
	}
	if c.Seed == "" {
		t.Error("challenge should carry a seed")
	}
	if c.Status != StatusPending {
		t.Errorf("status = %q, want pending", c.Status)
	}
	if time.Until(c.ExpiresAt) <= 0 {
		t.Error("fresh challenge should not be expired")
	}
}

func TestService_AcceptBindsSecondPlayer(t *testing.T) {
	s := newTestService()
	c, _ := s.Create("alice", game.DifficultyStandard)

	got, err := s.Accept(c.Code, "bob")
	if err != nil {
		t.Fatalf("Accept() error: %v", err)
	}
	if got.AcceptorID != "bob" {
		t.Errorf("acceptor = %q, want bob", got.AcceptorID)
	}
	if got.Status != StatusAccepted {
		t.Errorf("status = %q, want accepted", got.Status)
	}
	if got.Seed != c.Seed {
		t.Error("acceptor must replay the creator's seed")
	}
}

func TestService_AcceptErrors(t *testing.T) {
	s := newTestService()
	c, _ := s.Create("alice", game.DifficultyStandard)

	if _, err := s.Accept("ZZZZZZ", "bob"); err != ErrNotFound {
		t.Errorf("unknown code: err = %v, want ErrNotFound", err)
	}
	if _, err := s.Accept(c.Code, "alice"); err != ErrSelfAccept {
		t.Errorf("self accept: err = %v, want ErrSelfAccept", err)
	}

	s.Accept(c.Code, "bob")
	if _, err := s.Accept(c.Code, "carol"); err != ErrAlreadyAccepted {
		t.Errorf("third player: err = %v, want ErrAlreadyAccepted", err)
	}
	// Re-accepting by the same player is idempotent
	if _, err := s.Accept(c.Code, "bob"); err != nil {
		t.Errorf("re-accept by acceptor: err = %v, want nil", err)
	}
}

func TestService_ResolvesLowerTimeWins(t *testing.T) {
	s := newTestService()
	c, _ := s.Create("alice", game.DifficultyStandard)
	s.Accept(c.Code, "bob")
	now := time.Now()

	got, err := s.SubmitAttempt(c.Code, "alice", 240, false, now)
	if err != nil {
		t.Fatalf("SubmitAttempt() error: %v", err)
	}
	if got.Resolved() {
		t.Fatal("challenge should not resolve after one attempt")
	}

	got, err = s.SubmitAttempt(c.Code, "bob", 210, false, now)
	if err != nil {
		t.Fatalf("SubmitAttempt() error: %v", err)
	}
	if !got.Resolved() {
		t.Fatal("challenge should resolve after both attempts")
	}
	if got.WinnerID != "bob" || got.Draw {
		t.Errorf("winner = %q draw = %v, want bob to win", got.WinnerID, got.Draw)
	}
}

func TestService_FalseStartLoses(t *testing.T) {
	s := newTestService()
	c, _ := s.Create("alice", game.DifficultyStandard)
	s.Accept(c.Code, "bob")
	now := time.Now()

	s.SubmitAttempt(c.Code, "alice", 0, true, now)
	got, _ := s.SubmitAttempt(c.Code, "bob", 450, false, now)
	if got.WinnerID != "bob" {
		t.Errorf("winner = %q, want bob (alice jumped the start)", got.WinnerID)
	}
}

func TestService_BothFalseStartsDraw(t *testing.T) {
	s := newTestService()
	c, _ := s.Create("alice", game.DifficultyStandard)
	s.Accept(c.Code, "bob")
	now := time.Now()

	s.SubmitAttempt(c.Code, "alice", 0, true, now)
	got, _ := s.SubmitAttempt(c.Code, "bob", 0, true, now)
	if !got.Draw || got.WinnerID != "" {
		t.Errorf("winner = %q draw = %v, want draw", got.WinnerID, got.Draw)
	}
}

func TestService_EqualTimesDraw(t *testing.T) {
	s := newTestService()
	c, _ := s.Create("alice", game.DifficultyStandard)
	s.Accept(c.Code, "bob")
	now := time.Now()

	s.SubmitAttempt(c.Code, "alice", 225, false, now)
	got, _ := s.SubmitAttempt(c.Code, "bob", 225, false, now)
	if !got.Draw {
		t.Error("equal times should draw")
	}
}

func TestService_SubmitAttemptErrors(t *testing.T) {
	s := newTestService()
	c, _ := s.Create("alice", game.DifficultyStandard)
	s.Accept(c.Code, "bob")
	now := time.Now()

	if _, err := s.SubmitAttempt(c.Code, "carol", 200, false, now); err != ErrNotParticipant {
		t.Errorf("outsider: err = %v, want ErrNotParticipant", err)
	}

	s.SubmitAttempt(c.Code, "alice", 240, false, now)
	if _, err := s.SubmitAttempt(c.Code, "alice", 200, false, now); err != ErrAlreadyPlayed {
		t.Errorf("second attempt: err = %v, want ErrAlreadyPlayed", err)
	}
}

func TestService_ExpiredChallengeRejectsPlay(t *testing.T) {
	s := newTestService()
	c, _ := s.Create("alice", game.DifficultyStandard)
	s.Accept(c.Code, "bob")
	late := time.Now().Add(Expiry + time.Minute)

	if _, err := s.SubmitAttempt(c.Code, "alice", 240, false, late); err != ErrExpired {
		t.Errorf("late attempt: err = %v, want ErrExpired", err)
	}
	if _, err := s.Accept(c.Code, "carol"); err == nil {
		t.Error("expired challenge should not be acceptable")
	}
}

func TestService_ResolutionEmitsEvent(t *testing.T) {
	bus := events.NewBus()
	s := NewService(nil, bus)
	c, _ := s.Create("alice", game.DifficultyStandard)
	s.Accept(c.Code, "bob")
	now := time.Now()

	s.SubmitAttempt(c.Code, "alice", 240, false, now)
	s.SubmitAttempt(c.Code, "bob", 210, false, now)

	select {
	case ev := <-bus.ChallengeResolved:
		if ev.Code != c.Code || ev.WinnerID != "bob" {
			t.Errorf("event = %+v, want bob winning %s", ev, c.Code)
		}
	default:
		t.Fatal("no resolution event on the bus")
	}
}

func TestService_HubIsPerChallenge(t *testing.T) {
	s := newTestService()
	a, _ := s.Create("alice", game.DifficultyStandard)
	b, _ := s.Create("bob", game.DifficultyStandard)

	if s.Hub(a.Code) == s.Hub(b.Code) {
		t.Error("each challenge should get its own hub")
	}
	if s.Hub(a.Code) != s.Hub(a.Code) {
		t.Error("hub should be stable per code")
	}
}
