package game

import (
	"errors"
	"sync"
	"time"

	"lightsout/internal/drivers"
	"lightsout/internal/sequence"
)

var (
	ErrNotArmed     = errors.New("session not armed")
	ErrAlreadyArmed = errors.New("session already armed")
	ErrFinished     = errors.New("session already finished")
	ErrTimedOut     = errors.New("reaction window elapsed")
)

// Schedule is the absolute-offset timing of one lights sequence.
type Schedule struct {
	LightsOn  [LightCount]time.Duration // offsets from arm at which each light illuminates
	LightsOut time.Duration             // offset at which all lights go dark
}

// BuildSchedule derives the deterministic timing for a seed and nonce.
// The hold after the final light comes from the seeded stream, so a
// challenge pair replaying the same seed faces identical timing.
func BuildSchedule(cfg Config, seed string, nonce uint64) Schedule {
	var sch Schedule
	for i := 0; i < LightCount; i++ {
		sch.LightsOn[i] = time.Duration(i+1) * cfg.LightInterval
	}
	f := sequence.Floats(seed, nonce, 1)[0]
	hold := cfg.MinRandomDelay + time.Duration(f*float64(cfg.MaxRandomDelay-cfg.MinRandomDelay))
	sch.LightsOut = sch.LightsOn[LightCount-1] + hold
	return sch
}

// Result is the outcome of one attempt.
type Result struct {
	ReactionMs          int
	FalseStart          bool
	Rating              Rating
	DriverComparison    *drivers.Comparison
	CommunityPercentile float64
	IsPersonalBest      bool
}

// Session is one authoritative play attempt. Timing is pure clock math
// against the seeded schedule, so no server-side timers are needed.
type Session struct {
	ID       string
	PlayerID string
	Config   Config
	Seed     string
	Nonce    uint64

	// ChallengeCode links the session to a challenge when the attempt
	// replays a shared seed.
	ChallengeCode string

	mu          sync.Mutex
	phase       Phase
	schedule    Schedule
	armedAt     time.Time
	lightsOutAt time.Time
	result      *Result
	CreatedAt   time.Time
}

func NewSession(id, playerID string, cfg Config, seed string, nonce uint64) *Session {
	return &Session{
		ID:        id,
		PlayerID:  playerID,
		Config:    cfg,
		Seed:      seed,
		Nonce:     nonce,
		phase:     PhaseReady,
		CreatedAt: time.Now(),
	}
}

// Phase reports the current phase, advancing LIGHTS_SEQUENCE to
// WAITING_FOR_INPUT once the scheduled lights-out instant has passed.
func (s *Session) Phase(now time.Time) Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseLightsSequence && !now.Before(s.lightsOutAt) {
		s.phase = PhaseWaitingForInput
	}
	return s.phase
}

// Arm starts the lights sequence and returns its schedule.
func (s *Session) Arm(now time.Time) (Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.phase {
	case PhaseReady:
	case PhaseShowingResults:
		return Schedule{}, ErrFinished
	default:
		return Schedule{}, ErrAlreadyArmed
	}

	s.schedule = BuildSchedule(s.Config, s.Seed, s.Nonce)
	s.armedAt = now
	s.lightsOutAt = now.Add(s.schedule.LightsOut)
	s.phase = PhaseLightsSequence
	return s.schedule, nil
}

// React records the player's input. Reacting before lights-out is a
// jump start; reacting after the timeout window invalidates the attempt.
// A session produces at most one result.
func (s *Session) React(now time.Time) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result != nil {
		return *s.result, ErrFinished
	}
	if s.phase != PhaseLightsSequence && s.phase != PhaseWaitingForInput {
		return Result{}, ErrNotArmed
	}

	if now.Before(s.lightsOutAt) {
		res := Result{FalseStart: true, Rating: RatingJumpStart}
		s.result = &res
		s.phase = PhaseShowingResults
		return res, nil
	}

	ms := int(now.Sub(s.lightsOutAt).Milliseconds())
	if ms > ReactionTimeoutMs {
		s.phase = PhaseShowingResults
		return Result{}, ErrTimedOut
	}

	cmp := drivers.Compare(ms)
	res := Result{
		ReactionMs:       ms,
		Rating:           RateReaction(ms),
		DriverComparison: &cmp,
	}
	s.result = &res
	s.phase = PhaseShowingResults
	return res, nil
}

// Result returns the recorded outcome, if any.
func (s *Session) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}

// LightsOutAt reports when the lights went (or will go) dark.
func (s *Session) LightsOutAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lightsOutAt
}
