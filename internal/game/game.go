package game

import "time"

// Phase is the enumerated stage of a play session. The webview client
// renders directly off these values, so they stay screaming-case.
type Phase string

const (
	PhaseSplash          = Phase("SPLASH")
	PhaseReady           = Phase("READY")
	PhaseLightsSequence  = Phase("LIGHTS_SEQUENCE")
	PhaseWaitingForInput = Phase("WAITING_FOR_INPUT")
	PhaseShowingResults  = Phase("SHOWING_RESULTS")
	PhaseLeaderboard     = Phase("LEADERBOARD")
	PhaseChallenge       = Phase("CHALLENGE")
)

// LightCount is the number of start lights on the gantry.
const LightCount = 5

// Gantry light colors sent to the client.
const (
	ColorLightOff = "#3a0d0d"
	ColorLightOn  = "#e10600"
	ColorGo       = "#1ec71e"
)

// Rating buckets a reaction time for display.
type Rating string

const (
	RatingPerfect   = Rating("PERFECT")
	RatingExcellent = Rating("EXCELLENT")
	RatingGood      = Rating("GOOD")
	RatingSlow      = Rating("SLOW")
	RatingJumpStart = Rating("JUMP_START")
)

// Rating thresholds in milliseconds, exclusive upper bounds.
const (
	PerfectMaxMs   = 200
	ExcellentMaxMs = 250
	GoodMaxMs      = 300
)

// ReactionTimeoutMs is how long after lights-out a reaction still counts.
const ReactionTimeoutMs = 5000

// RateReaction buckets a measured reaction time.
func RateReaction(ms int) Rating {
	switch {
	case ms < PerfectMaxMs:
		return RatingPerfect
	case ms < ExcellentMaxMs:
		return RatingExcellent
	case ms < GoodMaxMs:
		return RatingGood
	default:
		return RatingSlow
	}
}

// Difficulty selects the random-hold window after the last light.
type Difficulty string

const (
	DifficultyEasy     = Difficulty("easy")
	DifficultyStandard = Difficulty("standard")
	DifficultyHard     = Difficulty("hard")
)

// Config is the tunable timing for a round.
type Config struct {
	LightInterval  time.Duration
	MinRandomDelay time.Duration
	MaxRandomDelay time.Duration
	Difficulty     Difficulty
}

func DefaultConfig() Config {
	return Config{
		LightInterval:  time.Second,
		MinRandomDelay: 1 * time.Second,
		MaxRandomDelay: 3 * time.Second,
		Difficulty:     DifficultyStandard,
	}
}

// ConfigForDifficulty returns the timing window for a difficulty mode.
// Easy narrows the hold window so lights-out is more predictable; hard
// widens it and allows a much earlier minimum.
func ConfigForDifficulty(d Difficulty) Config {
	cfg := DefaultConfig()
	switch d {
	case DifficultyEasy:
		cfg.MinRandomDelay = 1500 * time.Millisecond
		cfg.MaxRandomDelay = 2500 * time.Millisecond
	case DifficultyHard:
		cfg.MinRandomDelay = 500 * time.Millisecond
		cfg.MaxRandomDelay = 4 * time.Second
	}
	cfg.Difficulty = d
	return cfg
}

// Valid reports whether the config respects the delay-window invariant.
func (c Config) Valid() bool {
	return c.LightInterval > 0 && c.MinRandomDelay > 0 && c.MinRandomDelay < c.MaxRandomDelay
}
