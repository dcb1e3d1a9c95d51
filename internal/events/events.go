package events

// LeaderboardUpdateEvent fires when a validated score improves a board.
type LeaderboardUpdateEvent struct {
	Scope      string `json:"scope"`
	Period     string `json:"period"`
	PlayerID   string `json:"playerId"`
	ReactionMs int    `json:"reactionMs"`
}

// ChallengeResolvedEvent fires when both sides of a challenge have played.
type ChallengeResolvedEvent struct {
	Code     string `json:"code"`
	WinnerID string `json:"winnerId,omitempty"`
	Draw     bool   `json:"draw"`
}

type Bus struct {
	LeaderboardUpdates chan LeaderboardUpdateEvent
	ChallengeResolved  chan ChallengeResolvedEvent
}

func NewBus() *Bus {
	return &Bus{
		LeaderboardUpdates: make(chan LeaderboardUpdateEvent, 32),
		ChallengeResolved:  make(chan ChallengeResolvedEvent, 32),
	}
}
