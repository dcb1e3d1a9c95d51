package challenge

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"lightsout/internal/db"
	"lightsout/internal/events"
	"lightsout/internal/game"
	"lightsout/internal/sequence"
	"lightsout/internal/wshub"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusComplete Status = "complete"
	StatusExpired  Status = "expired"
)

// Expiry is how long a challenge stays playable after creation.
const Expiry = 48 * time.Hour

var (
	ErrNotFound        = errors.New("challenge not found")
	ErrExpired         = errors.New("challenge expired")
	ErrSelfAccept      = errors.New("cannot accept own challenge")
	ErrAlreadyAccepted = errors.New("challenge already accepted")
	ErrNotParticipant  = errors.New("player is not part of this challenge")
	ErrAlreadyPlayed   = errors.New("player already played this challenge")
)

// Attempt is one side's recorded run against the shared seed.
type Attempt struct {
	PlayerID   string
	ReactionMs int
	FalseStart bool
	At         time.Time
}

// Challenge is a head-to-head duel. Both players replay the same seed,
// so the lights timing is identical on both sides.
type Challenge struct {
	ID         string
	Code       string
	Seed       string
	Difficulty game.Difficulty
	CreatorID  string
	AcceptorID string
	Status     Status
	WinnerID   string
	Draw       bool

	CreatorAttempt  *Attempt
	AcceptorAttempt *Attempt

	ExpiresAt time.Time
	CreatedAt time.Time
}

// Resolved reports whether both sides have played.
func (c *Challenge) Resolved() bool {
	return c.Status == StatusComplete
}

// Service owns the live challenges. The in-memory map is authoritative
// for gameplay; Postgres keeps the durable record when available.
type Service struct {
	mu     sync.Mutex
	byCode map[string]*Challenge
	hubs   map[string]*wshub.Hub

	database *db.DB
	bus      *events.Bus
}

func NewService(database *db.DB, bus *events.Bus) *Service {
	s := &Service{
		byCode:   make(map[string]*Challenge),
		hubs:     make(map[string]*wshub.Hub),
		database: database,
		bus:      bus,
	}
	go s.sweepExpired()
	return s
}

// Create mints a new challenge with a fresh seed and share code.
func (s *Service) Create(creatorID string, difficulty game.Difficulty) (Challenge, error) {
	seed, err := sequence.NewSeed()
	if err != nil {
		return Challenge{}, fmt.Errorf("creating challenge: %w", err)
	}

	now := time.Now()
	c := &Challenge{
		ID:         uuid.New().String(),
		Seed:       seed,
		Difficulty: difficulty,
		CreatorID:  creatorID,
		Status:     StatusPending,
		ExpiresAt:  now.Add(Expiry),
		CreatedAt:  now,
	}

	s.mu.Lock()
	for {
		code, err := GenerateCode()
		if err != nil {
			s.mu.Unlock()
			return Challenge{}, fmt.Errorf("creating challenge: %w", err)
		}
		if _, taken := s.byCode[code]; !taken {
			c.Code = code
			break
		}
	}
	s.byCode[c.Code] = c
	snap := *c
	s.mu.Unlock()

	if s.database != nil {
		err := s.database.InsertChallenge(db.ChallengeRecord{
			ID:         c.ID,
			Code:       c.Code,
			Seed:       c.Seed,
			Difficulty: string(c.Difficulty),
			CreatorID:  c.CreatorID,
			Status:     string(StatusPending),
			ExpiresAt:  c.ExpiresAt,
		})
		if err != nil {
			logrus.Warnf("challenge %s not persisted: %v", c.Code, err)
		}
	}

	return snap, nil
}

// Accept locks the challenge to a second player.
func (s *Service) Accept(code, playerID string) (Challenge, error) {
	s.mu.Lock()
	c, ok := s.byCode[code]
	if !ok {
		s.mu.Unlock()
		return Challenge{}, ErrNotFound
	}
	if c.Status == StatusExpired || time.Now().After(c.ExpiresAt) {
		c.Status = StatusExpired
		s.mu.Unlock()
		return Challenge{}, ErrExpired
	}
	if c.CreatorID == playerID {
		s.mu.Unlock()
		return Challenge{}, ErrSelfAccept
	}
	if c.AcceptorID != "" && c.AcceptorID != playerID {
		s.mu.Unlock()
		return Challenge{}, ErrAlreadyAccepted
	}
	c.AcceptorID = playerID
	if c.Status == StatusPending {
		c.Status = StatusAccepted
	}
	snap := *c
	s.mu.Unlock()

	if s.database != nil {
		if err := s.database.SetChallengeAccepted(snap.ID, playerID); err != nil {
			logrus.Warnf("challenge %s accept not persisted: %v", code, err)
		}
	}

	return snap, nil
}

// Get returns a snapshot of the challenge.
func (s *Service) Get(code string) (Challenge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byCode[code]
	if !ok {
		return Challenge{}, false
	}
	return *c, true
}

// Hub returns the live room hub for a challenge, creating it on first use.
func (s *Service) Hub(code string) *wshub.Hub {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hubs[code]
	if !ok {
		h = wshub.NewHub()
		s.hubs[code] = h
	}
	return h
}

// SubmitAttempt records one side's run. Once both sides have played the
// challenge resolves: a false start loses, both false starts draw, and
// otherwise the lower time wins (equal times draw).
func (s *Service) SubmitAttempt(code, playerID string, reactionMs int, falseStart bool, now time.Time) (Challenge, error) {
	s.mu.Lock()
	c, ok := s.byCode[code]
	if !ok {
		s.mu.Unlock()
		return Challenge{}, ErrNotFound
	}
	if c.Status == StatusExpired || now.After(c.ExpiresAt) {
		c.Status = StatusExpired
		s.mu.Unlock()
		return Challenge{}, ErrExpired
	}

	att := &Attempt{PlayerID: playerID, ReactionMs: reactionMs, FalseStart: falseStart, At: now}
	switch playerID {
	case c.CreatorID:
		if c.CreatorAttempt != nil {
			s.mu.Unlock()
			return Challenge{}, ErrAlreadyPlayed
		}
		c.CreatorAttempt = att
	case c.AcceptorID:
		if c.AcceptorAttempt != nil {
			s.mu.Unlock()
			return Challenge{}, ErrAlreadyPlayed
		}
		c.AcceptorAttempt = att
	default:
		s.mu.Unlock()
		return Challenge{}, ErrNotParticipant
	}

	resolved := false
	if c.CreatorAttempt != nil && c.AcceptorAttempt != nil {
		c.WinnerID, c.Draw = decide(c.CreatorAttempt, c.AcceptorAttempt)
		c.Status = StatusComplete
		resolved = true
	}
	snap := *c
	hub := s.hubs[code]
	s.mu.Unlock()

	if s.database != nil {
		if err := s.database.RecordChallengeAttempt(snap.ID, playerID, reactionMs, falseStart); err != nil {
			logrus.Warnf("challenge %s attempt not persisted: %v", code, err)
		}
	}

	if hub != nil {
		hub.BroadcastExcept(playerID, wshub.ServerMessage{
			Type:       "attempt",
			PlayerID:   playerID,
			ReactionMs: reactionMs,
			FalseStart: falseStart,
		})
	}

	if resolved {
		s.finishResolved(snap, hub)
	}

	return snap, nil
}

func (s *Service) finishResolved(snap Challenge, hub *wshub.Hub) {
	if s.database != nil {
		if err := s.database.SetChallengeResolved(snap.ID, snap.WinnerID, string(StatusComplete)); err != nil {
			logrus.Warnf("challenge %s resolution not persisted: %v", snap.Code, err)
		}
	}

	if hub != nil {
		hub.Broadcast(wshub.ServerMessage{
			Type:     "resolved",
			WinnerID: snap.WinnerID,
			Draw:     snap.Draw,
		})
	}

	if s.bus != nil {
		select {
		case s.bus.ChallengeResolved <- events.ChallengeResolvedEvent{
			Code:     snap.Code,
			WinnerID: snap.WinnerID,
			Draw:     snap.Draw,
		}:
		default:
		}
	}
}

func decide(creator, acceptor *Attempt) (winnerID string, draw bool) {
	switch {
	case creator.FalseStart && acceptor.FalseStart:
		return "", true
	case creator.FalseStart:
		return acceptor.PlayerID, false
	case acceptor.FalseStart:
		return creator.PlayerID, false
	case creator.ReactionMs < acceptor.ReactionMs:
		return creator.PlayerID, false
	case acceptor.ReactionMs < creator.ReactionMs:
		return acceptor.PlayerID, false
	default:
		return "", true
	}
}

func (s *Service) sweepExpired() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()

		s.mu.Lock()
		for code, c := range s.byCode {
			if c.Status == StatusComplete || c.Status == StatusExpired {
				if now.Sub(c.CreatedAt) > Expiry+time.Hour {
					delete(s.byCode, code)
					delete(s.hubs, code)
				}
				continue
			}
			if now.After(c.ExpiresAt) {
				c.Status = StatusExpired
			}
		}
		s.mu.Unlock()

		if s.database != nil {
			if n, err := s.database.ExpireChallenges(now); err != nil {
				logrus.Warnf("expiring challenges: %v", err)
			} else if n > 0 {
				logrus.Infof("expired %d challenges", n)
			}
		}
	}
}
