package sessions

import (
	"fmt"
	"sync"
	"time"

	"lightsout/internal/game"
	"lightsout/internal/sequence"

	"github.com/google/uuid"
)

const staleTTL = 1 * time.Hour

// Store holds live play sessions in memory. Finished results are
// persisted elsewhere; abandoned sessions are swept after staleTTL.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*game.Session
}

func NewStore() *Store {
	s := &Store{
		sessions: make(map[string]*game.Session),
	}
	go s.sweepStale()
	return s
}

// Create builds a fresh session with its own seed.
func (s *Store) Create(playerID string, cfg game.Config) (*game.Session, error) {
	seed, err := sequence.NewSeed()
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	sess := game.NewSession(uuid.New().String(), playerID, cfg, seed, 0)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return sess, nil
}

// CreateWithSeed builds a session replaying a known seed, used for
// challenge attempts where both sides must face identical timing.
func (s *Store) CreateWithSeed(playerID string, cfg game.Config, seed string, nonce uint64, challengeCode string) *game.Session {
	sess := game.NewSession(uuid.New().String(), playerID, cfg, seed, nonce)
	sess.ChallengeCode = challengeCode

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return sess
}

func (s *Store) Get(id string) *game.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) sweepStale() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		s.mu.Lock()
		now := time.Now()
		for id, sess := range s.sessions {
			if now.Sub(sess.CreatedAt) > staleTTL {
				delete(s.sessions, id)
			}
		}
		s.mu.Unlock()
	}
}
