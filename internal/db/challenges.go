package db

import (
	"fmt"
	"time"
)

type ChallengeRecord struct {
	ID         string
	Code       string
	Seed       string
	Difficulty string
	CreatorID  string
	AcceptorID string
	Status     string
	WinnerID   string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

func (d *DB) InsertChallenge(c ChallengeRecord) error {
	_, err := d.conn.Exec(`
		INSERT INTO challenges (id, code, seed, difficulty, creator_id, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.Code, c.Seed, c.Difficulty, c.CreatorID, c.Status, c.ExpiresAt)
	if err != nil {
		return fmt.Errorf("inserting challenge: %w", err)
	}
	return nil
}

func (d *DB) SetChallengeAccepted(id, acceptorID string) error {
	_, err := d.conn.Exec(`
		UPDATE challenges SET acceptor_id = $2, status = 'accepted' WHERE id = $1
	`, id, acceptorID)
	if err != nil {
		return fmt.Errorf("accepting challenge: %w", err)
	}
	return nil
}

func (d *DB) RecordChallengeAttempt(challengeID, playerID string, reactionMs int, falseStart bool) error {
	_, err := d.conn.Exec(`
		INSERT INTO challenge_attempts (challenge_id, player_id, reaction_ms, false_start)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (challenge_id, player_id) DO NOTHING
	`, challengeID, playerID, reactionMs, falseStart)
	if err != nil {
		return fmt.Errorf("recording challenge attempt: %w", err)
	}
	return nil
}

func (d *DB) SetChallengeResolved(id, winnerID, status string) error {
	_, err := d.conn.Exec(`
		UPDATE challenges SET winner_id = NULLIF($2, ''), status = $3 WHERE id = $1
	`, id, winnerID, status)
	if err != nil {
		return fmt.Errorf("resolving challenge: %w", err)
	}
	return nil
}

// ExpireChallenges voids overdue pending and accepted challenges.
func (d *DB) ExpireChallenges(now time.Time) (int64, error) {
	res, err := d.conn.Exec(`
		UPDATE challenges SET status = 'expired'
		WHERE status IN ('pending', 'accepted') AND expires_at < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("expiring challenges: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
