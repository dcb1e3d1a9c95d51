package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type ScoreEvent struct {
	PlayerID    string
	SessionID   string
	ReactionMs  int
	Rating      string
	Difficulty  string
	Community   string
	Flagged     bool
	FlagReasons []string
	RecordedAt  time.Time
}

func (d *DB) RecordScore(ev ScoreEvent) error {
	_, err := d.conn.Exec(`
		INSERT INTO scores (player_id, session_id, reaction_ms, rating, difficulty, community, flagged, flag_reasons, recorded_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)
	`, ev.PlayerID, ev.SessionID, ev.ReactionMs, ev.Rating, ev.Difficulty, ev.Community, ev.Flagged, pq.Array(ev.FlagReasons), ev.RecordedAt)
	if err != nil {
		return fmt.Errorf("recording score: %w", err)
	}
	return nil
}

func (d *DB) BatchRecordScores(events []ScoreEvent) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO scores (player_id, session_id, reaction_ms, rating, difficulty, community, flagged, flag_reasons, recorded_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.Exec(ev.PlayerID, ev.SessionID, ev.ReactionMs, ev.Rating, ev.Difficulty, ev.Community, ev.Flagged, pq.Array(ev.FlagReasons), ev.RecordedAt); err != nil {
			return fmt.Errorf("recording score in batch: %w", err)
		}
	}

	return tx.Commit()
}

// RecentReactionTimes returns the player's latest valid times, newest first.
// Flagged submissions and jump starts are excluded so neither cheated
// entries nor zero-ms rows can poison the baseline they are judged against.
func (d *DB) RecentReactionTimes(playerID string, limit int) ([]int, error) {
	rows, err := d.conn.Query(`
		SELECT reaction_ms FROM scores
		WHERE player_id = $1 AND NOT flagged AND rating <> 'JUMP_START'
		ORDER BY recorded_at DESC
		LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("getting recent times: %w", err)
	}
	defer rows.Close()

	var times []int
	for rows.Next() {
		var ms int
		if err := rows.Scan(&ms); err != nil {
			return nil, err
		}
		times = append(times, ms)
	}
	return times, rows.Err()
}

// PersonalBest returns the player's fastest valid time, or ok=false if
// they have no valid scores yet.
func (d *DB) PersonalBest(playerID string) (int, bool, error) {
	var best sql.NullInt64
	err := d.conn.QueryRow(`
		SELECT MIN(reaction_ms) FROM scores
		WHERE player_id = $1 AND NOT flagged AND rating <> 'JUMP_START'
	`, playerID).Scan(&best)
	if err != nil {
		return 0, false, fmt.Errorf("getting personal best: %w", err)
	}
	if !best.Valid {
		return 0, false, nil
	}
	return int(best.Int64), true, nil
}

type PlayerStats struct {
	PlayerID    string
	Attempts    int
	BestMs      int
	AvgMs       float64
	FalseStarts int
	Flagged     int
}

func (d *DB) GetPlayerStats(playerID string) (*PlayerStats, error) {
	stats := &PlayerStats{PlayerID: playerID}
	err := d.conn.QueryRow(`
		SELECT
			COUNT(*) FILTER (WHERE NOT flagged) AS attempts,
			COALESCE(MIN(reaction_ms) FILTER (WHERE NOT flagged), 0) AS best,
			COALESCE(AVG(reaction_ms) FILTER (WHERE NOT flagged), 0) AS avg,
			COUNT(*) FILTER (WHERE rating = 'JUMP_START') AS false_starts,
			COUNT(*) FILTER (WHERE flagged) AS flagged
		FROM scores
		WHERE player_id = $1
	`, playerID).Scan(&stats.Attempts, &stats.BestMs, &stats.AvgMs, &stats.FalseStarts, &stats.Flagged)
	if err != nil {
		return nil, fmt.Errorf("getting player stats: %w", err)
	}
	return stats, nil
}

// ValidReactionTimes streams every unflagged time, used to rebuild the
// Redis leaderboard index after a cold start.
func (d *DB) ValidReactionTimes() ([]ScoreEvent, error) {
	rows, err := d.conn.Query(`
		SELECT player_id, reaction_ms, COALESCE(community, ''), recorded_at
		FROM scores WHERE NOT flagged AND rating <> 'JUMP_START'
	`)
	if err != nil {
		return nil, fmt.Errorf("loading valid times: %w", err)
	}
	defer rows.Close()

	var events []ScoreEvent
	for rows.Next() {
		var ev ScoreEvent
		if err := rows.Scan(&ev.PlayerID, &ev.ReactionMs, &ev.Community, &ev.RecordedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
