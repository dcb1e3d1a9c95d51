package db

import (
	"fmt"
	"time"
)

type PlayerRecord struct {
	ID        string
	Name      string
	Color     string
	Community string
	CreatedAt time.Time
}

func (d *DB) UpsertPlayer(id, name, color, community string) error {
	_, err := d.conn.Exec(`
		INSERT INTO players (id, name, color, community)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		ON CONFLICT (id) DO UPDATE SET name = $2, color = $3, community = NULLIF($4, '')
	`, id, name, color, community)
	if err != nil {
		return fmt.Errorf("upserting player: %w", err)
	}
	return nil
}

func (d *DB) GetPlayer(id string) (*PlayerRecord, error) {
	var p PlayerRecord
	var community *string
	err := d.conn.QueryRow(`
		SELECT id, name, color, community, created_at FROM players WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Color, &community, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting player: %w", err)
	}
	if community != nil {
		p.Community = *community
	}
	return &p, nil
}

// GetPlayerNames resolves display names for a set of player IDs.
func (d *DB) GetPlayerNames(ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	for _, id := range ids {
		var name string
		err := d.conn.QueryRow(`SELECT name FROM players WHERE id = $1`, id).Scan(&name)
		if err != nil {
			continue
		}
		names[id] = name
	}
	return names, nil
}
