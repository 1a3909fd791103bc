package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fortuna/icetime/internal/hockey"
	"github.com/fortuna/icetime/internal/store"
)

// Player is the latest roster information stored for a player
type Player struct {
	PlayerID      int64  `json:"player_id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	FullName      string `json:"full_name"`
	PositionCode  string `json:"position_code"`
	LastTeamID    int    `json:"last_team_id,omitempty"`
	SweaterNumber int    `json:"sweater_number,omitempty"`
}

// PlayerRepository handles player data access
type PlayerRepository struct {
	db *store.Database
}

// NewPlayerRepository creates a new player repository
func NewPlayerRepository(db *store.Database) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// GetByID finds a player by ID
func (r *PlayerRepository) GetByID(ctx context.Context, playerID int64) (*Player, error) {
	var p Player
	var team, sweater sql.NullInt64
	err := r.db.DB().QueryRowContext(ctx, `
		SELECT player_id, first_name, last_name, full_name, position_code, last_team_id, sweater_number
		FROM players
		WHERE player_id = $1
	`, playerID).Scan(&p.PlayerID, &p.FirstName, &p.LastName, &p.FullName, &p.PositionCode, &team, &sweater)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("player %d: %w", playerID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying player: %w", err)
	}
	p.LastTeamID = int(team.Int64)
	p.SweaterNumber = int(sweater.Int64)
	return &p, nil
}

// UpsertRoster stores every entry of a game roster
func (r *PlayerRepository) UpsertRoster(ctx context.Context, roster *hockey.Roster) error {
	return upsertRoster(ctx, r.db.DB(), roster)
}

func upsertRoster(ctx context.Context, q querier, roster *hockey.Roster) error {
	stmt, err := q.PrepareContext(ctx, `
		INSERT INTO players (player_id, first_name, last_name, full_name, position_code, last_team_id, sweater_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (player_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			full_name = EXCLUDED.full_name,
			position_code = EXCLUDED.position_code,
			last_team_id = EXCLUDED.last_team_id,
			sweater_number = EXCLUDED.sweater_number,
			updated_at = NOW()
	`)
	if err != nil {
		return fmt.Errorf("prepare player upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range roster.Entries() {
		_, err := stmt.ExecContext(ctx, e.PlayerID, e.FirstName, e.LastName, e.FullName,
			e.PositionCode, e.TeamID, e.SweaterNumber)
		if err != nil {
			return fmt.Errorf("upserting player %d: %w", e.PlayerID, err)
		}
	}
	return nil
}
