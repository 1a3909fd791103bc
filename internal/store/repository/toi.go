package repository

import (
	"context"
	"fmt"

	"github.com/fortuna/icetime/internal/hockey"
	"github.com/fortuna/icetime/internal/store"
)

// TOIRepository handles time-on-ice aggregates
type TOIRepository struct {
	db *store.Database
}

// NewTOIRepository creates a new time-on-ice repository
func NewTOIRepository(db *store.Database) *TOIRepository {
	return &TOIRepository{db: db}
}

// GetPlayerTOI returns per-player seconds by strength. A nil side returns
// both teams.
func (r *TOIRepository) GetPlayerTOI(ctx context.Context, gameID int64, side *hockey.Side) ([]hockey.PlayerTOI, error) {
	query := `
		SELECT game_id, player_id, full_name, team_abbrev, position_code, is_home, strength, seconds
		FROM player_toi
		WHERE game_id = $1 AND ($2::boolean IS NULL OR is_home = $2)
		ORDER BY is_home DESC, player_id, strength
	`
	var isHome interface{}
	if side != nil {
		isHome = *side == hockey.Home
	}

	rows, err := r.db.DB().QueryContext(ctx, query, gameID, isHome)
	if err != nil {
		return nil, fmt.Errorf("querying player toi: %w", err)
	}
	defer rows.Close()

	var out []hockey.PlayerTOI
	for rows.Next() {
		var t hockey.PlayerTOI
		if err := rows.Scan(&t.GameID, &t.PlayerID, &t.FullName, &t.TeamAbbrev, &t.PositionCode,
			&t.IsHome, &t.Strength, &t.Seconds); err != nil {
			return nil, fmt.Errorf("scanning player toi: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTeamTOI returns per-team seconds by strength
func (r *TOIRepository) GetTeamTOI(ctx context.Context, gameID int64) ([]hockey.TeamTOI, error) {
	rows, err := r.db.DB().QueryContext(ctx, `
		SELECT game_id, abbrev, name, is_home, strength, seconds
		FROM team_toi
		WHERE game_id = $1
		ORDER BY is_home DESC, seconds DESC, strength
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("querying team toi: %w", err)
	}
	defer rows.Close()

	var out []hockey.TeamTOI
	for rows.Next() {
		var t hockey.TeamTOI
		if err := rows.Scan(&t.GameID, &t.Abbrev, &t.Name, &t.IsHome, &t.Strength, &t.Seconds); err != nil {
			return nil, fmt.Errorf("scanning team toi: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func replaceTOI(ctx context.Context, q querier, gameID int64, players []hockey.PlayerTOI, teams []hockey.TeamTOI) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM player_toi WHERE game_id = $1`, gameID); err != nil {
		return fmt.Errorf("clearing player toi: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM team_toi WHERE game_id = $1`, gameID); err != nil {
		return fmt.Errorf("clearing team toi: %w", err)
	}

	playerStmt, err := q.PrepareContext(ctx, `
		INSERT INTO player_toi (game_id, player_id, full_name, team_abbrev, position_code, is_home, strength, seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return fmt.Errorf("prepare player toi insert: %w", err)
	}
	defer playerStmt.Close()
	for _, t := range players {
		if _, err := playerStmt.ExecContext(ctx, gameID, t.PlayerID, t.FullName, t.TeamAbbrev,
			t.PositionCode, t.IsHome, t.Strength, t.Seconds); err != nil {
			return fmt.Errorf("inserting player toi %d: %w", t.PlayerID, err)
		}
	}

	teamStmt, err := q.PrepareContext(ctx, `
		INSERT INTO team_toi (game_id, abbrev, name, is_home, strength, seconds)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return fmt.Errorf("prepare team toi insert: %w", err)
	}
	defer teamStmt.Close()
	for _, t := range teams {
		if _, err := teamStmt.ExecContext(ctx, gameID, t.Abbrev, t.Name, t.IsHome, t.Strength, t.Seconds); err != nil {
			return fmt.Errorf("inserting team toi %s: %w", t.Abbrev, err)
		}
	}
	return nil
}
