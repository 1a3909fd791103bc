package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fortuna/icetime/internal/store"
)

const gameColumns = `
	g.game_id, g.season, g.game_type, g.game_date, g.venue, g.start_time_utc,
	g.home_team_id, g.away_team_id, g.shift_source, g.event_count, g.shift_count,
	g.diagnostics, g.reconciled_at, g.created_at, g.updated_at,
	ht.abbrev, at.abbrev
`

const gameJoins = `
	FROM games g
	JOIN teams ht ON ht.team_id = g.home_team_id
	JOIN teams at ON at.team_id = g.away_team_id
`

// GameRepository handles game data access
type GameRepository struct {
	db *store.Database
}

// NewGameRepository creates a new game repository
func NewGameRepository(db *store.Database) *GameRepository {
	return &GameRepository{db: db}
}

// GetByID finds a reconciled game by its NHL game id
func (r *GameRepository) GetByID(ctx context.Context, gameID int64) (*store.Game, error) {
	row := r.db.DB().QueryRowContext(ctx, `SELECT `+gameColumns+gameJoins+` WHERE g.game_id = $1`, gameID)
	game, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("game %d: %w", gameID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying game: %w", err)
	}
	return game, nil
}

// Exists reports whether a game has been reconciled
func (r *GameRepository) Exists(ctx context.Context, gameID int64) (bool, error) {
	var exists bool
	err := r.db.DB().QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM games WHERE game_id = $1)`, gameID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking game: %w", err)
	}
	return exists, nil
}

// GetBySeason returns reconciled games of a season, newest first
func (r *GameRepository) GetBySeason(ctx context.Context, season int, limit int) ([]*store.Game, error) {
	rows, err := r.db.DB().QueryContext(ctx, `SELECT `+gameColumns+gameJoins+`
		WHERE g.season = $1
		ORDER BY g.game_date DESC, g.game_id DESC
		LIMIT $2
	`, season, limit)
	if err != nil {
		return nil, fmt.Errorf("querying games: %w", err)
	}
	defer rows.Close()

	var games []*store.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning game: %w", err)
		}
		games = append(games, game)
	}
	return games, rows.Err()
}

func upsertGame(ctx context.Context, q querier, game *store.Game) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO games (game_id, season, game_type, game_date, venue, start_time_utc,
			home_team_id, away_team_id, shift_source, event_count, shift_count, diagnostics)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (game_id) DO UPDATE SET
			season = EXCLUDED.season,
			game_type = EXCLUDED.game_type,
			game_date = EXCLUDED.game_date,
			venue = EXCLUDED.venue,
			start_time_utc = EXCLUDED.start_time_utc,
			home_team_id = EXCLUDED.home_team_id,
			away_team_id = EXCLUDED.away_team_id,
			shift_source = EXCLUDED.shift_source,
			event_count = EXCLUDED.event_count,
			shift_count = EXCLUDED.shift_count,
			diagnostics = EXCLUDED.diagnostics,
			reconciled_at = NOW(),
			updated_at = NOW()
	`,
		game.GameID, game.Season, string(game.GameType), game.GameDate, game.Venue, game.StartTimeUTC,
		game.HomeTeamID, game.AwayTeamID, game.ShiftSource, game.EventCount, game.ShiftCount,
		[]byte(game.Diagnostics),
	)
	if err != nil {
		return fmt.Errorf("upserting game %d: %w", game.GameID, err)
	}
	return nil
}

func scanGame(scanner interface {
	Scan(dest ...interface{}) error
}) (*store.Game, error) {
	game := &store.Game{}
	var diags []byte
	err := scanner.Scan(
		&game.GameID, &game.Season, &game.GameType, &game.GameDate, &game.Venue, &game.StartTimeUTC,
		&game.HomeTeamID, &game.AwayTeamID, &game.ShiftSource, &game.EventCount, &game.ShiftCount,
		&diags, &game.ReconciledAt, &game.CreatedAt, &game.UpdatedAt,
		&game.HomeAbbrev, &game.AwayAbbrev,
	)
	if err != nil {
		return nil, err
	}
	game.Diagnostics = diags
	return game, nil
}
