package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fortuna/icetime/internal/hockey"
	"github.com/fortuna/icetime/internal/store"
)

// TeamRepository handles team data access
type TeamRepository struct {
	db *store.Database
}

// NewTeamRepository creates a new team repository
func NewTeamRepository(db *store.Database) *TeamRepository {
	return &TeamRepository{db: db}
}

// GetAll returns every team seen in a reconciled game
func (r *TeamRepository) GetAll(ctx context.Context) ([]hockey.Team, error) {
	rows, err := r.db.DB().QueryContext(ctx, `
		SELECT team_id, abbrev, name, logo_url
		FROM teams
		ORDER BY abbrev
	`)
	if err != nil {
		return nil, fmt.Errorf("querying teams: %w", err)
	}
	defer rows.Close()

	var teams []hockey.Team
	for rows.Next() {
		var t hockey.Team
		var logo sql.NullString
		if err := rows.Scan(&t.ID, &t.Abbrev, &t.Name, &logo); err != nil {
			return nil, fmt.Errorf("scanning team: %w", err)
		}
		t.Logo = logo.String
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// GetByID finds a team by its NHL team id
func (r *TeamRepository) GetByID(ctx context.Context, teamID int) (*hockey.Team, error) {
	var t hockey.Team
	var logo sql.NullString
	err := r.db.DB().QueryRowContext(ctx, `
		SELECT team_id, abbrev, name, logo_url
		FROM teams
		WHERE team_id = $1
	`, teamID).Scan(&t.ID, &t.Abbrev, &t.Name, &logo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("team %d: %w", teamID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying team: %w", err)
	}
	t.Logo = logo.String
	return &t, nil
}

// Upsert inserts or updates a team
func (r *TeamRepository) Upsert(ctx context.Context, team hockey.Team) error {
	return upsertTeam(ctx, r.db.DB(), team)
}

func upsertTeam(ctx context.Context, q querier, team hockey.Team) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO teams (team_id, abbrev, name, logo_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (team_id) DO UPDATE SET
			abbrev = EXCLUDED.abbrev,
			name = EXCLUDED.name,
			logo_url = COALESCE(EXCLUDED.logo_url, teams.logo_url),
			updated_at = NOW()
	`, team.ID, team.Abbrev, team.Name, sql.NullString{String: team.Logo, Valid: team.Logo != ""})
	if err != nil {
		return fmt.Errorf("upserting team %s: %w", team.Abbrev, err)
	}
	return nil
}
