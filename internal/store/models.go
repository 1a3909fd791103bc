package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/fortuna/icetime/internal/hockey"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// Game is a reconciled game row joined with its team abbreviations
type Game struct {
	GameID       int64           `json:"game_id" db:"game_id"`
	Season       int             `json:"season" db:"season"`
	GameType     hockey.GameType `json:"game_type" db:"game_type"`
	GameDate     time.Time       `json:"game_date" db:"game_date"`
	Venue        sql.NullString  `json:"venue,omitempty" db:"venue"`
	StartTimeUTC sql.NullTime    `json:"start_time_utc,omitempty" db:"start_time_utc"`
	HomeTeamID   int             `json:"home_team_id" db:"home_team_id"`
	AwayTeamID   int             `json:"away_team_id" db:"away_team_id"`
	ShiftSource  string          `json:"shift_source" db:"shift_source"`
	EventCount   int             `json:"event_count" db:"event_count"`
	ShiftCount   int             `json:"shift_count" db:"shift_count"`
	Diagnostics  json.RawMessage `json:"diagnostics" db:"diagnostics"`
	ReconciledAt time.Time       `json:"reconciled_at" db:"reconciled_at"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`

	// Joined from teams
	HomeAbbrev string `json:"home_abbrev" db:"-"`
	AwayAbbrev string `json:"away_abbrev" db:"-"`
}

// NewGame builds the row for a reconciled game.
func NewGame(meta hockey.GameMeta, source string, events, shifts int, diags []hockey.Diagnostic) (*Game, error) {
	date, err := time.Parse("2006-01-02", meta.GameDate)
	if err != nil {
		return nil, &hockey.FormatError{GameID: meta.GameID, Field: "game_date", Value: meta.GameDate, Err: err}
	}
	if diags == nil {
		diags = []hockey.Diagnostic{}
	}
	payload, err := json.Marshal(diags)
	if err != nil {
		return nil, err
	}

	g := &Game{
		GameID:      meta.GameID,
		Season:      meta.Season,
		GameType:    meta.GameType,
		GameDate:    date,
		Venue:       sql.NullString{String: meta.Venue, Valid: meta.Venue != ""},
		HomeTeamID:  meta.HomeTeam.ID,
		AwayTeamID:  meta.AwayTeam.ID,
		HomeAbbrev:  meta.HomeTeam.Abbrev,
		AwayAbbrev:  meta.AwayTeam.Abbrev,
		ShiftSource: source,
		EventCount:  events,
		ShiftCount:  shifts,
		Diagnostics: payload,
	}
	if t, err := time.Parse(time.RFC3339, meta.StartTimeUTC); err == nil {
		g.StartTimeUTC = sql.NullTime{Time: t, Valid: true}
	}
	return g, nil
}
