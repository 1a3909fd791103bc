package nhl

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fortuna/icetime/internal/events"
	"github.com/fortuna/icetime/internal/hockey"
	"github.com/fortuna/icetime/internal/shifts"
)

// LocalizedString is the {"default": ...} wrapper the web API uses for
// display text.
type LocalizedString struct {
	Default string `json:"default"`
}

// TeamInfo is the homeTeam/awayTeam block of a play-by-play document.
type TeamInfo struct {
	ID         int             `json:"id"`
	Abbrev     string          `json:"abbrev"`
	CommonName LocalizedString `json:"commonName"`
	Name       LocalizedString `json:"name"`
	PlaceName  LocalizedString `json:"placeName"`
	Logo       string          `json:"logo"`
}

// RosterSpot is one dressed player.
type RosterSpot struct {
	TeamID        int             `json:"teamId"`
	PlayerID      int64           `json:"playerId"`
	FirstName     LocalizedString `json:"firstName"`
	LastName      LocalizedString `json:"lastName"`
	SweaterNumber int             `json:"sweaterNumber"`
	PositionCode  string          `json:"positionCode"`
	Headshot      string          `json:"headshot"`
}

// PlayByPlay is the gamecenter play-by-play document.
type PlayByPlay struct {
	ID           int64           `json:"id"`
	Season       int             `json:"season"`
	GameType     int             `json:"gameType"`
	GameDate     string          `json:"gameDate"`
	Venue        LocalizedString `json:"venue"`
	StartTimeUTC string          `json:"startTimeUTC"`
	GameState    string          `json:"gameState"`
	HomeTeam     TeamInfo        `json:"homeTeam"`
	AwayTeam     TeamInfo        `json:"awayTeam"`
	RosterSpots  []RosterSpot    `json:"rosterSpots"`
	Plays        []events.Play   `json:"plays"`
}

// ParsePlayByPlay decodes a raw play-by-play body.
func ParsePlayByPlay(body []byte) (*PlayByPlay, error) {
	var doc PlayByPlay
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode play-by-play: %w", err)
	}
	if doc.ID == 0 {
		return nil, &hockey.FormatError{Field: "id", Err: fmt.Errorf("play-by-play document has no game id")}
	}
	return &doc, nil
}

func (t TeamInfo) team() hockey.Team {
	name := t.CommonName.Default
	if name == "" {
		name = t.Name.Default
	}
	return hockey.Team{
		ID:     t.ID,
		Abbrev: strings.TrimSpace(t.Abbrev),
		Name:   name,
		Logo:   t.Logo,
	}
}

// Meta extracts the game-level fields.
func (p *PlayByPlay) Meta() hockey.GameMeta {
	return hockey.GameMeta{
		GameID:       p.ID,
		Season:       p.Season,
		GameType:     hockey.GameTypeFromCode(p.GameType),
		GameDate:     p.GameDate,
		Venue:        p.Venue.Default,
		StartTimeUTC: p.StartTimeUTC,
		HomeTeam:     p.HomeTeam.team(),
		AwayTeam:     p.AwayTeam.team(),
	}
}

// Roster builds the game roster from the roster spots. Spots whose team id
// matches neither side are skipped.
func (p *PlayByPlay) Roster() *hockey.Roster {
	entries := make([]hockey.RosterEntry, 0, len(p.RosterSpots))
	for _, spot := range p.RosterSpots {
		var team TeamInfo
		switch spot.TeamID {
		case p.HomeTeam.ID:
			team = p.HomeTeam
		case p.AwayTeam.ID:
			team = p.AwayTeam
		default:
			continue
		}
		first, last := spot.FirstName.Default, spot.LastName.Default
		entries = append(entries, hockey.RosterEntry{
			PlayerID:      spot.PlayerID,
			FirstName:     first,
			LastName:      last,
			FullName:      hockey.FullName(first, last),
			TeamID:        spot.TeamID,
			TeamAbbrev:    strings.TrimSpace(team.Abbrev),
			PositionCode:  spot.PositionCode,
			SweaterNumber: spot.SweaterNumber,
			IsHome:        spot.TeamID == p.HomeTeam.ID,
		})
	}
	return hockey.NewRoster(entries)
}

// ShiftChartRecord is one row of the shiftcharts feed. Goal markers share the
// feed with a null duration.
type ShiftChartRecord struct {
	ID          int64   `json:"id"`
	GameID      int64   `json:"gameId"`
	PlayerID    int64   `json:"playerId"`
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	TeamID      int     `json:"teamId"`
	TeamAbbrev  string  `json:"teamAbbrev"`
	TeamName    string  `json:"teamName"`
	Period      int     `json:"period"`
	ShiftNumber int     `json:"shiftNumber"`
	StartTime   string  `json:"startTime"`
	EndTime     string  `json:"endTime"`
	Duration    *string `json:"duration"`
	TypeCode    int     `json:"typeCode"`
}

type shiftChartResponse struct {
	Data  []ShiftChartRecord `json:"data"`
	Total int                `json:"total"`
}

// ParseShiftChart decodes a raw shiftcharts body. An empty data array is
// reported as hockey.ErrNoData.
func ParseShiftChart(body []byte) ([]ShiftChartRecord, error) {
	var resp shiftChartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode shift chart: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, hockey.ErrNoData
	}
	return resp.Data, nil
}

// APIRecords converts shift chart rows for the shift normalizer.
func APIRecords(records []ShiftChartRecord) []shifts.APIRecord {
	out := make([]shifts.APIRecord, 0, len(records))
	for _, r := range records {
		out = append(out, shifts.APIRecord{
			PlayerID:    r.PlayerID,
			FirstName:   r.FirstName,
			LastName:    r.LastName,
			TeamAbbrev:  r.TeamAbbrev,
			Period:      r.Period,
			ShiftNumber: r.ShiftNumber,
			StartTime:   r.StartTime,
			EndTime:     r.EndTime,
			Duration:    r.Duration,
		})
	}
	return out
}
