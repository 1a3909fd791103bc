package nhl

import "sort"

// Finished game states on the web API.
const (
	StateOff   = "OFF"
	StateFinal = "FINAL"
)

// ScheduleTeam is the short team block in schedule entries.
type ScheduleTeam struct {
	ID     int    `json:"id"`
	Abbrev string `json:"abbrev"`
}

// ScheduleGame is one game of a club schedule.
type ScheduleGame struct {
	ID        int64        `json:"id"`
	Season    int          `json:"season"`
	GameType  int          `json:"gameType"`
	GameDate  string       `json:"gameDate"`
	GameState string       `json:"gameState"`
	HomeTeam  ScheduleTeam `json:"homeTeam"`
	AwayTeam  ScheduleTeam `json:"awayTeam"`
}

// Finished reports whether the game has a final state.
func (g ScheduleGame) Finished() bool {
	return g.GameState == StateOff || g.GameState == StateFinal
}

// Schedule is the club-schedule-season document.
type Schedule struct {
	PreviousSeason int            `json:"previousSeason"`
	CurrentSeason  int            `json:"currentSeason"`
	ClubTimezone   string         `json:"clubTimezone"`
	Games          []ScheduleGame `json:"games"`
}

// FinishedGameIDs returns the ids of finished games, optionally restricted
// to the given game type codes, in ascending order.
func (s *Schedule) FinishedGameIDs(gameTypes ...int) []int64 {
	allowed := make(map[int]bool, len(gameTypes))
	for _, t := range gameTypes {
		allowed[t] = true
	}

	var ids []int64
	for _, g := range s.Games {
		if !g.Finished() {
			continue
		}
		if len(allowed) > 0 && !allowed[g.GameType] {
			continue
		}
		ids = append(ids, g.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// GamesOn returns the finished games played on a date (YYYY-MM-DD).
func (s *Schedule) GamesOn(date string) []ScheduleGame {
	var out []ScheduleGame
	for _, g := range s.Games {
		if g.GameDate == date && g.Finished() {
			out = append(out, g)
		}
	}
	return out
}
