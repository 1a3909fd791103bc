package shifts

import (
	"fmt"
	"strings"

	"github.com/fortuna/icetime/internal/clock"
	"github.com/fortuna/icetime/internal/hockey"
)

// APIRecord is one row of the JSON shift chart feed.
type APIRecord struct {
	PlayerID    int64
	FirstName   string
	LastName    string
	TeamAbbrev  string
	Period      int
	ShiftNumber int
	StartTime   string
	EndTime     string
	Duration    *string
}

// FromAPI normalizes shift chart records. Side is decided by comparing the
// record's team abbreviation with the home team.
func (n *Normalizer) FromAPI(meta hockey.GameMeta, roster *hockey.Roster, records []APIRecord) (Result, error) {
	var res Result
	home := strings.TrimSpace(meta.HomeTeam.Abbrev)

	for i, rec := range records {
		start, err := clock.ParseClock(rec.StartTime)
		if err != nil {
			return Result{}, hockey.WithGame(fmt.Errorf("shift record %d: %w", i, err), meta.GameID)
		}
		end, err := clock.ParseClock(rec.EndTime)
		if err != nil {
			return Result{}, hockey.WithGame(fmt.Errorf("shift record %d: %w", i, err), meta.GameID)
		}
		duration := 0
		if rec.Duration != nil && strings.TrimSpace(*rec.Duration) != "" {
			if duration, err = clock.ParseClock(*rec.Duration); err != nil {
				return Result{}, hockey.WithGame(fmt.Errorf("shift record %d: %w", i, err), meta.GameID)
			}
		}
		if duration <= 0 {
			continue
		}

		startAbs, ok := clock.ToElapsed(rec.Period, start, meta.GameType)
		if !ok {
			continue
		}
		endAbs, _ := clock.ToElapsed(rec.Period, end, meta.GameType)

		team := strings.TrimSpace(rec.TeamAbbrev)
		s := hockey.Shift{
			GameID:          meta.GameID,
			PlayerID:        rec.PlayerID,
			Name:            n.dir.Canonicalize(hockey.FullName(rec.FirstName, rec.LastName)),
			Team:            team,
			ShiftNumber:     rec.ShiftNumber,
			Period:          rec.Period,
			StartSeconds:    startAbs,
			EndSeconds:      endAbs,
			DurationSeconds: duration,
			IsHome:          team == home,
			ZoneStart:       hockey.OnTheFly,
			Source:          SourceAPI,
		}

		if entry, ok := roster.ByID(rec.PlayerID); ok {
			s.Name = entry.FullName
			s.SweaterNumber = entry.SweaterNumber
			s.PositionCode = entry.PositionCode
			s.IsGoalie = entry.IsGoalie()
		} else {
			s.IsGoalie = n.dir.IsGoalie(s.Name)
			res.Diagnostics = append(res.Diagnostics, hockey.Diagnostic{
				Kind:    hockey.DiagUnknownPlayer,
				GameID:  meta.GameID,
				Message: fmt.Sprintf("player %d (%s) not on the game roster", rec.PlayerID, s.Name),
			})
		}
		res.Shifts = append(res.Shifts, s)
	}

	res.Shifts = Playable(res.Shifts)
	Sort(res.Shifts)
	return res, nil
}
