// Package shifts turns raw shift report rows into absolute-time Shift
// intervals keyed by roster player id.
package shifts

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fortuna/icetime/internal/clock"
	"github.com/fortuna/icetime/internal/hockey"
	"github.com/fortuna/icetime/internal/identity"
)

// Shift sources.
const (
	SourceHTML = "html"
	SourceAPI  = "api"
)

// RawShift is one row of a legacy shift report, still in report text form.
type RawShift struct {
	Name          string
	SweaterNumber int
	IsHome        bool
	ShiftNumber   string
	Period        string
	Start         string
	End           string
	Duration      string
}

// Result is the normalized output for one game.
type Result struct {
	Shifts      []hockey.Shift
	Diagnostics []hockey.Diagnostic
}

// Normalizer converts report rows into Shift values.
type Normalizer struct {
	dir *identity.Directory
}

// NewNormalizer creates a new shift normalizer backed by dir.
func NewNormalizer(dir *identity.Directory) *Normalizer {
	return &Normalizer{dir: dir}
}

// periodShift is a shift while its clock is still relative to its period.
type periodShift struct {
	hockey.Shift
	start    int
	end      int
	duration int
}

// FromReport normalizes legacy report rows for both sides of a game.
func (n *Normalizer) FromReport(meta hockey.GameMeta, roster *hockey.Roster, rows []RawShift) (Result, error) {
	var res Result
	parsed := make([]periodShift, 0, len(rows))

	for i, row := range rows {
		ps, err := n.parseRow(meta, row)
		if err != nil {
			return Result{}, hockey.WithGame(fmt.Errorf("shift row %d: %w", i, err), meta.GameID)
		}

		side := hockey.SideOf(row.IsHome)
		ps.Team = meta.Team(side).Abbrev

		if entry, ok := n.resolve(roster, side, row); ok {
			ps.PlayerID = entry.PlayerID
			ps.Name = entry.FullName
			ps.PositionCode = entry.PositionCode
			ps.IsGoalie = entry.IsGoalie()
		} else {
			ps.IsGoalie = n.dir.IsGoalie(ps.Name)
			res.Diagnostics = append(res.Diagnostics, hockey.Diagnostic{
				Kind:    hockey.DiagUnknownPlayer,
				GameID:  meta.GameID,
				Message: fmt.Sprintf("no %s roster entry for #%d %s", side, row.SweaterNumber, ps.Name),
			})
		}
		parsed = append(parsed, ps)
	}

	parsed, fixes := fixGoalieBoundaries(meta.GameID, parsed)
	res.Diagnostics = append(res.Diagnostics, fixes...)

	for _, ps := range parsed {
		if s, ok := ps.toAbsolute(meta.GameType); ok {
			res.Shifts = append(res.Shifts, s)
		}
	}
	res.Shifts = Playable(res.Shifts)
	Sort(res.Shifts)
	return res, nil
}

func (n *Normalizer) parseRow(meta hockey.GameMeta, row RawShift) (periodShift, error) {
	period, err := clock.ParsePeriodLabel(row.Period)
	if err != nil {
		return periodShift{}, err
	}

	startText, ok := clock.ClockPair(row.Start)
	if !ok {
		return periodShift{}, &hockey.FormatError{Field: "shift_start", Value: row.Start, Err: fmt.Errorf("missing start clock")}
	}
	start, err := clock.ParseClock(startText)
	if err != nil {
		return periodShift{}, err
	}

	duration := 0
	if d, ok := clock.ClockPair(row.Duration); ok {
		if duration, err = clock.ParseClock(d); err != nil {
			return periodShift{}, err
		}
	}

	// Reports leave the end cell blank when the shift ran to a period break.
	end := start + duration
	if endText, ok := clock.ClockPair(row.End); ok {
		if end, err = clock.ParseClock(endText); err != nil {
			return periodShift{}, err
		}
	}
	if end < start {
		end = clock.PeriodLength
	}

	number, _ := strconv.Atoi(strings.TrimSpace(row.ShiftNumber))
	return periodShift{
		Shift: hockey.Shift{
			GameID:        meta.GameID,
			Name:          n.dir.Canonicalize(row.Name),
			SweaterNumber: row.SweaterNumber,
			ShiftNumber:   number,
			Period:        period,
			IsHome:        row.IsHome,
			ZoneStart:     hockey.OnTheFly,
			Source:        SourceHTML,
		},
		start:    start,
		end:      end,
		duration: duration,
	}, nil
}

// resolve finds the roster entry for a report row: sweater number first,
// then canonical name, then a fuzzy name match within the side.
func (n *Normalizer) resolve(roster *hockey.Roster, side hockey.Side, row RawShift) (hockey.RosterEntry, bool) {
	if roster == nil {
		return hockey.RosterEntry{}, false
	}
	if e, ok := roster.BySweater(side, row.SweaterNumber); ok {
		return e, true
	}

	entries := roster.Side(side)
	name := n.dir.Canonicalize(row.Name)
	names := make([]string, len(entries))
	for i, e := range entries {
		if n.dir.Canonicalize(e.FullName) == name {
			return e, true
		}
		names[i] = e.FullName
	}

	match, ok := n.dir.Match(name, names)
	if !ok {
		return hockey.RosterEntry{}, false
	}
	for _, e := range entries {
		if e.FullName == match {
			return e, true
		}
	}
	return hockey.RosterEntry{}, false
}

func (ps periodShift) toAbsolute(gameType hockey.GameType) (hockey.Shift, bool) {
	start, ok := clock.ToElapsed(ps.Period, ps.start, gameType)
	if !ok {
		return hockey.Shift{}, false
	}
	end, _ := clock.ToElapsed(ps.Period, ps.end, gameType)

	s := ps.Shift
	s.StartSeconds = start
	s.EndSeconds = end
	s.DurationSeconds = end - start
	return s, true
}

// Playable drops zero and negative length shifts.
func Playable(shifts []hockey.Shift) []hockey.Shift {
	out := make([]hockey.Shift, 0, len(shifts))
	for _, s := range shifts {
		if s.DurationSeconds > 0 && s.EndSeconds > s.StartSeconds {
			out = append(out, s)
		}
	}
	return out
}

// Sort orders shifts by start, then side, then player id.
func Sort(shifts []hockey.Shift) {
	sort.SliceStable(shifts, func(i, j int) bool {
		a, b := shifts[i], shifts[j]
		if a.StartSeconds != b.StartSeconds {
			return a.StartSeconds < b.StartSeconds
		}
		if a.IsHome != b.IsHome {
			return a.IsHome
		}
		return a.PlayerID < b.PlayerID
	})
}
