package reconciliation

import (
	"github.com/fortuna/icetime/internal/hockey"
)

// ClassifyZoneStart decides how a shift starting on a faceoff began, from
// the faceoff zone code, the home team's defending side that period, the
// shift's side and the sign of the faceoff x coordinate.
func ClassifyZoneStart(zoneCode, homeDefendingSide string, isHome bool, x *int) hockey.ZoneStart {
	if zoneCode == "N" {
		return hockey.ZoneNeutral
	}
	if x == nil || *x == 0 {
		return hockey.OnTheFly
	}

	// Flip the sign so that negative always means the home team's own end.
	sign := *x
	switch homeDefendingSide {
	case "left":
	case "right":
		sign = -sign
	default:
		return hockey.OnTheFly
	}
	if !isHome {
		sign = -sign
	}

	if sign < 0 {
		return hockey.ZoneDefensive
	}
	return hockey.ZoneOffensive
}

// AssignZoneStarts returns a copy of shifts with ZoneStart set from the
// faceoff that begins each shift, if any. The first faceoff by sort order
// wins when several share an instant.
func AssignZoneStarts(shifts []hockey.Shift, events []hockey.EnrichedEvent) []hockey.Shift {
	faceoffs := make(map[int]*hockey.EnrichedEvent)
	for i := range events {
		ev := &events[i]
		if ev.Type != hockey.EventFaceoff || ev.ElapsedSeconds == nil {
			continue
		}
		if prev, ok := faceoffs[*ev.ElapsedSeconds]; !ok || ev.SortOrder < prev.SortOrder {
			faceoffs[*ev.ElapsedSeconds] = ev
		}
	}

	out := make([]hockey.Shift, len(shifts))
	for i, s := range shifts {
		s.ZoneStart = hockey.OnTheFly
		if fo, ok := faceoffs[s.StartSeconds]; ok {
			s.ZoneStart = ClassifyZoneStart(fo.ZoneCode, fo.HomeTeamDefendingSide, s.IsHome, fo.XCoord)
		}
		out[i] = s
	}
	return out
}
