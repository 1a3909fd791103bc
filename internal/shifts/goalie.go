package shifts

import (
	"fmt"

	"github.com/fortuna/icetime/internal/clock"
	"github.com/fortuna/icetime/internal/hockey"
)

const (
	// goalieEndCutoff is the period clock before which a lone goalie's
	// shift is assumed to run to the end of the period.
	goalieEndCutoff = 18 * 60

	// finalPeriodEndCutoff applies to the last regulation period, where a
	// goalie may be pulled late for an extra attacker.
	finalPeriodEndCutoff = 13 * 60
)

type teamPeriod struct {
	isHome bool
	period int
}

// fixGoalieBoundaries repairs goalie shifts the legacy reports truncate.
// When exactly one goalie shift record exists for a team in a period, its
// start is moved to 0:00 and, outside overtime, its end is moved to 20:00
// when the corrected start falls before the period's cutoff. Periods with two
// or more goalie records are left alone. This is a heuristic: a report that really
// does show a goalie entering mid-period with a single record is rewritten
// too.
func fixGoalieBoundaries(gameID int64, in []periodShift) ([]periodShift, []hockey.Diagnostic) {
	records := make(map[teamPeriod]int)
	for _, ps := range in {
		if ps.IsGoalie {
			records[teamPeriod{isHome: ps.IsHome, period: ps.Period}]++
		}
	}

	out := make([]periodShift, len(in))
	copy(out, in)

	var diags []hockey.Diagnostic
	for i, ps := range out {
		if !ps.IsGoalie || records[teamPeriod{isHome: ps.IsHome, period: ps.Period}] != 1 {
			continue
		}

		start, end := 0, ps.end
		if cutoff, ok := goalieCutoff(ps.Period); ok && start < cutoff {
			end = clock.PeriodLength
		}
		if start == ps.start && end == ps.end {
			continue
		}

		diags = append(diags, hockey.Diagnostic{
			Kind:   hockey.DiagGoalieFix,
			GameID: gameID,
			Message: fmt.Sprintf("period %d goalie %s: %s-%s adjusted to %s-%s",
				ps.Period, ps.Name,
				clock.FormatClock(ps.start), clock.FormatClock(ps.end),
				clock.FormatClock(start), clock.FormatClock(end)),
		})
		out[i].start = start
		out[i].end = end
		out[i].duration = end - start
	}
	return out, diags
}

// goalieCutoff returns the end cutoff for a period; overtime has none.
func goalieCutoff(period int) (int, bool) {
	switch {
	case period == clock.OvertimePeriod:
		return 0, false
	case period == clock.RegulationPeriods:
		return finalPeriodEndCutoff, true
	default:
		return goalieEndCutoff, true
	}
}
