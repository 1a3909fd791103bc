package reconciliation

import (
	"fmt"

	"github.com/fortuna/icetime/internal/clock"
	"github.com/fortuna/icetime/internal/hockey"
)

// MaxSkaters is the most skaters a side can legally have on the ice.
const MaxSkaters = 6

// countSkaters counts on-ice players with a known non-goalie position.
func countSkaters(set hockey.OnIceSet) int {
	n := 0
	for _, p := range set.Players {
		if p.Position != "" && p.Position != hockey.PositionGoalie {
			n++
		}
	}
	return n
}

// applyStrength sets skater counts and the strength label on an event.
func applyStrength(ev *hockey.EnrichedEvent) []hockey.Diagnostic {
	var diags []hockey.Diagnostic
	capped := func(side hockey.Side) int {
		n := countSkaters(ev.OnIce(side))
		if n > MaxSkaters {
			diags = append(diags, hockey.Diagnostic{
				Kind:    hockey.DiagSkaterOverflow,
				GameID:  ev.GameID,
				EventID: ev.EventID,
				Message: fmt.Sprintf("%d %s skaters on the ice, capped at %d", n, side, MaxSkaters),
			})
			n = MaxSkaters
		}
		return n
	}

	ev.HomeSkaters = capped(hockey.Home)
	ev.AwaySkaters = capped(hockey.Away)
	ev.Strength = nil
	ev.LowConfidence = lowConfidence(ev)

	if ev.EventTeam == nil {
		return diags
	}
	// An event team matching neither club reads from the away side.
	own, opp := ev.HomeSkaters, ev.AwaySkaters
	if ev.IsHome == nil || !*ev.IsHome {
		own, opp = opp, own
	}
	if own == 0 && opp == 0 {
		return diags
	}
	label := StrengthLabel(own, opp)
	ev.Strength = &label
	return diags
}

// StrengthLabel renders a skater comparison such as "5v4".
func StrengthLabel(own, opp int) string {
	return fmt.Sprintf("%dv%d", own, opp)
}

// lowConfidence flags events whose strength cannot be trusted: shootout
// attempts and anything past overtime outside the playoffs.
func lowConfidence(ev *hockey.EnrichedEvent) bool {
	if ev.PeriodType == "SO" {
		return true
	}
	return ev.Period >= clock.ShootoutPeriod && ev.Meta.GameType != hockey.GamePlayoffs
}
