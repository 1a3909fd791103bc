package reconciliation

import (
	"fmt"
	"sort"

	"github.com/fortuna/icetime/internal/hockey"
)

// sideIndex holds one side's matchable shifts ordered by start then player
// id, so a lookup is a binary search plus a short scan.
type sideIndex struct {
	shifts  []hockey.Shift
	longest int
}

func newSideIndex(all []hockey.Shift, side hockey.Side) *sideIndex {
	ix := &sideIndex{}
	for _, s := range all {
		if s.Side() != side || !s.Resolved() || s.DurationSeconds <= 0 {
			continue
		}
		ix.shifts = append(ix.shifts, s)
		if d := s.EndSeconds - s.StartSeconds; d > ix.longest {
			ix.longest = d
		}
	}
	sort.SliceStable(ix.shifts, func(i, j int) bool {
		a, b := ix.shifts[i], ix.shifts[j]
		if a.StartSeconds != b.StartSeconds {
			return a.StartSeconds < b.StartSeconds
		}
		return a.PlayerID < b.PlayerID
	})
	return ix
}

// firstAtOrAfter returns the index of the first shift starting at or after t.
func (ix *sideIndex) firstAtOrAfter(t int) int {
	return sort.Search(len(ix.shifts), func(i int) bool { return ix.shifts[i].StartSeconds >= t })
}

// match returns the shifts on the ice at elapsed second t. A faceoff matches
// shifts starting exactly at t; any other event matches start < t <= end.
func (ix *sideIndex) match(t int, faceoff bool) []hockey.Shift {
	var out []hockey.Shift
	if faceoff {
		for i := ix.firstAtOrAfter(t); i < len(ix.shifts) && ix.shifts[i].StartSeconds == t; i++ {
			out = append(out, ix.shifts[i])
		}
		return out
	}

	// No shift starting before t-longest can still be on the ice at t.
	for i := ix.firstAtOrAfter(t - ix.longest); i < len(ix.shifts); i++ {
		s := ix.shifts[i]
		if s.StartSeconds >= t {
			break
		}
		if t <= s.EndSeconds {
			out = append(out, s)
		}
	}
	return out
}

// onIceSet collapses matched shifts to distinct players in match order and
// attaches roster names and positions.
func onIceSet(matched []hockey.Shift, roster *hockey.Roster) hockey.OnIceSet {
	seen := make(map[int64]bool, len(matched))
	set := hockey.OnIceSet{Players: make([]hockey.OnIcePlayer, 0, len(matched))}
	for _, s := range matched {
		if seen[s.PlayerID] {
			continue
		}
		seen[s.PlayerID] = true

		p := hockey.OnIcePlayer{ID: s.PlayerID, Name: s.Name, Position: s.PositionCode}
		if e, ok := roster.ByID(s.PlayerID); ok {
			p.Name = e.FullName
			p.Position = e.PositionCode
		}
		set.Players = append(set.Players, p)
	}
	return set
}

// matchEvent fills the home and away on-ice sets of one event.
func matchEvent(ev *hockey.EnrichedEvent, home, away *sideIndex, roster *hockey.Roster) []hockey.Diagnostic {
	ev.HomeOn = hockey.OnIceSet{}
	ev.AwayOn = hockey.OnIceSet{}
	if ev.EventTeam == nil || ev.ElapsedSeconds == nil {
		return nil
	}

	t := *ev.ElapsedSeconds
	faceoff := ev.Type == hockey.EventFaceoff
	ev.HomeOn = onIceSet(home.match(t, faceoff), roster)
	ev.AwayOn = onIceSet(away.match(t, faceoff), roster)

	var diags []hockey.Diagnostic
	for _, side := range hockey.Sides {
		if n := len(ev.OnIce(side).Players); n > hockey.MaxOnIceSlots {
			diags = append(diags, hockey.Diagnostic{
				Kind:    hockey.DiagTooManyOnIce,
				GameID:  ev.GameID,
				EventID: ev.EventID,
				Message: fmt.Sprintf("%d %s players matched at %ds; only %d slots kept", n, side, t, hockey.MaxOnIceSlots),
			})
		}
	}
	return diags
}
