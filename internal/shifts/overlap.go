package shifts

import (
	"fmt"
	"sort"

	"github.com/fortuna/icetime/internal/hockey"
)

// DetectOverlaps reports shifts of the same player in the same period that
// overlap in time. Both shifts are kept; matching counts the player once.
func DetectOverlaps(shifts []hockey.Shift) []hockey.Diagnostic {
	type key struct {
		player int64
		period int
	}
	groups := make(map[key][]hockey.Shift)
	for _, s := range shifts {
		if !s.Resolved() {
			continue
		}
		k := key{player: s.PlayerID, period: s.Period}
		groups[k] = append(groups[k], s)
	}

	keys := make([]key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].period != keys[j].period {
			return keys[i].period < keys[j].period
		}
		return keys[i].player < keys[j].player
	})

	var diags []hockey.Diagnostic
	for _, k := range keys {
		group := groups[k]
		sort.SliceStable(group, func(i, j int) bool { return group[i].StartSeconds < group[j].StartSeconds })

		reach := group[0].EndSeconds
		for _, s := range group[1:] {
			if s.StartSeconds < reach {
				diags = append(diags, hockey.Diagnostic{
					Kind:   hockey.DiagOverlapShift,
					GameID: s.GameID,
					Message: fmt.Sprintf("player %d (%s) period %d: shift starting at %d overlaps earlier shift ending at %d",
						s.PlayerID, s.Name, s.Period, s.StartSeconds, reach),
				})
			}
			if s.EndSeconds > reach {
				reach = s.EndSeconds
			}
		}
	}
	return diags
}
