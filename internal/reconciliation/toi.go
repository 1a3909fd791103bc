package reconciliation

import (
	"sort"

	"github.com/fortuna/icetime/internal/hockey"
)

// secondTimeline lists, for every elapsed second, the distinct skaters of
// one side on the ice. A shift covers [start, end).
type secondTimeline [][]int64

func buildTimeline(shifts []hockey.Shift, side hockey.Side, roster *hockey.Roster, length int) secondTimeline {
	tl := make(secondTimeline, length)
	for _, s := range shifts {
		if s.Side() != side || !s.Resolved() || !isSkater(s, roster) {
			continue
		}
		for t := max(s.StartSeconds, 0); t < s.EndSeconds && t < length; t++ {
			if !containsID(tl[t], s.PlayerID) {
				tl[t] = append(tl[t], s.PlayerID)
			}
		}
	}
	return tl
}

func isSkater(s hockey.Shift, roster *hockey.Roster) bool {
	if e, ok := roster.ByID(s.PlayerID); ok {
		return e.IsSkater()
	}
	return hockey.RosterEntry{PositionCode: s.PositionCode}.IsSkater()
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func timelineLength(shifts []hockey.Shift) int {
	end := 0
	for _, s := range shifts {
		if s.Resolved() && s.EndSeconds > end {
			end = s.EndSeconds
		}
	}
	return end
}

// PlayerTOI totals each skater's seconds on the ice by strength, where the
// strength is the player's own side count against the opponent's.
func PlayerTOI(meta hockey.GameMeta, roster *hockey.Roster, shifts []hockey.Shift) []hockey.PlayerTOI {
	length := timelineLength(shifts)
	lines := map[hockey.Side]secondTimeline{
		hockey.Home: buildTimeline(shifts, hockey.Home, roster, length),
		hockey.Away: buildTimeline(shifts, hockey.Away, roster, length),
	}

	type key struct {
		player   int64
		side     hockey.Side
		strength string
	}
	totals := make(map[key]int)
	for _, side := range hockey.Sides {
		own, opp := lines[side], lines[side.Opponent()]
		for t := 0; t < length; t++ {
			if len(own[t]) == 0 {
				continue
			}
			label := StrengthLabel(len(own[t]), len(opp[t]))
			for _, id := range own[t] {
				totals[key{player: id, side: side, strength: label}]++
			}
		}
	}

	names := make(map[int64]hockey.Shift)
	for _, s := range shifts {
		if _, ok := names[s.PlayerID]; !ok {
			names[s.PlayerID] = s
		}
	}

	out := make([]hockey.PlayerTOI, 0, len(totals))
	for k, secs := range totals {
		row := hockey.PlayerTOI{
			GameID:   meta.GameID,
			PlayerID: k.player,
			IsHome:   k.side == hockey.Home,
			Strength: k.strength,
			Seconds:  secs,
		}
		if e, ok := roster.ByID(k.player); ok {
			row.FullName = e.FullName
			row.TeamAbbrev = e.TeamAbbrev
			row.PositionCode = e.PositionCode
		} else if s, ok := names[k.player]; ok {
			row.FullName = s.Name
			row.TeamAbbrev = s.Team
			row.PositionCode = s.PositionCode
		}
		out = append(out, row)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsHome != b.IsHome {
			return a.IsHome
		}
		if a.PlayerID != b.PlayerID {
			return a.PlayerID < b.PlayerID
		}
		return a.Strength < b.Strength
	})
	return out
}

// TeamTOI totals each team's seconds by strength. Seconds with no skaters
// on either side are not counted.
func TeamTOI(meta hockey.GameMeta, roster *hockey.Roster, shifts []hockey.Shift) []hockey.TeamTOI {
	length := timelineLength(shifts)
	home := buildTimeline(shifts, hockey.Home, roster, length)
	away := buildTimeline(shifts, hockey.Away, roster, length)

	type key struct {
		side     hockey.Side
		strength string
	}
	totals := make(map[key]int)
	for t := 0; t < length; t++ {
		h, a := len(home[t]), len(away[t])
		if h == 0 && a == 0 {
			continue
		}
		totals[key{side: hockey.Home, strength: StrengthLabel(h, a)}]++
		totals[key{side: hockey.Away, strength: StrengthLabel(a, h)}]++
	}

	out := make([]hockey.TeamTOI, 0, len(totals))
	for k, secs := range totals {
		team := meta.Team(k.side)
		out = append(out, hockey.TeamTOI{
			GameID:   meta.GameID,
			Abbrev:   team.Abbrev,
			Name:     team.Name,
			IsHome:   k.side == hockey.Home,
			Strength: k.strength,
			Seconds:  secs,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsHome != b.IsHome {
			return a.IsHome
		}
		if a.Seconds != b.Seconds {
			return a.Seconds > b.Seconds
		}
		return a.Strength < b.Strength
	})
	return out
}
