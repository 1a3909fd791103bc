package hockey

import "strings"

// PositionGoalie is the roster position code for goaltenders.
const PositionGoalie = "G"

// RosterEntry is one dressed player for a game.
type RosterEntry struct {
	PlayerID      int64  `json:"player_id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	FullName      string `json:"full_name"`
	TeamID        int    `json:"team_id"`
	TeamAbbrev    string `json:"team_abbrev"`
	PositionCode  string `json:"position_code"`
	SweaterNumber int    `json:"sweater_number"`
	IsHome        bool   `json:"is_home"`
}

// IsGoalie reports whether the entry is a goaltender.
func (r RosterEntry) IsGoalie() bool { return r.PositionCode == PositionGoalie }

// IsSkater reports whether the entry has a known non-goalie position.
func (r RosterEntry) IsSkater() bool {
	switch r.PositionCode {
	case "C", "D", "L", "R":
		return true
	}
	return false
}

type sweaterKey struct {
	side   Side
	number int
}

// Roster indexes a game's roster entries. It is immutable after NewRoster.
type Roster struct {
	entries   []RosterEntry
	byID      map[int64]int
	bySweater map[sweaterKey]int
}

// NewRoster builds the lookup indexes. Later duplicates of a player id or
// sweater number are ignored.
func NewRoster(entries []RosterEntry) *Roster {
	r := &Roster{
		entries:   make([]RosterEntry, len(entries)),
		byID:      make(map[int64]int, len(entries)),
		bySweater: make(map[sweaterKey]int, len(entries)),
	}
	copy(r.entries, entries)

	for i, e := range r.entries {
		if _, ok := r.byID[e.PlayerID]; !ok {
			r.byID[e.PlayerID] = i
		}
		key := sweaterKey{side: SideOf(e.IsHome), number: e.SweaterNumber}
		if _, ok := r.bySweater[key]; !ok {
			r.bySweater[key] = i
		}
	}
	return r
}

// Entries returns a copy of all roster entries.
func (r *Roster) Entries() []RosterEntry {
	out := make([]RosterEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Side returns the roster entries of one side.
func (r *Roster) Side(side Side) []RosterEntry {
	var out []RosterEntry
	for _, e := range r.entries {
		if SideOf(e.IsHome) == side {
			out = append(out, e)
		}
	}
	return out
}

// ByID looks a player up by id.
func (r *Roster) ByID(id int64) (RosterEntry, bool) {
	if r == nil {
		return RosterEntry{}, false
	}
	i, ok := r.byID[id]
	if !ok {
		return RosterEntry{}, false
	}
	return r.entries[i], true
}

// BySweater looks a player up by side and sweater number.
func (r *Roster) BySweater(side Side, number int) (RosterEntry, bool) {
	if r == nil {
		return RosterEntry{}, false
	}
	i, ok := r.bySweater[sweaterKey{side: side, number: number}]
	if !ok {
		return RosterEntry{}, false
	}
	return r.entries[i], true
}

// Ref builds the event participant context for an optional player id. A
// missing roster entry yields a ref with only the id set.
func (r *Roster) Ref(id *int64) PlayerRef {
	if id == nil {
		return PlayerRef{}
	}
	ref := PlayerRef{ID: id}
	if e, ok := r.ByID(*id); ok {
		ref.FullName = e.FullName
		ref.Team = e.TeamAbbrev
		ref.Position = e.PositionCode
	}
	return ref
}

// FullName joins first and last names the way the reports do.
func FullName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
