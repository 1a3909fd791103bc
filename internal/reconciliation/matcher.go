package reconciliation

import (
	"fmt"
	"strings"

	"github.com/fortuna/icetime/internal/hockey"
	"github.com/fortuna/icetime/internal/identity"
)

// Matcher handles matching shift report team headings to game sides
type Matcher struct {
	dir *identity.Directory
}

// NewMatcher creates a new heading matcher
func NewMatcher(dir *identity.Directory) *Matcher {
	return &Matcher{dir: dir}
}

// SideOf finds which side of the game a report heading belongs to
func (m *Matcher) SideOf(meta hockey.GameMeta, heading string) (hockey.Side, bool) {
	if abbrev, ok := m.dir.TeamAbbrev(heading); ok {
		switch {
		case strings.EqualFold(abbrev, meta.HomeTeam.Abbrev):
			return hockey.Home, true
		case strings.EqualFold(abbrev, meta.AwayTeam.Abbrev):
			return hockey.Away, true
		}
	}

	homeMatch := matchTeams(meta.HomeTeam, heading)
	awayMatch := matchTeams(meta.AwayTeam, heading)
	switch {
	case homeMatch && !awayMatch:
		return hockey.Home, true
	case awayMatch && !homeMatch:
		return hockey.Away, true
	}
	return hockey.Home, false
}

// AssignSide decides the side for a report. The heading wins over the
// report's nominal side; an unmatched heading keeps the nominal side and
// yields a diagnostic.
func (m *Matcher) AssignSide(meta hockey.GameMeta, heading string, nominal hockey.Side) (hockey.Side, *hockey.Diagnostic) {
	side, ok := m.SideOf(meta, heading)
	if !ok {
		return nominal, &hockey.Diagnostic{
			Kind:    hockey.DiagUnmappedTeam,
			GameID:  meta.GameID,
			Message: fmt.Sprintf("report heading %q matches neither %s nor %s", heading, meta.HomeTeam.Abbrev, meta.AwayTeam.Abbrev),
		}
	}
	if side != nominal {
		return side, &hockey.Diagnostic{
			Kind:    hockey.DiagUnmappedTeam,
			GameID:  meta.GameID,
			Message: fmt.Sprintf("%s report heading %q belongs to the %s team", nominal, heading, side),
		}
	}
	return side, nil
}

// matchTeams checks if a report heading names the given team
func matchTeams(team hockey.Team, heading string) bool {
	heading = strings.ToLower(strings.TrimSpace(heading))
	if heading == "" {
		return false
	}

	// Exact match
	if strings.EqualFold(heading, team.Abbrev) {
		return true
	}
	if team.Name != "" && strings.Contains(heading, strings.ToLower(team.Name)) {
		return true
	}

	// Handle special cases
	specialCases := map[string][]string{
		"MTL": {"canadiens", "montréal", "montreal"},
		"ARI": {"coyotes", "arizona"},
		"PHX": {"coyotes", "phoenix"},
		"UTA": {"utah"},
		"VGK": {"golden knights", "vegas"},
		"STL": {"st. louis", "st louis", "blues"},
		"TBL": {"lightning", "tampa bay"},
		"NJD": {"devils", "new jersey"},
		"LAK": {"kings", "los angeles"},
		"SJS": {"sharks", "san jose"},
	}

	for _, variant := range specialCases[strings.ToUpper(team.Abbrev)] {
		if strings.Contains(heading, variant) {
			return true
		}
	}
	return false
}
