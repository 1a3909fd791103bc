// Package identity canonicalizes player and team names read from shift
// reports so they can be joined against the play-by-play roster.
package identity

import (
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

//go:embed data/*.yaml
var dataFS embed.FS

var embeddedTables = []string{"data/aliases.yaml", "data/goalies.yaml", "data/teams.yaml"}

// MaxFuzzyDistance is the largest Levenshtein distance accepted by Match.
const MaxFuzzyDistance = 2

type prefixRule struct {
	from string
	to   string
}

// Directory holds the alias, goalie and team tables. It is immutable once
// loaded and safe for concurrent use.
type Directory struct {
	prefixes []prefixRule
	aliases  map[string]string
	goalies  map[string]struct{}
	teams    map[string]string
}

var (
	defaultOnce sync.Once
	defaultDir  *Directory
	defaultErr  error
)

// Default returns the directory built from the embedded tables.
func Default() (*Directory, error) {
	defaultOnce.Do(func() {
		defaultDir, defaultErr = Load("")
	})
	return defaultDir, defaultErr
}

// MustDefault is Default for callers that treat broken embedded tables as a
// programming error.
func MustDefault() *Directory {
	d, err := Default()
	if err != nil {
		panic(err)
	}
	return d
}

// Load builds a directory from the embedded tables, then merges the override
// file at overridePath when it is not empty. Override entries win.
func Load(overridePath string) (*Directory, error) {
	t := newTables()
	for _, name := range embeddedTables {
		raw, err := dataFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		if err := t.merge(raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
	}

	if overridePath != "" {
		raw, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read identity overrides: %w", err)
		}
		if err := t.merge(raw); err != nil {
			return nil, fmt.Errorf("failed to parse identity overrides: %w", err)
		}
	}

	return t.build()
}

// Normalize trims, collapses internal whitespace and uppercases a name.
func Normalize(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}

// Canonicalize maps a report spelling to the roster spelling. The result is
// a fixed point: Canonicalize(Canonicalize(x)) == Canonicalize(x).
func (d *Directory) Canonicalize(raw string) string {
	name := d.applyPrefixes(Normalize(raw))
	if target, ok := d.aliases[name]; ok {
		return target
	}
	return name
}

// IsGoalie reports whether a name belongs to the known goaltender set.
func (d *Directory) IsGoalie(name string) bool {
	_, ok := d.goalies[d.Canonicalize(name)]
	return ok
}

// TeamAbbrev resolves a report team heading to an API abbreviation.
func (d *Directory) TeamAbbrev(heading string) (string, bool) {
	abbrev, ok := d.teams[Normalize(heading)]
	return abbrev, ok
}

// Match finds the candidate closest to name by Levenshtein distance after
// canonicalizing both sides. Ties resolve to the lexically smallest candidate.
func (d *Directory) Match(name string, candidates []string) (string, bool) {
	target := d.Canonicalize(name)
	best, bestDist := "", MaxFuzzyDistance+1
	for _, c := range candidates {
		canon := d.Canonicalize(c)
		dist := fuzzy.LevenshteinDistance(target, canon)
		if dist < bestDist || (dist == bestDist && c < best) {
			best, bestDist = c, dist
		}
	}
	if bestDist > MaxFuzzyDistance {
		return "", false
	}
	return best, true
}

// Len returns the sizes of the alias, goalie and team tables.
func (d *Directory) Len() (aliases, goalies, teams int) {
	return len(d.aliases), len(d.goalies), len(d.teams)
}

func (d *Directory) applyPrefixes(name string) string {
	return rewritePrefixes(d.prefixes, name)
}

func rewritePrefixes(rules []prefixRule, name string) string {
	for {
		next := name
		for _, r := range rules {
			next = strings.ReplaceAll(next, r.from, r.to)
		}
		if next == name {
			return name
		}
		name = next
	}
}

type tables struct {
	prefixes []prefixRule
	aliases  map[string]string
	goalies  map[string]struct{}
	teams    map[string]string
}

func newTables() *tables {
	return &tables{
		aliases: make(map[string]string),
		goalies: make(map[string]struct{}),
		teams:   make(map[string]string),
	}
}

func (t *tables) merge(raw []byte) error {
	doc, err := kyaml.Parser().Unmarshal(raw)
	if err != nil {
		return err
	}

	if v, ok := doc["prefixes"]; ok {
		items, ok := v.([]interface{})
		if !ok {
			return fmt.Errorf("prefixes: expected a list")
		}
		for _, item := range items {
			m, ok := item.(map[string]interface{})
			if !ok {
				return fmt.Errorf("prefixes: expected from/to pairs")
			}
			from, _ := m["from"].(string)
			to, _ := m["to"].(string)
			if from == "" {
				return fmt.Errorf("prefixes: empty from")
			}
			t.prefixes = append(t.prefixes, prefixRule{from: strings.ToUpper(from), to: strings.ToUpper(to)})
		}
	}

	if err := mergeStringMap(doc, "aliases", t.aliases); err != nil {
		return err
	}
	if err := mergeStringMap(doc, "teams", t.teams); err != nil {
		return err
	}

	if v, ok := doc["goalies"]; ok {
		items, ok := v.([]interface{})
		if !ok {
			return fmt.Errorf("goalies: expected a list")
		}
		for _, item := range items {
			name, ok := item.(string)
			if !ok {
				return fmt.Errorf("goalies: expected names, got %T", item)
			}
			t.goalies[name] = struct{}{}
		}
	}
	return nil
}

func mergeStringMap(doc map[string]interface{}, key string, into map[string]string) error {
	v, ok := doc[key]
	if !ok || v == nil {
		return nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%s: expected a mapping", key)
	}
	for k, raw := range m {
		s, ok := raw.(string)
		if !ok {
			return fmt.Errorf("%s: value for %q is %T, want string", key, k, raw)
		}
		into[Normalize(k)] = Normalize(s)
	}
	return nil
}

// build closes the alias table over the prefix rules and itself so that
// every alias target is already canonical.
func (t *tables) build() (*Directory, error) {
	rewritten := make(map[string]string, len(t.aliases))
	keys := make([]string, 0, len(t.aliases))
	for k := range t.aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		from := rewritePrefixes(t.prefixes, k)
		to := rewritePrefixes(t.prefixes, t.aliases[k])
		if from == to {
			continue
		}
		if prev, ok := rewritten[from]; ok && prev != to {
			// An exact key beats one that only matches after prefix rewriting.
			if from != k {
				continue
			}
		}
		rewritten[from] = to
	}

	closed := make(map[string]string, len(rewritten))
	for from := range rewritten {
		seen := map[string]bool{from: true}
		to := rewritten[from]
		for {
			next, ok := rewritten[to]
			if !ok {
				break
			}
			if seen[next] || seen[to] {
				return nil, fmt.Errorf("alias cycle through %q", from)
			}
			seen[to] = true
			to = next
		}
		if to != from {
			closed[from] = to
		}
	}

	d := &Directory{
		prefixes: t.prefixes,
		aliases:  closed,
		goalies:  make(map[string]struct{}, len(t.goalies)),
		teams:    t.teams,
	}
	for name := range t.goalies {
		d.goalies[d.Canonicalize(name)] = struct{}{}
	}
	return d, nil
}
