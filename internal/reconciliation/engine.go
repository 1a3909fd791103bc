package reconciliation

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fortuna/icetime/internal/hockey"
	"github.com/fortuna/icetime/internal/shifts"
)

// Engine reconciles play-by-play events with shift timelines
type Engine struct {
	logger *slog.Logger

	mu      sync.Mutex
	metrics *Metrics
}

// Metrics tracks reconciliation statistics
type Metrics struct {
	TotalReconciliations int
	EventsProcessed      int
	TooManyOnIce         int
	SkaterOverflows      int
	OverlappingShifts    int
	LowConfidenceEvents  int
	LastReconciliation   time.Time
}

// Input is everything the engine needs for one game.
type Input struct {
	Meta        hockey.GameMeta
	Roster      *hockey.Roster
	Events      []hockey.EnrichedEvent
	Shifts      []hockey.Shift
	Diagnostics []hockey.Diagnostic
}

// GameResult is the reconciled output for one game.
type GameResult struct {
	Meta        hockey.GameMeta        `json:"game"`
	Events      []hockey.EnrichedEvent `json:"events"`
	Shifts      []hockey.Shift         `json:"shifts"`
	PlayerTOI   []hockey.PlayerTOI     `json:"player_toi"`
	TeamTOI     []hockey.TeamTOI       `json:"team_toi"`
	Diagnostics []hockey.Diagnostic    `json:"diagnostics,omitempty"`
}

// NewEngine creates a new reconciliation engine
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger:  logger.With("component", "reconciliation"),
		metrics: &Metrics{LastReconciliation: time.Now()},
	}
}

// ReconcileGame attaches on-ice sets and strength to every event and derives
// zone starts and time on ice. The input is not modified.
func (e *Engine) ReconcileGame(in Input) (*GameResult, error) {
	if in.Roster == nil {
		return nil, errors.New("roster is required")
	}
	if in.Meta.HomeTeam.Abbrev == "" || in.Meta.AwayTeam.Abbrev == "" {
		return nil, &hockey.FormatError{GameID: in.Meta.GameID, Field: "teams", Err: errors.New("missing home or away abbreviation")}
	}

	result := &GameResult{Meta: in.Meta}
	result.Diagnostics = append(result.Diagnostics, in.Diagnostics...)

	playable := shifts.Playable(in.Shifts)
	overlaps := shifts.DetectOverlaps(playable)
	result.Diagnostics = append(result.Diagnostics, overlaps...)

	events := make([]hockey.EnrichedEvent, len(in.Events))
	copy(events, in.Events)

	result.Shifts = AssignZoneStarts(playable, events)

	home := newSideIndex(result.Shifts, hockey.Home)
	away := newSideIndex(result.Shifts, hockey.Away)

	var tooMany, overflow, lowConf int
	for i := range events {
		ev := &events[i]
		ev.Meta = in.Meta
		ev.Diagnostics = nil

		matchDiags := matchEvent(ev, home, away, in.Roster)
		strengthDiags := applyStrength(ev)
		tooMany += len(matchDiags)
		overflow += len(strengthDiags)
		if ev.LowConfidence {
			lowConf++
		}

		if n := len(matchDiags) + len(strengthDiags); n > 0 {
			ev.Diagnostics = make([]hockey.Diagnostic, 0, n)
			ev.Diagnostics = append(ev.Diagnostics, matchDiags...)
			ev.Diagnostics = append(ev.Diagnostics, strengthDiags...)
			result.Diagnostics = append(result.Diagnostics, ev.Diagnostics...)
		}
	}
	result.Events = events

	result.PlayerTOI = PlayerTOI(in.Meta, in.Roster, result.Shifts)
	result.TeamTOI = TeamTOI(in.Meta, in.Roster, result.Shifts)

	e.mu.Lock()
	e.metrics.TotalReconciliations++
	e.metrics.EventsProcessed += len(events)
	e.metrics.TooManyOnIce += tooMany
	e.metrics.SkaterOverflows += overflow
	e.metrics.OverlappingShifts += len(overlaps)
	e.metrics.LowConfidenceEvents += lowConf
	e.metrics.LastReconciliation = time.Now()
	e.mu.Unlock()

	if tooMany > 0 || len(overlaps) > 0 {
		e.logger.Warn("shift data anomalies",
			"game_id", in.Meta.GameID,
			"too_many_on_ice", tooMany,
			"overlapping_shifts", len(overlaps))
	}
	e.logger.Debug("reconciled game",
		"game_id", in.Meta.GameID,
		"events", len(events),
		"shifts", len(result.Shifts),
		"diagnostics", len(result.Diagnostics))

	return result, nil
}

// GetMetrics returns a snapshot of the reconciliation metrics
func (e *Engine) GetMetrics() Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.metrics
}

// ResetMetrics clears all metrics
func (e *Engine) ResetMetrics() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = &Metrics{LastReconciliation: time.Now()}
}

// Summary renders the metrics the way the service logs them.
func (m Metrics) Summary() string {
	return fmt.Sprintf("games=%d events=%d too_many_on_ice=%d skater_overflow=%d overlaps=%d low_confidence=%d",
		m.TotalReconciliations, m.EventsProcessed, m.TooManyOnIce,
		m.SkaterOverflows, m.OverlappingShifts, m.LowConfidenceEvents)
}
