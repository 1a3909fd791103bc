package hockey

import (
	"errors"
	"fmt"
)

// ErrNoData is returned when a game has no shift report published, e.g.
// preseason or all-star formats. Callers skip the game.
var ErrNoData = errors.New("no shift data available")

// FormatError reports malformed input that prevents processing a game.
type FormatError struct {
	GameID int64
	Field  string
	Value  string
	Err    error
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("format error in %s %q", e.Field, e.Value)
	if e.GameID != 0 {
		msg = fmt.Sprintf("game %d: %s", e.GameID, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

// WithGame returns a copy of err annotated with a game id when err is a
// FormatError without one. Other errors are returned unchanged.
func WithGame(err error, gameID int64) error {
	var fe *FormatError
	if errors.As(err, &fe) && fe.GameID == 0 {
		cpy := *fe
		cpy.GameID = gameID
		return &cpy
	}
	return err
}

// DiagnosticKind enumerates non-fatal findings.
type DiagnosticKind string

const (
	// Data anomalies.
	DiagTooManyOnIce   DiagnosticKind = "too_many_on_ice"
	DiagSkaterOverflow DiagnosticKind = "skater_overflow"
	DiagOverlapShift   DiagnosticKind = "overlapping_shift"
	DiagUnmappedTeam   DiagnosticKind = "unmapped_team"
	DiagGoalieFix      DiagnosticKind = "goalie_boundary_fix"

	// Lookup misses.
	DiagUnknownPlayer DiagnosticKind = "unknown_player"
)

// Diagnostic is a warning attached to a row or a game.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	GameID  int64          `json:"game_id"`
	EventID int64          `json:"event_id,omitempty"`
	Message string         `json:"message"`
}

func (d Diagnostic) String() string {
	if d.EventID != 0 {
		return fmt.Sprintf("[%s] game %d event %d: %s", d.Kind, d.GameID, d.EventID, d.Message)
	}
	return fmt.Sprintf("[%s] game %d: %s", d.Kind, d.GameID, d.Message)
}
