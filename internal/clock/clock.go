// Package clock converts between "M:SS" period clocks and absolute elapsed
// game seconds.
package clock

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fortuna/icetime/internal/hockey"
)

const (
	// PeriodLength is the length of a regulation period in seconds.
	PeriodLength = 20 * 60

	// RegulationPeriods is the number of regulation periods.
	RegulationPeriods = 3

	// OvertimePeriod is the period number used for an "OT" label.
	OvertimePeriod = RegulationPeriods + 1

	// ShootoutPeriod is the period number used for an "SO" label.
	ShootoutPeriod = OvertimePeriod + 1
)

var errClockParts = errors.New("expected M:SS")

// ParseClock converts "M:SS" into seconds.
func ParseClock(text string) (int, error) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) != 2 {
		return 0, &hockey.FormatError{Field: "clock", Value: text, Err: errClockParts}
	}

	minutes, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || minutes < 0 {
		return 0, &hockey.FormatError{Field: "clock", Value: text, Err: errClockParts}
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || seconds < 0 || seconds > 59 {
		return 0, &hockey.FormatError{Field: "clock", Value: text, Err: errClockParts}
	}

	return minutes*60 + seconds, nil
}

// FormatClock renders seconds as "M:SS".
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// ToElapsed converts a period and seconds into the period into elapsed game
// seconds. Periods past overtime outside the playoffs are shootouts and have
// no defined elapsed time.
func ToElapsed(period, secondsInPeriod int, gameType hockey.GameType) (int, bool) {
	if period < 1 {
		return 0, false
	}
	if period >= ShootoutPeriod && gameType != hockey.GamePlayoffs {
		return 0, false
	}
	return PeriodStart(period) + secondsInPeriod, true
}

// PeriodStart returns the elapsed seconds at which a period begins.
func PeriodStart(period int) int {
	if period < 1 {
		return 0
	}
	return PeriodLength * (period - 1)
}

// ParsePeriodLabel reads a report period column: integers, "OT" or "SO".
func ParsePeriodLabel(label string) (int, error) {
	label = strings.ToUpper(strings.TrimSpace(label))
	switch label {
	case "OT":
		return OvertimePeriod, nil
	case "SO":
		return ShootoutPeriod, nil
	}

	period, err := strconv.Atoi(label)
	if err != nil || period < 1 {
		return 0, &hockey.FormatError{Field: "period", Value: label, Err: errors.New("expected period number, OT or SO")}
	}
	return period, nil
}

// ClockPair extracts the elapsed half of a legacy report clock such as
// "5:00 / 15:00". Blank and non-breaking-space cells report ok=false.
func ClockPair(text string) (string, bool) {
	elapsed, _, _ := strings.Cut(text, "/")
	elapsed = strings.TrimSpace(strings.ReplaceAll(elapsed, "\u00a0", " "))
	if elapsed == "" {
		return "", false
	}
	return elapsed, true
}
