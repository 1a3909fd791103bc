// Package export flattens reconciled games into tabular files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/fortuna/icetime/internal/hockey"
)

var eventColumns = []string{
	"game_id", "season", "game_type", "game_date", "venue", "home_abbr", "away_abbr",
	"event_id", "sort_order", "period", "period_type", "time_in_period", "time_remaining", "elapsed_time",
	"event", "type_code", "situation_code", "zone_code", "x_coord", "y_coord",
	"shot_type", "reason", "secondary_reason", "desc_key", "penalty_duration",
	"home_score", "away_score", "home_sog", "away_sog",
	"event_team", "is_home",
}

var playerRoles = []string{"event_player1", "event_player2", "event_player3", "opposing_goalie"}

var tailColumns = []string{"home_skaters", "away_skaters", "strength", "low_confidence"}

// EventHeader returns the column names of an event export. On-ice slots are
// always materialized as seven id, name and position columns per side.
func EventHeader() []string {
	header := append([]string{}, eventColumns...)
	for _, role := range playerRoles {
		header = append(header, role+"_id", role+"_name", role+"_team", role+"_position")
	}
	header = append(header, tailColumns...)
	for _, side := range hockey.Sides {
		for _, field := range []string{"id", "name", "position"} {
			for slot := 1; slot <= hockey.MaxOnIceSlots; slot++ {
				header = append(header, fmt.Sprintf("%s_on_%s_%d", side, field, slot))
			}
		}
	}
	return header
}

// EventRecord flattens one enriched event in EventHeader order.
func EventRecord(ev hockey.EnrichedEvent) []string {
	meta := ev.Meta
	rec := []string{
		strconv.FormatInt(ev.GameID, 10), intOrBlank(meta.Season), string(meta.GameType), meta.GameDate, meta.Venue,
		meta.HomeTeam.Abbrev, meta.AwayTeam.Abbrev,
		strconv.FormatInt(ev.EventID, 10), strconv.Itoa(ev.SortOrder), strconv.Itoa(ev.Period), ev.PeriodType,
		ev.TimeInPeriod, ev.TimeRemaining, ptrInt(ev.ElapsedSeconds),
		string(ev.Type), strconv.Itoa(ev.TypeCode), ev.SituationCode, ev.ZoneCode, ptrInt(ev.XCoord), ptrInt(ev.YCoord),
		ev.ShotType, ev.Reason, ev.SecondaryReason, ev.DescKey, ptrInt(ev.PenaltyDuration),
		ptrInt(ev.HomeScore), ptrInt(ev.AwayScore), ptrInt(ev.HomeSOG), ptrInt(ev.AwaySOG),
		ptrString(ev.EventTeam), ptrBool(ev.IsHome),
	}
	for _, ref := range []hockey.PlayerRef{ev.EventPlayer1, ev.EventPlayer2, ev.EventPlayer3, ev.OpposingGoalie} {
		rec = append(rec, ptrInt64(ref.ID), ref.FullName, ref.Team, ref.Position)
	}
	rec = append(rec,
		strconv.Itoa(ev.HomeSkaters), strconv.Itoa(ev.AwaySkaters), ptrString(ev.Strength),
		strconv.FormatBool(ev.LowConfidence))

	for _, side := range hockey.Sides {
		slots := ev.OnIce(side).Slots()
		ids := make([]string, hockey.MaxOnIceSlots)
		names := make([]string, hockey.MaxOnIceSlots)
		positions := make([]string, hockey.MaxOnIceSlots)
		for i, p := range slots {
			ids[i] = strconv.FormatInt(p.ID, 10)
			names[i] = p.Name
			positions[i] = p.Position
		}
		rec = append(rec, ids...)
		rec = append(rec, names...)
		rec = append(rec, positions...)
	}
	return rec
}

// WriteEvents writes a header and one row per event.
func WriteEvents(w io.Writer, events []hockey.EnrichedEvent) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(EventHeader()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, ev := range events {
		if err := cw.Write(EventRecord(ev)); err != nil {
			return fmt.Errorf("writing event %d: %w", ev.EventID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePlayerTOI writes per-player time on ice rows.
func WritePlayerTOI(w io.Writer, rows []hockey.PlayerTOI) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"game_id", "player_id", "full_name", "team", "position", "is_home", "strength", "seconds"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range rows {
		err := cw.Write([]string{
			strconv.FormatInt(r.GameID, 10), strconv.FormatInt(r.PlayerID, 10), r.FullName, r.TeamAbbrev,
			r.PositionCode, strconv.FormatBool(r.IsHome), r.Strength, strconv.Itoa(r.Seconds),
		})
		if err != nil {
			return fmt.Errorf("writing player %d: %w", r.PlayerID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func intOrBlank(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func ptrInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func ptrInt64(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func ptrString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func ptrBool(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}
