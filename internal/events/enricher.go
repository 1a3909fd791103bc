package events

import (
	"fmt"
	"sort"

	"github.com/fortuna/icetime/internal/clock"
	"github.com/fortuna/icetime/internal/hockey"
)

// Enrich converts plays into enriched event rows in sort order. On-ice sets
// and strength are left empty for the reconciler.
func Enrich(meta hockey.GameMeta, roster *hockey.Roster, plays []Play) ([]hockey.EnrichedEvent, error) {
	ordered := make([]Play, len(plays))
	copy(ordered, plays)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].SortOrder < ordered[j].SortOrder })

	out := make([]hockey.EnrichedEvent, 0, len(ordered))
	for _, p := range ordered {
		ev, err := enrichOne(meta, roster, p)
		if err != nil {
			return nil, hockey.WithGame(fmt.Errorf("event %d: %w", p.EventID, err), meta.GameID)
		}
		out = append(out, ev)
	}
	return out, nil
}

func enrichOne(meta hockey.GameMeta, roster *hockey.Roster, p Play) (hockey.EnrichedEvent, error) {
	inPeriod, err := clock.ParseClock(p.TimeInPeriod)
	if err != nil {
		return hockey.EnrichedEvent{}, err
	}
	remaining := 0
	if p.TimeRemaining != "" {
		if remaining, err = clock.ParseClock(p.TimeRemaining); err != nil {
			return hockey.EnrichedEvent{}, err
		}
	}

	ev := hockey.Event{
		GameID:                meta.GameID,
		EventID:               p.EventID,
		SortOrder:             p.SortOrder,
		Type:                  hockey.EventType(p.TypeDescKey),
		TypeCode:              p.TypeCode,
		Period:                p.PeriodDescriptor.Number,
		PeriodType:            p.PeriodDescriptor.PeriodType,
		TimeInPeriod:          p.TimeInPeriod,
		TimeRemaining:         p.TimeRemaining,
		TimeInPeriodSeconds:   inPeriod,
		TimeRemainingSeconds:  remaining,
		SituationCode:         p.SituationCode,
		HomeTeamDefendingSide: p.HomeTeamDefendingSide,
	}
	if elapsed, ok := clock.ToElapsed(ev.Period, inPeriod, meta.GameType); ok {
		ev.ElapsedSeconds = &elapsed
	}

	if d := p.Details; d != nil {
		ev.XCoord, ev.YCoord = d.XCoord, d.YCoord
		ev.ZoneCode = d.ZoneCode
		ev.HomeScore, ev.AwayScore = d.HomeScore, d.AwayScore
		ev.HomeSOG, ev.AwaySOG = d.HomeSOG, d.AwaySOG
		ev.ShotType = d.ShotType
		ev.Reason = d.Reason
		ev.SecondaryReason = d.SecondaryReason
		ev.DescKey = d.DescKey
		ev.PenaltyDuration = d.Duration
		ev.OpposingGoalieID = d.GoalieInNetID
	}
	ev.EventPlayer1ID, ev.EventPlayer2ID, ev.EventPlayer3ID = roles(ev.Type, p.Details)

	out := hockey.EnrichedEvent{
		Event:          ev,
		Meta:           meta,
		EventPlayer1:   roster.Ref(ev.EventPlayer1ID),
		EventPlayer2:   roster.Ref(ev.EventPlayer2ID),
		EventPlayer3:   roster.Ref(ev.EventPlayer3ID),
		OpposingGoalie: roster.Ref(ev.OpposingGoalieID),
	}

	if team := out.EventPlayer1.Team; team != "" {
		out.EventTeam = &team
		switch team {
		case meta.HomeTeam.Abbrev:
			home := true
			out.IsHome = &home
		case meta.AwayTeam.Abbrev:
			home := false
			out.IsHome = &home
		}
	}
	return out, nil
}
