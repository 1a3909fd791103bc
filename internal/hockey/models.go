package hockey

// EventType is the play-by-play typeDescKey.
type EventType string

const (
	EventFaceoff           EventType = "faceoff"
	EventHit               EventType = "hit"
	EventShotOnGoal        EventType = "shot-on-goal"
	EventMissedShot        EventType = "missed-shot"
	EventBlockedShot       EventType = "blocked-shot"
	EventGoal              EventType = "goal"
	EventGiveaway          EventType = "giveaway"
	EventTakeaway          EventType = "takeaway"
	EventPenalty           EventType = "penalty"
	EventFailedShotAttempt EventType = "failed-shot-attempt"
	EventStoppage          EventType = "stoppage"
	EventPeriodStart       EventType = "period-start"
	EventPeriodEnd         EventType = "period-end"
	EventGameEnd           EventType = "game-end"
	EventDelayedPenalty    EventType = "delayed-penalty"
	EventShootoutComplete  EventType = "shootout-complete"
)

// GameType mirrors the API gameType code.
type GameType string

const (
	GamePreseason     GameType = "preseason"
	GameRegularSeason GameType = "regular-season"
	GamePlayoffs      GameType = "playoffs"
)

// GameTypeFromCode maps 1 and 2 to preseason and regular season; every other
// code is treated as playoffs.
func GameTypeFromCode(code int) GameType {
	switch code {
	case 1:
		return GamePreseason
	case 2:
		return GameRegularSeason
	default:
		return GamePlayoffs
	}
}

// Side identifies home or away.
type Side int

const (
	Home Side = iota
	Away
)

// Sides lists both sides in output order.
var Sides = [2]Side{Home, Away}

func (s Side) String() string {
	if s == Home {
		return "home"
	}
	return "away"
}

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == Home {
		return Away
	}
	return Home
}

// SideOf converts an is-home flag into a Side.
func SideOf(isHome bool) Side {
	if isHome {
		return Home
	}
	return Away
}

// ZoneStart classifies how a shift began.
type ZoneStart string

const (
	ZoneOffensive ZoneStart = "OZF"
	ZoneDefensive ZoneStart = "DZF"
	ZoneNeutral   ZoneStart = "NZF"
	OnTheFly      ZoneStart = "OTF"
)

// Team is one side of a game.
type Team struct {
	ID     int    `json:"id"`
	Abbrev string `json:"abbrev"`
	Name   string `json:"name"`
	Logo   string `json:"logo,omitempty"`
}

// GameMeta carries the game-level fields copied onto every event row.
type GameMeta struct {
	GameID       int64    `json:"game_id"`
	Season       int      `json:"season"`
	GameType     GameType `json:"game_type"`
	GameDate     string   `json:"game_date"`
	Venue        string   `json:"venue"`
	StartTimeUTC string   `json:"start_time_utc"`
	HomeTeam     Team     `json:"home_team"`
	AwayTeam     Team     `json:"away_team"`
}

// Team returns the team playing on the given side.
func (m GameMeta) Team(side Side) Team {
	if side == Home {
		return m.HomeTeam
	}
	return m.AwayTeam
}

// Event is one play-by-play row after role extraction.
type Event struct {
	GameID                int64     `json:"game_id"`
	EventID               int64     `json:"event_id"`
	SortOrder             int       `json:"sort_order"`
	Type                  EventType `json:"event"`
	TypeCode              int       `json:"type_code"`
	Period                int       `json:"period"`
	PeriodType            string    `json:"period_type"`
	TimeInPeriod          string    `json:"time_in_period"`
	TimeRemaining         string    `json:"time_remaining"`
	TimeInPeriodSeconds   int       `json:"time_in_period_s"`
	TimeRemainingSeconds  int       `json:"time_remaining_s"`
	ElapsedSeconds        *int      `json:"elapsed_time"`
	SituationCode         string    `json:"situation_code,omitempty"`
	HomeTeamDefendingSide string    `json:"home_team_defending_side,omitempty"`
	ZoneCode              string    `json:"zone_code,omitempty"`
	XCoord                *int      `json:"x_coord"`
	YCoord                *int      `json:"y_coord"`
	ShotType              string    `json:"shot_type,omitempty"`
	Reason                string    `json:"reason,omitempty"`
	SecondaryReason       string    `json:"secondary_reason,omitempty"`
	DescKey               string    `json:"desc_key,omitempty"`
	PenaltyDuration       *int      `json:"penalty_duration"`
	HomeScore             *int      `json:"home_score"`
	AwayScore             *int      `json:"away_score"`
	HomeSOG               *int      `json:"home_sog"`
	AwaySOG               *int      `json:"away_sog"`
	EventPlayer1ID        *int64    `json:"event_player1_id"`
	EventPlayer2ID        *int64    `json:"event_player2_id"`
	EventPlayer3ID        *int64    `json:"event_player3_id"`
	OpposingGoalieID      *int64    `json:"opposing_goalie_id"`
}

// PlayerRef is the roster context attached to an event participant.
type PlayerRef struct {
	ID       *int64 `json:"id"`
	FullName string `json:"full_name,omitempty"`
	Team     string `json:"team,omitempty"`
	Position string `json:"position,omitempty"`
}

// Shift is one continuous ice-time interval for one player.
type Shift struct {
	GameID          int64     `json:"game_id"`
	PlayerID        int64     `json:"player_id"`
	Name            string    `json:"name"`
	Team            string    `json:"team"`
	SweaterNumber   int       `json:"sweater_number"`
	PositionCode    string    `json:"position_code,omitempty"`
	ShiftNumber     int       `json:"shift_number"`
	Period          int       `json:"period"`
	StartSeconds    int       `json:"start_s"`
	EndSeconds      int       `json:"end_s"`
	DurationSeconds int       `json:"duration_s"`
	IsHome          bool      `json:"is_home"`
	IsGoalie        bool      `json:"is_goalie"`
	ZoneStart       ZoneStart `json:"type"`
	Source          string    `json:"source"`
}

// Side returns the side the shift belongs to.
func (s Shift) Side() Side { return SideOf(s.IsHome) }

// Resolved reports whether the shift was matched to a roster player.
func (s Shift) Resolved() bool { return s.PlayerID != 0 }

// OnIcePlayer is one materialized on-ice slot.
type OnIcePlayer struct {
	ID       int64  `json:"id"`
	Name     string `json:"name,omitempty"`
	Position string `json:"position,omitempty"`
}

// MaxOnIceSlots is 6 skaters plus a goaltender.
const MaxOnIceSlots = 7

// OnIceSet is the set of players on the ice for one side at one event.
// Players may hold more than MaxOnIceSlots entries when source shifts overlap;
// Slots never does.
type OnIceSet struct {
	Players []OnIcePlayer `json:"players"`
}

// Slots returns at most MaxOnIceSlots players in matching order.
func (s OnIceSet) Slots() []OnIcePlayer {
	if len(s.Players) > MaxOnIceSlots {
		return s.Players[:MaxOnIceSlots]
	}
	return s.Players
}

// EnrichedEvent is one output row.
type EnrichedEvent struct {
	Event
	Meta           GameMeta     `json:"-"`
	EventPlayer1   PlayerRef    `json:"event_player1"`
	EventPlayer2   PlayerRef    `json:"event_player2"`
	EventPlayer3   PlayerRef    `json:"event_player3"`
	OpposingGoalie PlayerRef    `json:"opposing_goalie"`
	EventTeam      *string      `json:"event_team"`
	IsHome         *bool        `json:"is_home"`
	HomeOn         OnIceSet     `json:"home_on"`
	AwayOn         OnIceSet     `json:"away_on"`
	HomeSkaters    int          `json:"home_skaters"`
	AwaySkaters    int          `json:"away_skaters"`
	Strength       *string      `json:"strength"`
	LowConfidence  bool         `json:"low_confidence,omitempty"`
	Diagnostics    []Diagnostic `json:"diagnostics,omitempty"`
}

// OnIce returns the on-ice set for a side.
func (e *EnrichedEvent) OnIce(side Side) OnIceSet {
	if side == Home {
		return e.HomeOn
	}
	return e.AwayOn
}

// PlayerTOI is seconds on ice for one player at one strength.
type PlayerTOI struct {
	GameID       int64  `json:"game_id"`
	PlayerID     int64  `json:"player_id"`
	FullName     string `json:"full_name"`
	TeamAbbrev   string `json:"team"`
	PositionCode string `json:"position"`
	IsHome       bool   `json:"is_home"`
	Strength     string `json:"strength"`
	Seconds      int    `json:"seconds"`
}

// TeamTOI is seconds played by a team at one strength.
type TeamTOI struct {
	GameID   int64  `json:"game_id"`
	Abbrev   string `json:"abbrev"`
	Name     string `json:"name"`
	IsHome   bool   `json:"is_home"`
	Strength string `json:"strength"`
	Seconds  int    `json:"toi"`
}
