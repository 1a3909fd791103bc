// Package events extracts player roles from play-by-play entries and joins
// them to the game roster.
package events

import "github.com/fortuna/icetime/internal/hockey"

// PeriodDescriptor identifies the period a play belongs to.
type PeriodDescriptor struct {
	Number     int    `json:"number"`
	PeriodType string `json:"periodType"`
}

// Details holds the type-specific fields of a play. Which player fields are
// set depends on the play type.
type Details struct {
	XCoord           *int   `json:"xCoord,omitempty"`
	YCoord           *int   `json:"yCoord,omitempty"`
	ZoneCode         string `json:"zoneCode,omitempty"`
	EventOwnerTeamID *int   `json:"eventOwnerTeamId,omitempty"`

	WinningPlayerID     *int64 `json:"winningPlayerId,omitempty"`
	LosingPlayerID      *int64 `json:"losingPlayerId,omitempty"`
	HittingPlayerID     *int64 `json:"hittingPlayerId,omitempty"`
	HitteePlayerID      *int64 `json:"hitteePlayerId,omitempty"`
	ShootingPlayerID    *int64 `json:"shootingPlayerId,omitempty"`
	GoalieInNetID       *int64 `json:"goalieInNetId,omitempty"`
	PlayerID            *int64 `json:"playerId,omitempty"`
	BlockingPlayerID    *int64 `json:"blockingPlayerId,omitempty"`
	ScoringPlayerID     *int64 `json:"scoringPlayerId,omitempty"`
	Assist1PlayerID     *int64 `json:"assist1PlayerId,omitempty"`
	Assist2PlayerID     *int64 `json:"assist2PlayerId,omitempty"`
	CommittedByPlayerID *int64 `json:"committedByPlayerId,omitempty"`
	DrawnByPlayerID     *int64 `json:"drawnByPlayerId,omitempty"`
	ServedByPlayerID    *int64 `json:"servedByPlayerId,omitempty"`

	AwayScore *int `json:"awayScore,omitempty"`
	HomeScore *int `json:"homeScore,omitempty"`
	AwaySOG   *int `json:"awaySOG,omitempty"`
	HomeSOG   *int `json:"homeSOG,omitempty"`

	ShotType        string `json:"shotType,omitempty"`
	Reason          string `json:"reason,omitempty"`
	SecondaryReason string `json:"secondaryReason,omitempty"`
	DescKey         string `json:"descKey,omitempty"`
	Duration        *int   `json:"duration,omitempty"`
}

// Play is one entry of the play-by-play "plays" array.
type Play struct {
	EventID               int64            `json:"eventId"`
	PeriodDescriptor      PeriodDescriptor `json:"periodDescriptor"`
	TimeInPeriod          string           `json:"timeInPeriod"`
	TimeRemaining         string           `json:"timeRemaining"`
	SituationCode         string           `json:"situationCode,omitempty"`
	HomeTeamDefendingSide string           `json:"homeTeamDefendingSide,omitempty"`
	TypeCode              int              `json:"typeCode"`
	TypeDescKey           string           `json:"typeDescKey"`
	SortOrder             int              `json:"sortOrder"`
	Details               *Details         `json:"details,omitempty"`
}

// roles returns player1, player2 and player3 for a play type.
func roles(eventType hockey.EventType, d *Details) (p1, p2, p3 *int64) {
	if d == nil {
		return nil, nil, nil
	}
	switch eventType {
	case hockey.EventFaceoff:
		return d.WinningPlayerID, d.LosingPlayerID, nil
	case hockey.EventHit:
		return d.HittingPlayerID, d.HitteePlayerID, nil
	case hockey.EventMissedShot, hockey.EventShotOnGoal, hockey.EventFailedShotAttempt:
		return d.ShootingPlayerID, d.GoalieInNetID, nil
	case hockey.EventGiveaway, hockey.EventTakeaway:
		return d.PlayerID, nil, nil
	case hockey.EventBlockedShot:
		return d.ShootingPlayerID, d.BlockingPlayerID, nil
	case hockey.EventGoal:
		return d.ScoringPlayerID, d.Assist1PlayerID, d.Assist2PlayerID
	case hockey.EventPenalty:
		return d.CommittedByPlayerID, d.DrawnByPlayerID, d.ServedByPlayerID
	}
	return nil, nil, nil
}
