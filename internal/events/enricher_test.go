package events

import (
	"errors"
	"testing"

	"github.com/fortuna/icetime/internal/hockey"
	. "github.com/smartystreets/goconvey/convey"
)

func id(v int64) *int64 { return &v }
func num(v int) *int    { return &v }

func fixture() (hockey.GameMeta, *hockey.Roster) {
	meta := hockey.GameMeta{
		GameID:   2023020204,
		GameType: hockey.GameRegularSeason,
		HomeTeam: hockey.Team{Abbrev: "BOS"},
		AwayTeam: hockey.Team{Abbrev: "NYR"},
	}
	roster := hockey.NewRoster([]hockey.RosterEntry{
		{PlayerID: 10, FullName: "Charlie Coyle", TeamAbbrev: "BOS", PositionCode: "C", IsHome: true},
		{PlayerID: 11, FullName: "Jeremy Swayman", TeamAbbrev: "BOS", PositionCode: "G", IsHome: true},
		{PlayerID: 20, FullName: "Mika Zibanejad", TeamAbbrev: "NYR", PositionCode: "C"},
		{PlayerID: 21, FullName: "Igor Shesterkin", TeamAbbrev: "NYR", PositionCode: "G"},
		{PlayerID: 22, FullName: "Artemi Panarin", TeamAbbrev: "NYR", PositionCode: "L"},
		{PlayerID: 23, FullName: "Adam Fox", TeamAbbrev: "NYR", PositionCode: "D"},
	})
	return meta, roster
}

func TestRoles(t *testing.T) {
	Convey("Given detail fields for every role", t, func() {
		d := &Details{
			WinningPlayerID: id(1), LosingPlayerID: id(2),
			HittingPlayerID: id(3), HitteePlayerID: id(4),
			ShootingPlayerID: id(5), GoalieInNetID: id(6),
			PlayerID: id(7), BlockingPlayerID: id(8),
			ScoringPlayerID: id(9), Assist1PlayerID: id(10), Assist2PlayerID: id(11),
			CommittedByPlayerID: id(12), DrawnByPlayerID: id(13), ServedByPlayerID: id(14),
		}

		cases := []struct {
			typ        hockey.EventType
			p1, p2, p3 int64
		}{
			{hockey.EventFaceoff, 1, 2, 0},
			{hockey.EventHit, 3, 4, 0},
			{hockey.EventMissedShot, 5, 6, 0},
			{hockey.EventShotOnGoal, 5, 6, 0},
			{hockey.EventFailedShotAttempt, 5, 6, 0},
			{hockey.EventGiveaway, 7, 0, 0},
			{hockey.EventTakeaway, 7, 0, 0},
			{hockey.EventBlockedShot, 5, 8, 0},
			{hockey.EventGoal, 9, 10, 11},
			{hockey.EventPenalty, 12, 13, 14},
			{hockey.EventStoppage, 0, 0, 0},
		}

		deref := func(p *int64) int64 {
			if p == nil {
				return 0
			}
			return *p
		}

		for _, c := range cases {
			p1, p2, p3 := roles(c.typ, d)
			So(deref(p1), ShouldEqual, c.p1)
			So(deref(p2), ShouldEqual, c.p2)
			So(deref(p3), ShouldEqual, c.p3)
		}
	})
}

func TestEnrich(t *testing.T) {
	Convey("Given a short play-by-play", t, func() {
		meta, roster := fixture()
		plays := []Play{
			{
				EventID: 102, SortOrder: 20, TypeDescKey: "goal", TypeCode: 505,
				PeriodDescriptor: PeriodDescriptor{Number: 2, PeriodType: "REG"},
				TimeInPeriod:     "04:10", TimeRemaining: "15:50",
				Details: &Details{
					ScoringPlayerID: id(22), Assist1PlayerID: id(23), GoalieInNetID: id(11),
					XCoord: num(80), YCoord: num(-3), ZoneCode: "O",
					HomeScore: num(0), AwayScore: num(1), ShotType: "wrist",
				},
			},
			{
				EventID: 101, SortOrder: 10, TypeDescKey: "faceoff", TypeCode: 502,
				PeriodDescriptor: PeriodDescriptor{Number: 1, PeriodType: "REG"},
				TimeInPeriod:     "00:00", TimeRemaining: "20:00",
				HomeTeamDefendingSide: "left",
				Details: &Details{
					WinningPlayerID: id(10), LosingPlayerID: id(20),
					XCoord: num(0), YCoord: num(0), ZoneCode: "N",
				},
			},
			{
				EventID: 103, SortOrder: 30, TypeDescKey: "period-end",
				PeriodDescriptor: PeriodDescriptor{Number: 2, PeriodType: "REG"},
				TimeInPeriod:     "20:00", TimeRemaining: "00:00",
			},
			{
				EventID: 104, SortOrder: 40, TypeDescKey: "shot-on-goal",
				PeriodDescriptor: PeriodDescriptor{Number: 5, PeriodType: "SO"},
				TimeInPeriod:     "00:00", TimeRemaining: "00:00",
				Details:          &Details{ShootingPlayerID: id(22), GoalieInNetID: id(11)},
			},
		}

		events, err := Enrich(meta, roster, plays)
		So(err, ShouldBeNil)
		So(events, ShouldHaveLength, 4)

		Convey("Rows come back in sort order", func() {
			So(events[0].EventID, ShouldEqual, 101)
			So(events[1].EventID, ShouldEqual, 102)
		})

		Convey("A faceoff credits winner and loser", func() {
			fo := events[0]
			So(*fo.EventPlayer1ID, ShouldEqual, 10)
			So(*fo.EventPlayer2ID, ShouldEqual, 20)
			So(fo.EventPlayer3ID, ShouldBeNil)
			So(fo.EventPlayer1.FullName, ShouldEqual, "Charlie Coyle")
			So(fo.EventPlayer2.Team, ShouldEqual, "NYR")
			So(*fo.EventTeam, ShouldEqual, "BOS")
			So(*fo.IsHome, ShouldBeTrue)
			So(*fo.ElapsedSeconds, ShouldEqual, 0)
		})

		Convey("A goal credits scorer and assists and the goalie in net", func() {
			g := events[1]
			So(*g.EventPlayer1ID, ShouldEqual, 22)
			So(*g.EventPlayer2ID, ShouldEqual, 23)
			So(g.EventPlayer3ID, ShouldBeNil)
			So(*g.OpposingGoalieID, ShouldEqual, 11)
			So(g.OpposingGoalie.Position, ShouldEqual, "G")
			So(*g.EventTeam, ShouldEqual, "NYR")
			So(*g.IsHome, ShouldBeFalse)
			So(*g.ElapsedSeconds, ShouldEqual, 1450)
			So(*g.AwayScore, ShouldEqual, 1)
			So(g.ShotType, ShouldEqual, "wrist")
		})

		Convey("Events without a player have no team", func() {
			So(events[2].EventTeam, ShouldBeNil)
			So(events[2].IsHome, ShouldBeNil)
		})

		Convey("Shootout events have no elapsed time", func() {
			So(events[3].ElapsedSeconds, ShouldBeNil)
			So(*events[3].EventTeam, ShouldEqual, "NYR")
		})
	})

	Convey("Given a player missing from the roster", t, func() {
		meta, roster := fixture()
		events, err := Enrich(meta, roster, []Play{{
			EventID: 1, TypeDescKey: "hit", TimeInPeriod: "01:00",
			PeriodDescriptor: PeriodDescriptor{Number: 1},
			Details:          &Details{HittingPlayerID: id(999), HitteePlayerID: id(10)},
		}})
		So(err, ShouldBeNil)

		Convey("The id is kept and the roster fields stay empty", func() {
			So(*events[0].EventPlayer1.ID, ShouldEqual, 999)
			So(events[0].EventPlayer1.FullName, ShouldEqual, "")
			So(events[0].EventTeam, ShouldBeNil)
		})
	})

	Convey("Given a malformed clock", t, func() {
		meta, roster := fixture()
		_, err := Enrich(meta, roster, []Play{{EventID: 5, TimeInPeriod: "1-00", PeriodDescriptor: PeriodDescriptor{Number: 1}}})

		Convey("A format error names the game", func() {
			var fe *hockey.FormatError
			So(errors.As(err, &fe), ShouldBeTrue)
			So(fe.GameID, ShouldEqual, meta.GameID)
		})
	})
}
