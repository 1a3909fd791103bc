package shifts

import (
	"errors"
	"testing"

	"github.com/fortuna/icetime/internal/hockey"
	"github.com/fortuna/icetime/internal/identity"
	. "github.com/smartystreets/goconvey/convey"
)

func testMeta() hockey.GameMeta {
	return hockey.GameMeta{
		GameID:   2023020001,
		Season:   20232024,
		GameType: hockey.GameRegularSeason,
		HomeTeam: hockey.Team{ID: 8, Abbrev: "MTL", Name: "Canadiens"},
		AwayTeam: hockey.Team{ID: 10, Abbrev: "TOR", Name: "Maple Leafs"},
	}
}

func testRoster() *hockey.Roster {
	return hockey.NewRoster([]hockey.RosterEntry{
		{PlayerID: 1, FullName: "Nick Suzuki", TeamAbbrev: "MTL", PositionCode: "C", SweaterNumber: 14, IsHome: true},
		{PlayerID: 2, FullName: "Samuel Montembeault", TeamAbbrev: "MTL", PositionCode: "G", SweaterNumber: 35, IsHome: true},
		{PlayerID: 3, FullName: "Jake Allen", TeamAbbrev: "MTL", PositionCode: "G", SweaterNumber: 34, IsHome: true},
		{PlayerID: 4, FullName: "Auston Matthews", TeamAbbrev: "TOR", PositionCode: "C", SweaterNumber: 34, IsHome: false},
		{PlayerID: 5, FullName: "Mitch Marner", TeamAbbrev: "TOR", PositionCode: "R", SweaterNumber: 16, IsHome: false},
	})
}

func row(name string, number int, home bool, period, start, end, duration string) RawShift {
	return RawShift{
		Name:          name,
		SweaterNumber: number,
		IsHome:        home,
		ShiftNumber:   "1",
		Period:        period,
		Start:         start,
		End:           end,
		Duration:      duration,
	}
}

func TestFromReport(t *testing.T) {
	Convey("Given a normalizer and a roster", t, func() {
		n := NewNormalizer(identity.MustDefault())
		meta := testMeta()

		Convey("Clock pairs become absolute seconds", func() {
			res, err := n.FromReport(meta, testRoster(), []RawShift{
				row("NICK SUZUKI", 14, true, "2", "5:00 / 15:00", "5:45 / 14:15", "00:45"),
			})
			So(err, ShouldBeNil)
			So(res.Shifts, ShouldHaveLength, 1)

			s := res.Shifts[0]
			So(s.PlayerID, ShouldEqual, 1)
			So(s.Team, ShouldEqual, "MTL")
			So(s.StartSeconds, ShouldEqual, 1500)
			So(s.EndSeconds, ShouldEqual, 1545)
			So(s.DurationSeconds, ShouldEqual, 45)
			So(s.ZoneStart, ShouldEqual, hockey.OnTheFly)
			So(s.Source, ShouldEqual, SourceHTML)
		})

		Convey("OT is period four and a blank end is start plus duration", func() {
			res, err := n.FromReport(meta, testRoster(), []RawShift{
				row("AUSTON MATTHEWS", 34, false, "OT", "1:00 / 4:00", " ", "00:50"),
			})
			So(err, ShouldBeNil)
			So(res.Shifts, ShouldHaveLength, 1)
			So(res.Shifts[0].Period, ShouldEqual, 4)
			So(res.Shifts[0].StartSeconds, ShouldEqual, 3660)
			So(res.Shifts[0].EndSeconds, ShouldEqual, 3710)
		})

		Convey("An end before the start runs to the end of the period", func() {
			res, err := n.FromReport(meta, testRoster(), []RawShift{
				row("AUSTON MATTHEWS", 34, false, "1", "19:30 / 0:30", "0:00 / 20:00", "00:30"),
			})
			So(err, ShouldBeNil)
			So(res.Shifts[0].EndSeconds, ShouldEqual, 1200)
		})

		Convey("Zero length shifts are discarded", func() {
			res, err := n.FromReport(meta, testRoster(), []RawShift{
				row("AUSTON MATTHEWS", 34, false, "1", "3:00 / 17:00", "3:00 / 17:00", "00:00"),
			})
			So(err, ShouldBeNil)
			So(res.Shifts, ShouldBeEmpty)
		})

		Convey("Names resolve through aliases when the number misses", func() {
			res, err := n.FromReport(meta, testRoster(), []RawShift{
				row("MITCHELL MARNER", 99, false, "1", "3:00 / 17:00", "3:40 / 16:20", "00:40"),
			})
			So(err, ShouldBeNil)
			So(res.Shifts[0].PlayerID, ShouldEqual, 5)
			So(res.Shifts[0].Name, ShouldEqual, "Mitch Marner")
		})

		Convey("Unknown players are kept unresolved with a diagnostic", func() {
			res, err := n.FromReport(meta, testRoster(), []RawShift{
				row("SOMEBODY ELSE", 77, false, "1", "3:00 / 17:00", "3:40 / 16:20", "00:40"),
			})
			So(err, ShouldBeNil)
			So(res.Shifts[0].Resolved(), ShouldBeFalse)
			So(kinds(res.Diagnostics), ShouldContain, hockey.DiagUnknownPlayer)
		})

		Convey("A malformed clock fails the game with context", func() {
			_, err := n.FromReport(meta, testRoster(), []RawShift{
				row("NICK SUZUKI", 14, true, "1", "abc / 20:00", "0:40 / 19:20", "00:40"),
			})
			So(err, ShouldNotBeNil)

			var fe *hockey.FormatError
			So(errors.As(err, &fe), ShouldBeTrue)
			So(fe.GameID, ShouldEqual, meta.GameID)
		})
	})
}

func TestGoalieBoundaries(t *testing.T) {
	Convey("Given goalie shift records in a period", t, func() {
		n := NewNormalizer(identity.MustDefault())
		meta := testMeta()

		Convey("A lone goalie record starting at 5:00 is reset to 0:00", func() {
			res, err := n.FromReport(meta, testRoster(), []RawShift{
				row("SAMUEL MONTEMBEAULT", 35, true, "1", "5:00 / 15:00", "20:00 / 0:00", "15:00"),
			})
			So(err, ShouldBeNil)
			So(res.Shifts[0].StartSeconds, ShouldEqual, 0)
			So(res.Shifts[0].EndSeconds, ShouldEqual, 1200)
			So(kinds(res.Diagnostics), ShouldContain, hockey.DiagGoalieFix)
		})

		Convey("A lone goalie record ending early runs to the end of the period", func() {
			res, err := n.FromReport(meta, testRoster(), []RawShift{
				row("SAMUEL MONTEMBEAULT", 35, true, "2", "0:00 / 20:00", "12:00 / 8:00", "12:00"),
			})
			So(err, ShouldBeNil)
			So(res.Shifts[0].StartSeconds, ShouldEqual, 1200)
			So(res.Shifts[0].EndSeconds, ShouldEqual, 2400)
		})

		Convey("Two goalie records disable the correction", func() {
			res, err := n.FromReport(meta, testRoster(), []RawShift{
				row("SAMUEL MONTEMBEAULT", 35, true, "1", "0:00 / 20:00", "10:00 / 10:00", "10:00"),
				row("JAKE ALLEN", 34, true, "1", "10:00 / 10:00", "20:00 / 0:00", "10:00"),
			})
			So(err, ShouldBeNil)
			So(res.Shifts, ShouldHaveLength, 2)
			So(res.Shifts[0].EndSeconds, ShouldEqual, 600)
			So(res.Shifts[1].StartSeconds, ShouldEqual, 600)
			So(kinds(res.Diagnostics), ShouldNotContain, hockey.DiagGoalieFix)
		})

		Convey("Overtime starts are reset but ends are kept", func() {
			res, err := n.FromReport(meta, testRoster(), []RawShift{
				row("SAMUEL MONTEMBEAULT", 35, true, "OT", "0:30 / 4:30", "2:10 / 2:50", "01:40"),
			})
			So(err, ShouldBeNil)
			So(res.Shifts[0].StartSeconds, ShouldEqual, 3600)
			So(res.Shifts[0].EndSeconds, ShouldEqual, 3730)
		})

		Convey("A late third period record runs to the end of the period", func() {
			res, err := n.FromReport(meta, testRoster(), []RawShift{
				row("SAMUEL MONTEMBEAULT", 35, true, "3", "14:00 / 6:00", "18:30 / 1:30", "04:30"),
			})
			So(err, ShouldBeNil)
			So(res.Shifts[0].StartSeconds, ShouldEqual, 2400)
			So(res.Shifts[0].EndSeconds, ShouldEqual, 3600)
		})

		Convey("A record starting after the cutoff is still extended", func() {
			res, err := n.FromReport(meta, testRoster(), []RawShift{
				row("SAMUEL MONTEMBEAULT", 35, true, "1", "19:00 / 1:00", "19:40 / 0:20", "00:40"),
			})
			So(err, ShouldBeNil)
			So(res.Shifts[0].StartSeconds, ShouldEqual, 0)
			So(res.Shifts[0].EndSeconds, ShouldEqual, 1200)
			So(kinds(res.Diagnostics), ShouldContain, hockey.DiagGoalieFix)
		})

		Convey("Skaters are never adjusted", func() {
			res, err := n.FromReport(meta, testRoster(), []RawShift{
				row("NICK SUZUKI", 14, true, "1", "5:00 / 15:00", "5:40 / 14:20", "00:40"),
			})
			So(err, ShouldBeNil)
			So(res.Shifts[0].StartSeconds, ShouldEqual, 300)
		})
	})
}

func TestFromAPI(t *testing.T) {
	Convey("Given shift chart records", t, func() {
		n := NewNormalizer(identity.MustDefault())
		meta := testMeta()
		dur := "00:45"
		zero := "00:00"

		res, err := n.FromAPI(meta, testRoster(), []APIRecord{
			{PlayerID: 1, FirstName: "Nick", LastName: "Suzuki", TeamAbbrev: "MTL ", Period: 1, StartTime: "00:00", EndTime: "00:45", Duration: &dur},
			{PlayerID: 4, FirstName: "Auston", LastName: "Matthews", TeamAbbrev: "TOR", Period: 2, StartTime: "01:00", EndTime: "01:45", Duration: &dur},
			{PlayerID: 5, FirstName: "Mitch", LastName: "Marner", TeamAbbrev: "TOR", Period: 1, StartTime: "02:00", EndTime: "02:00", Duration: &zero},
			{PlayerID: 5, FirstName: "Mitch", LastName: "Marner", TeamAbbrev: "TOR", Period: 1, StartTime: "02:00", EndTime: "02:30", Duration: nil},
			{PlayerID: 99, FirstName: "Call", LastName: "Up", TeamAbbrev: "TOR", Period: 1, StartTime: "03:00", EndTime: "03:30", Duration: &dur},
		})
		So(err, ShouldBeNil)

		Convey("Null and zero durations are dropped", func() {
			So(res.Shifts, ShouldHaveLength, 3)
		})

		Convey("Side comes from the trimmed team abbreviation", func() {
			So(res.Shifts[0].PlayerID, ShouldEqual, 1)
			So(res.Shifts[0].IsHome, ShouldBeTrue)
			So(res.Shifts[0].Team, ShouldEqual, "MTL")
			So(res.Shifts[2].IsHome, ShouldBeFalse)
			So(res.Shifts[2].StartSeconds, ShouldEqual, 1260)
		})

		Convey("Players missing from the roster are reported", func() {
			So(kinds(res.Diagnostics), ShouldContain, hockey.DiagUnknownPlayer)
		})
	})
}

func TestDetectOverlaps(t *testing.T) {
	Convey("Given shifts for one player", t, func() {
		base := hockey.Shift{GameID: 1, PlayerID: 7, Name: "X", Period: 1}
		a, b, c := base, base, base
		a.StartSeconds, a.EndSeconds = 0, 60
		b.StartSeconds, b.EndSeconds = 50, 90
		c.StartSeconds, c.EndSeconds = 90, 120

		Convey("Overlapping intervals are reported", func() {
			diags := DetectOverlaps([]hockey.Shift{c, b, a})
			So(diags, ShouldHaveLength, 1)
			So(diags[0].Kind, ShouldEqual, hockey.DiagOverlapShift)
		})

		Convey("Back to back intervals are not", func() {
			So(DetectOverlaps([]hockey.Shift{a, c}), ShouldBeEmpty)
		})
	})
}

func kinds(diags []hockey.Diagnostic) []hockey.DiagnosticKind {
	out := make([]hockey.DiagnosticKind, len(diags))
	for i, d := range diags {
		out[i] = d.Kind
	}
	return out
}
