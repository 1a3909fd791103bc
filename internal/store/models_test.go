package store

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/fortuna/icetime/internal/hockey"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewGame(t *testing.T) {
	Convey("Given a reconciled game's metadata", t, func() {
		meta := hockey.GameMeta{
			GameID:       2023020001,
			Season:       20232024,
			GameType:     hockey.GameRegularSeason,
			GameDate:     "2023-10-10",
			Venue:        "Bell Centre",
			StartTimeUTC: "2023-10-10T23:00:00Z",
			HomeTeam:     hockey.Team{ID: 8, Abbrev: "MTL"},
			AwayTeam:     hockey.Team{ID: 10, Abbrev: "TOR"},
		}

		Convey("The row carries dates, teams and counts", func() {
			g, err := NewGame(meta, "html", 300, 700, nil)
			So(err, ShouldBeNil)
			So(g.GameDate.Format("2006-01-02"), ShouldEqual, "2023-10-10")
			So(g.StartTimeUTC.Valid, ShouldBeTrue)
			So(g.Venue.String, ShouldEqual, "Bell Centre")
			So(g.HomeTeamID, ShouldEqual, 8)
			So(g.AwayAbbrev, ShouldEqual, "TOR")
			So(g.EventCount, ShouldEqual, 300)
			So(string(g.Diagnostics), ShouldEqual, "[]")
		})

		Convey("Diagnostics are stored as JSON", func() {
			g, err := NewGame(meta, "api", 0, 0, []hockey.Diagnostic{{Kind: hockey.DiagOverlapShift, GameID: meta.GameID}})
			So(err, ShouldBeNil)

			var diags []hockey.Diagnostic
			So(json.Unmarshal(g.Diagnostics, &diags), ShouldBeNil)
			So(diags, ShouldHaveLength, 1)
			So(diags[0].Kind, ShouldEqual, hockey.DiagOverlapShift)
		})

		Convey("A malformed date is a format error", func() {
			meta.GameDate = "10/10/2023"
			_, err := NewGame(meta, "html", 0, 0, nil)
			var fe *hockey.FormatError
			So(errors.As(err, &fe), ShouldBeTrue)
			So(fe.Field, ShouldEqual, "game_date")
		})
	})
}

func TestMigrationNames(t *testing.T) {
	Convey("Embedded migrations are listed in order", t, func() {
		names, err := MigrationNames()
		So(err, ShouldBeNil)
		So(names, ShouldResemble, []string{
			"migrations/001_create_games.sql",
			"migrations/002_create_events.sql",
			"migrations/003_create_toi.sql",
			"migrations/004_create_backfill_jobs.sql",
		})
	})
}
