package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/fortuna/icetime/internal/hockey"
	. "github.com/smartystreets/goconvey/convey"
)

func column(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func TestEventExport(t *testing.T) {
	Convey("Given an event with eight home players on the ice", t, func() {
		team, strength, home := "MTL", "5v5", true
		elapsed := 30
		goalie := int64(8479361)
		ev := hockey.EnrichedEvent{
			Event: hockey.Event{GameID: 2023020001, EventID: 7, Period: 1, Type: hockey.EventShotOnGoal, ElapsedSeconds: &elapsed},
			Meta: hockey.GameMeta{Season: 20232024, GameDate: "2023-10-11",
				HomeTeam: hockey.Team{Abbrev: "MTL"}, AwayTeam: hockey.Team{Abbrev: "TOR"}},
			OpposingGoalie: hockey.PlayerRef{ID: &goalie, FullName: "Joseph Woll", Team: "TOR", Position: "G"},
			EventTeam:      &team,
			IsHome:         &home,
			Strength:       &strength,
			HomeSkaters:    5,
			AwaySkaters:    5,
		}
		for i := int64(1); i <= 8; i++ {
			ev.HomeOn.Players = append(ev.HomeOn.Players, hockey.OnIcePlayer{ID: i, Name: "P", Position: "C"})
		}

		header := EventHeader()
		rec := EventRecord(ev)

		Convey("Every row matches the header width", func() {
			So(rec, ShouldHaveLength, len(header))
			So(column(header, "home_on_id_7"), ShouldBeGreaterThan, 0)
			So(column(header, "home_on_id_8"), ShouldEqual, -1)
			So(column(header, "away_on_position_7"), ShouldEqual, len(header)-1)
		})

		Convey("Only seven slots are written and empty slots are blank", func() {
			So(rec[column(header, "home_on_id_7")], ShouldEqual, "7")
			So(rec[column(header, "away_on_id_1")], ShouldEqual, "")
		})

		Convey("Nullable fields are blank when absent", func() {
			So(rec[column(header, "elapsed_time")], ShouldEqual, "30")
			So(rec[column(header, "x_coord")], ShouldEqual, "")
			So(rec[column(header, "event_player1_id")], ShouldEqual, "")
			So(rec[column(header, "opposing_goalie_name")], ShouldEqual, "Joseph Woll")
			So(rec[column(header, "strength")], ShouldEqual, "5v5")
			So(rec[column(header, "home_abbr")], ShouldEqual, "MTL")
		})

		Convey("The writer emits a readable file", func() {
			var buf bytes.Buffer
			So(WriteEvents(&buf, []hockey.EnrichedEvent{ev, ev}), ShouldBeNil)

			rows, err := csv.NewReader(&buf).ReadAll()
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 3)
			So(rows[0][0], ShouldEqual, "game_id")
		})
	})
}

func TestPlayerTOIExport(t *testing.T) {
	Convey("Player time on ice rows are written with a header", t, func() {
		var buf bytes.Buffer
		err := WritePlayerTOI(&buf, []hockey.PlayerTOI{
			{GameID: 2023020001, PlayerID: 8480018, FullName: "Nick Suzuki", TeamAbbrev: "MTL", IsHome: true, Strength: "5v4", Seconds: 95},
		})
		So(err, ShouldBeNil)
		So(buf.String(), ShouldEqual, "game_id,player_id,full_name,team,position,is_home,strength,seconds\n"+
			"2023020001,8480018,Nick Suzuki,MTL,,true,5v4,95\n")
	})
}
