package reconciliation

import (
	"testing"

	"github.com/fortuna/icetime/internal/hockey"
	"github.com/fortuna/icetime/internal/identity"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMatcher(t *testing.T) {
	Convey("Given a game between Montreal and Tampa Bay", t, func() {
		m := NewMatcher(identity.MustDefault())
		meta := hockey.GameMeta{
			GameID:   2023020500,
			HomeTeam: hockey.Team{Abbrev: "MTL", Name: "Canadiens"},
			AwayTeam: hockey.Team{Abbrev: "TBL", Name: "Lightning"},
		}

		Convey("Known headings resolve through the team table", func() {
			side, ok := m.SideOf(meta, "MONTREAL CANADIENS")
			So(ok, ShouldBeTrue)
			So(side, ShouldEqual, hockey.Home)

			side, ok = m.SideOf(meta, "CANADIENS MONTREAL")
			So(ok, ShouldBeTrue)
			So(side, ShouldEqual, hockey.Home)

			side, ok = m.SideOf(meta, "TAMPA BAY LIGHTNING")
			So(ok, ShouldBeTrue)
			So(side, ShouldEqual, hockey.Away)
		})

		Convey("Unknown headings fall back to team names", func() {
			side, ok := m.SideOf(meta, "MONTRÃAL CANADIENS")
			So(ok, ShouldBeTrue)
			So(side, ShouldEqual, hockey.Home)
		})

		Convey("A heading for the other side overrides the nominal side", func() {
			side, diag := m.AssignSide(meta, "TAMPA BAY LIGHTNING", hockey.Home)
			So(side, ShouldEqual, hockey.Away)
			So(diag, ShouldNotBeNil)
			So(diag.Kind, ShouldEqual, hockey.DiagUnmappedTeam)
		})

		Convey("A matching heading keeps the nominal side quietly", func() {
			side, diag := m.AssignSide(meta, "MONTREAL CANADIENS", hockey.Home)
			So(side, ShouldEqual, hockey.Home)
			So(diag, ShouldBeNil)
		})

		Convey("An unrelated heading keeps the nominal side with a diagnostic", func() {
			side, diag := m.AssignSide(meta, "QUEBEC NORDIQUES", hockey.Away)
			So(side, ShouldEqual, hockey.Away)
			So(diag, ShouldNotBeNil)
		})
	})
}
