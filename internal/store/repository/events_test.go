package repository

import (
	"testing"

	"github.com/lib/pq"

	"github.com/fortuna/icetime/internal/hockey"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOnIceIDs(t *testing.T) {
	Convey("Every matched player id is stored, beyond the slots too", t, func() {
		set := hockey.OnIceSet{}
		for i := int64(1); i <= 8; i++ {
			set.Players = append(set.Players, hockey.OnIcePlayer{ID: i})
		}
		ids := onIceIDs(set)
		So(ids, ShouldHaveLength, 8)
		So(ids[7], ShouldEqual, 8)

		So(onIceIDs(hockey.OnIceSet{}), ShouldResemble, pq.Int64Array{})
	})
}

func TestNullables(t *testing.T) {
	Convey("Optional values map to SQL nulls", t, func() {
		So(nullInt(nil).Valid, ShouldBeFalse)
		v := 1500
		So(nullInt(&v).Int64, ShouldEqual, 1500)

		So(nullString(nil).Valid, ShouldBeFalse)
		s := "5v4"
		So(nullString(&s).String, ShouldEqual, "5v4")
	})
}
