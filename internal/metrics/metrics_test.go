package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/fortuna/icetime/internal/hockey"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRecorder(t *testing.T) {
	Convey("Given a fresh recorder", t, func() {
		r := NewRecorder()

		Convey("Game outcomes are counted by source", func() {
			r.ObserveGame(OutcomeOK, "html", time.Second)
			r.ObserveGame(OutcomeOK, "html", 2*time.Second)
			r.ObserveGame(OutcomeNoData, "api", 0)

			So(testutil.ToFloat64(r.gamesReconciled.WithLabelValues(OutcomeOK, "html")), ShouldEqual, 2)
			So(testutil.ToFloat64(r.gamesReconciled.WithLabelValues(OutcomeNoData, "api")), ShouldEqual, 1)
		})

		Convey("Diagnostics are counted by kind", func() {
			r.ObserveResult(300, []hockey.Diagnostic{
				{Kind: hockey.DiagOverlapShift},
				{Kind: hockey.DiagOverlapShift},
				{Kind: hockey.DiagTooManyOnIce},
			})
			So(testutil.ToFloat64(r.eventsEnriched), ShouldEqual, 300)
			So(testutil.ToFloat64(r.diagnostics.WithLabelValues(string(hockey.DiagOverlapShift))), ShouldEqual, 2)
		})

		Convey("Fetches and cache lookups are split by result", func() {
			r.ObserveFetch("pbp", nil)
			r.ObserveFetch("pbp", errors.New("boom"))
			r.ObserveCache("pbp", true)
			So(testutil.ToFloat64(r.upstreamFetches.WithLabelValues("pbp", "error")), ShouldEqual, 1)
			So(testutil.ToFloat64(r.cacheLookups.WithLabelValues("pbp", "hit")), ShouldEqual, 1)
		})

		Convey("Running backfills are tracked", func() {
			r.BackfillStarted()
			r.BackfillStarted()
			r.BackfillFinished()
			So(testutil.ToFloat64(r.backfillActive), ShouldEqual, 1)
		})

		Convey("The handler exposes the registry", func() {
			r.ObserveHTTP("GET", "/health", 200, time.Millisecond)
			rec := httptest.NewRecorder()
			r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
			So(rec.Code, ShouldEqual, 200)
			So(rec.Body.String(), ShouldContainSubstring, "icetime_http_requests_total")
		})
	})
}
