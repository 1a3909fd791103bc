package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fortuna/icetime/internal/backfill"
	"github.com/fortuna/icetime/internal/ingest/nhl"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeSchedules map[string]*nhl.Schedule

func (f fakeSchedules) FetchSchedule(ctx context.Context, team string, season int) (*nhl.Schedule, error) {
	if s, ok := f[team]; ok {
		return s, nil
	}
	return nil, errors.New("unknown team")
}

type fakeEnqueuer struct {
	requests []backfill.Request
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, req backfill.Request) (*backfill.Job, error) {
	f.requests = append(f.requests, req)
	return &backfill.Job{JobID: "job-1", GameIDs: req.GameIDs}, nil
}

func game(id int64, date, state string) nhl.ScheduleGame {
	return nhl.ScheduleGame{ID: id, GameType: 2, GameDate: date, GameState: state}
}

func TestSeasonFor(t *testing.T) {
	Convey("Seasons roll over in September", t, func() {
		So(SeasonFor(time.Date(2023, time.October, 10, 0, 0, 0, 0, time.UTC)), ShouldEqual, 20232024)
		So(SeasonFor(time.Date(2024, time.April, 18, 0, 0, 0, 0, time.UTC)), ShouldEqual, 20232024)
		So(SeasonFor(time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC)), ShouldEqual, 20242025)
	})
}

func TestOrchestrator(t *testing.T) {
	Convey("Given an orchestrator following two teams", t, func() {
		schedules := fakeSchedules{
			"MTL": {Games: []nhl.ScheduleGame{
				game(2023020001, "2023-10-10", nhl.StateOff),
				game(2023020020, "2023-10-12", nhl.StateOff),
			}},
			"TOR": {Games: []nhl.ScheduleGame{
				game(2023020001, "2023-10-10", nhl.StateFinal),
				game(2023020005, "2023-10-11", nhl.StateOff),
			}},
		}
		jobs := &fakeEnqueuer{}
		cfg := DefaultConfig()
		cfg.Teams = []string{"MTL", "TOR"}
		cfg.Source = "api"
		o, err := NewOrchestrator(schedules, jobs, cfg, nil)
		So(err, ShouldBeNil)
		ctx := context.Background()

		Convey("Finished games of the day are queued once", func() {
			job, err := o.TriggerIngestion(ctx, time.Date(2023, time.October, 10, 0, 0, 0, 0, time.UTC))
			So(err, ShouldBeNil)
			So(job, ShouldNotBeNil)
			So(jobs.requests, ShouldHaveLength, 1)
			So(jobs.requests[0].GameIDs, ShouldResemble, []int64{2023020001})
			So(jobs.requests[0].SkipExisting, ShouldBeTrue)
			So(jobs.requests[0].Source, ShouldEqual, "api")
		})

		Convey("Days without games queue nothing", func() {
			job, err := o.TriggerIngestion(ctx, time.Date(2023, time.October, 9, 0, 0, 0, 0, time.UTC))
			So(err, ShouldBeNil)
			So(job, ShouldBeNil)
			So(jobs.requests, ShouldBeEmpty)
		})

		Convey("A failing team does not block the others", func() {
			o.config.Teams = []string{"BOS", "TOR"}
			job, err := o.TriggerIngestion(ctx, time.Date(2023, time.October, 11, 0, 0, 0, 0, time.UTC))
			So(err, ShouldBeNil)
			So(job.GameIDs, ShouldResemble, []int64{2023020005})
		})

		Convey("Every team failing is an error", func() {
			o.config.Teams = []string{"BOS"}
			_, err := o.TriggerIngestion(ctx, time.Date(2023, time.October, 11, 0, 0, 0, 0, time.UTC))
			So(err, ShouldNotBeNil)
		})

		Convey("The nightly run covers the previous local day", func() {
			o.now = func() time.Time { return time.Date(2023, time.October, 13, 10, 0, 0, 0, time.UTC) }
			o.runDailyIngestion()
			So(jobs.requests, ShouldHaveLength, 1)
			So(jobs.requests[0].GameIDs, ShouldResemble, []int64{2023020020})
		})

		Convey("Starting schedules the next run at the configured hour", func() {
			So(o.Start(), ShouldBeNil)
			defer o.Stop()

			next, err := o.NextRun()
			So(err, ShouldBeNil)
			So(next.In(o.location).Hour(), ShouldEqual, cfg.DailyHour)
			So(o.GetStatus(), ShouldContainKey, "next_run")
		})
	})

	Convey("Configuration is validated", t, func() {
		_, err := NewOrchestrator(fakeSchedules{}, &fakeEnqueuer{}, DefaultConfig(), nil)
		So(err, ShouldNotBeNil)

		cfg := DefaultConfig()
		cfg.Teams = []string{"MTL"}
		cfg.DailyHour = 24
		_, err = NewOrchestrator(fakeSchedules{}, &fakeEnqueuer{}, cfg, nil)
		So(err, ShouldNotBeNil)

		cfg.DailyHour = 6
		cfg.Timezone = "Mars/Olympus"
		_, err = NewOrchestrator(fakeSchedules{}, &fakeEnqueuer{}, cfg, nil)
		So(err, ShouldNotBeNil)
	})
}
