// Package scheduler runs the nightly ingestion of the previous day's games.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/fortuna/icetime/internal/backfill"
)

// Enqueuer queues backfill jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, req backfill.Request) (*backfill.Job, error)
}

// Config holds scheduler configuration
type Config struct {
	Teams     []string // club abbreviations to follow
	DailyHour int      // local hour of the nightly run
	Timezone  string   // IANA zone for DailyHour and "yesterday"
	Source    string   // shift source passed to jobs; empty uses the default
	Timeout   time.Duration
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		DailyHour: 6,
		Timezone:  "America/New_York",
		Timeout:   15 * time.Minute,
	}
}

// Orchestrator enqueues a backfill job each night for the finished games of
// the followed teams.
type Orchestrator struct {
	s         gocron.Scheduler
	job       gocron.Job
	schedules backfill.ScheduleSource
	jobs      Enqueuer
	config    Config
	location  *time.Location
	now       func() time.Time
	logger    *slog.Logger
}

// NewOrchestrator creates a new scheduler orchestrator
func NewOrchestrator(schedules backfill.ScheduleSource, jobs Enqueuer, config Config, logger *slog.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(config.Teams) == 0 {
		return nil, errors.New("scheduler: no teams configured")
	}
	if config.DailyHour < 0 || config.DailyHour > 23 {
		return nil, fmt.Errorf("scheduler: daily hour %d out of range", config.DailyHour)
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	location, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", config.Timezone, err)
	}

	s, err := gocron.NewScheduler(gocron.WithLocation(location))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Orchestrator{
		s:         s,
		schedules: schedules,
		jobs:      jobs,
		config:    config,
		location:  location,
		now:       time.Now,
		logger:    logger.With("component", "scheduler"),
	}, nil
}

// Start registers the nightly job and starts the scheduler.
func (o *Orchestrator) Start() error {
	job, err := o.s.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(o.config.DailyHour), 0, 0))),
		gocron.NewTask(o.runDailyIngestion),
		gocron.WithName("nightly-ingestion"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create nightly job: %w", err)
	}
	o.job = job
	o.s.Start()

	next, _ := job.NextRun()
	o.logger.Info("scheduler started", "teams", o.config.Teams, "hour", o.config.DailyHour, "next_run", next)
	return nil
}

// Stop gracefully stops the scheduler
func (o *Orchestrator) Stop() error {
	return o.s.Shutdown()
}

// NextRun returns when the nightly job fires next.
func (o *Orchestrator) NextRun() (time.Time, error) {
	if o.job == nil {
		return time.Time{}, errors.New("scheduler not started")
	}
	return o.job.NextRun()
}

func (o *Orchestrator) runDailyIngestion() {
	ctx, cancel := context.WithTimeout(context.Background(), o.config.Timeout)
	defer cancel()

	yesterday := o.now().In(o.location).AddDate(0, 0, -1)
	job, err := o.TriggerIngestion(ctx, yesterday)
	switch {
	case err != nil:
		o.logger.Error("nightly ingestion failed", "date", yesterday.Format(time.DateOnly), "error", err)
	case job == nil:
		o.logger.Info("no finished games", "date", yesterday.Format(time.DateOnly))
	default:
		o.logger.Info("nightly ingestion queued", "date", yesterday.Format(time.DateOnly), "job_id", job.JobID, "games", len(job.GameIDs))
	}
}

// TriggerIngestion queues one job for the finished games the followed teams
// played on date. It returns a nil job when there is nothing to ingest. A
// team whose schedule cannot be fetched is logged and skipped.
func (o *Orchestrator) TriggerIngestion(ctx context.Context, date time.Time) (*backfill.Job, error) {
	day := date.Format(time.DateOnly)
	season := SeasonFor(date)

	seen := map[int64]bool{}
	var ids []int64
	var failures int
	for _, team := range o.config.Teams {
		sched, err := o.schedules.FetchSchedule(ctx, team, season)
		if err != nil {
			failures++
			o.logger.Warn("schedule fetch failed", "team", team, "season", season, "error", err)
			continue
		}
		for _, g := range sched.GamesOn(day) {
			if !seen[g.ID] {
				seen[g.ID] = true
				ids = append(ids, g.ID)
			}
		}
	}
	if failures == len(o.config.Teams) {
		return nil, fmt.Errorf("no schedule could be fetched for %s", day)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return o.jobs.Enqueue(ctx, backfill.Request{
		GameIDs:      ids,
		Source:       o.config.Source,
		SkipExisting: true,
	})
}

// GetStatus returns current scheduler status
func (o *Orchestrator) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"teams":      o.config.Teams,
		"daily_hour": o.config.DailyHour,
		"timezone":   o.config.Timezone,
	}
	if next, err := o.NextRun(); err == nil {
		status["next_run"] = next
	}
	return status
}

// SeasonFor returns the season id (e.g. 20232024) a date falls in. Seasons
// roll over in September.
func SeasonFor(date time.Time) int {
	start := date.Year()
	if date.Month() < time.September {
		start--
	}
	return start*10000 + start + 1
}
