package backfill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/fortuna/icetime/internal/hockey"
	"github.com/fortuna/icetime/internal/ingest"
	"github.com/fortuna/icetime/internal/ingest/nhl"
	"github.com/fortuna/icetime/internal/metrics"
)

// DefaultWorkers bounds how many games are ingested at once.
const DefaultWorkers = 4

// Game types pulled for team-season jobs.
var seasonGameTypes = []int{2, 3}

// GameIngester runs the per-game pipeline.
type GameIngester interface {
	IngestGame(ctx context.Context, gameID int64, source string) (*ingest.Game, error)
}

// ScheduleSource lists a club's games for a season.
type ScheduleSource interface {
	FetchSchedule(ctx context.Context, team string, season int) (*nhl.Schedule, error)
}

// GameIndex reports whether a game was already reconciled.
type GameIndex interface {
	Exists(ctx context.Context, gameID int64) (bool, error)
}

// RunnerDeps wires a Runner. Ingester is required; Schedules is required
// for team-season jobs and Existing for SkipExisting.
type RunnerDeps struct {
	Ingester  GameIngester
	Schedules ScheduleSource
	Existing  GameIndex
	Metrics   *metrics.Recorder
	Workers   int
}

// Runner executes backfill specs over a bounded worker pool. A failing game
// is recorded and never stops the rest of the job.
type Runner struct {
	ingester  GameIngester
	schedules ScheduleSource
	existing  GameIndex
	metrics   *metrics.Recorder
	workers   int
	logger    *slog.Logger
}

// NewRunner constructs a runner.
func NewRunner(deps RunnerDeps, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Workers <= 0 {
		deps.Workers = DefaultWorkers
	}
	return &Runner{
		ingester:  deps.Ingester,
		schedules: deps.Schedules,
		existing:  deps.Existing,
		metrics:   deps.Metrics,
		workers:   deps.Workers,
		logger:    logger.With("component", "backfill"),
	}
}

// Resolve lists the game ids a spec covers, sorted and deduplicated.
func (r *Runner) Resolve(ctx context.Context, spec JobSpec) ([]int64, error) {
	switch spec.Type {
	case JobTypeGames:
		if len(spec.GameIDs) == 0 {
			return nil, errors.New("no game ids provided for job type 'games'")
		}
		return uniqueSorted(spec.GameIDs), nil
	case JobTypeTeamSeason:
		if r.schedules == nil {
			return nil, errors.New("no schedule source configured")
		}
		sched, err := r.schedules.FetchSchedule(ctx, spec.Team, spec.Season)
		if err != nil {
			return nil, fmt.Errorf("fetch %s %d schedule: %w", spec.Team, spec.Season, err)
		}
		return sched.FinishedGameIDs(seasonGameTypes...), nil
	default:
		return nil, fmt.Errorf("unsupported job type %s", spec.Type)
	}
}

// Run executes a job, reporting progress via the Reporter if provided.
// The returned error is non-nil only when the job as a whole could not run
// or the context was cancelled; per-game failures are in the Report.
func (r *Runner) Run(ctx context.Context, spec JobSpec, reporter Reporter) (*Report, error) {
	ids, err := r.Resolve(ctx, spec)
	if err != nil {
		if reporter != nil {
			reporter.OnJobError(err)
		}
		return nil, err
	}

	report := &Report{Total: len(ids), Errors: map[int64]error{}}
	if reporter != nil {
		reporter.OnJobStart(spec, ids)
	}
	r.logger.Info("backfill starting", "type", spec.Type, "games", len(ids), "workers", r.workers, "dry_run", spec.DryRun)

	if spec.DryRun {
		if reporter != nil {
			reporter.OnJobComplete(report)
		}
		return report, nil
	}

	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		id := id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := r.runGame(gctx, id, spec)

			mu.Lock()
			defer mu.Unlock()
			done++
			report.add(res)
			if reporter != nil {
				reporter.OnGameDone(res, done, len(ids))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	report.sort()
	r.logger.Info("backfill finished",
		"games", report.Total,
		"ingested", len(report.Ingested),
		"skipped", len(report.Skipped),
		"failed", len(report.Failed))
	if reporter != nil {
		reporter.OnJobComplete(report)
	}
	return report, nil
}

func (r *Runner) runGame(ctx context.Context, gameID int64, spec JobSpec) GameResult {
	res := r.ingestGame(ctx, gameID, spec)
	if r.metrics != nil {
		r.metrics.ObserveBackfillGame(string(res.Outcome))
	}
	switch res.Outcome {
	case OutcomeFailed:
		r.logger.Error("game failed", "game_id", gameID, "error", res.Err)
	case OutcomeSkipped:
		r.logger.Debug("game skipped", "game_id", gameID, "reason", res.Err)
	}
	return res
}

func (r *Runner) ingestGame(ctx context.Context, gameID int64, spec JobSpec) GameResult {
	if spec.SkipExisting && r.existing != nil {
		exists, err := r.existing.Exists(ctx, gameID)
		if err != nil {
			return GameResult{GameID: gameID, Outcome: OutcomeFailed, Err: err}
		}
		if exists {
			return GameResult{GameID: gameID, Outcome: OutcomeSkipped, Err: errors.New("already reconciled")}
		}
	}

	_, err := r.ingester.IngestGame(ctx, gameID, spec.Source)
	switch {
	case err == nil:
		return GameResult{GameID: gameID, Outcome: OutcomeIngested}
	case errors.Is(err, hockey.ErrNoData):
		return GameResult{GameID: gameID, Outcome: OutcomeSkipped, Err: err}
	default:
		return GameResult{GameID: gameID, Outcome: OutcomeFailed, Err: err}
	}
}

func (rep *Report) add(res GameResult) {
	switch res.Outcome {
	case OutcomeIngested:
		rep.Ingested = append(rep.Ingested, res.GameID)
	case OutcomeSkipped:
		rep.Skipped = append(rep.Skipped, res.GameID)
	default:
		rep.Failed = append(rep.Failed, res.GameID)
		rep.Errors[res.GameID] = res.Err
	}
}

func (rep *Report) sort() {
	for _, ids := range [][]int64{rep.Ingested, rep.Skipped, rep.Failed} {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
}

// Summary renders the report for status messages.
func (rep *Report) Summary() string {
	return fmt.Sprintf("%d games: %d ingested, %d skipped, %d failed",
		rep.Total, len(rep.Ingested), len(rep.Skipped), len(rep.Failed))
}

func uniqueSorted(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
