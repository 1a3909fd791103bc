package backfill

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fortuna/icetime/internal/metrics"
	"github.com/fortuna/icetime/internal/shifts"
)

// JobStore persists jobs. *Repository implements it.
type JobStore interface {
	CreateJob(ctx context.Context, job *Job) (*Job, error)
	GetJob(ctx context.Context, jobID string) (*Job, error)
	UpdateStatus(ctx context.Context, jobID string, status JobStatus, message string, lastErr error) error
	UpdateProgress(ctx context.Context, jobID string, current, total int, message string) error
	SetGameIDs(ctx context.Context, jobID string, ids []int64) error
	RecordGame(ctx context.Context, jobID string, gameID int64, outcome Outcome) error
	AppendEvent(ctx context.Context, jobID string, eventType string, gameID *int64, message string) error
	ResetStuckJobs(ctx context.Context) error
	MarkNextJobRunning(ctx context.Context) (*Job, error)
	GetActiveJob(ctx context.Context) (*Job, error)
	ListRecentJobs(ctx context.Context, limit int) ([]*Job, error)
}

var teamPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Request represents a backfill invocation request.
type Request struct {
	GameIDs      []int64
	Team         string
	Season       int
	Source       string
	SkipExisting bool
}

// DeriveType infers the job type based on populated fields.
func (r Request) DeriveType() (JobType, error) {
	if len(r.GameIDs) > 0 {
		return JobTypeGames, nil
	}
	if r.Team != "" || r.Season != 0 {
		return JobTypeTeamSeason, nil
	}
	return "", errors.New("unable to determine job type from request")
}

// Validate checks the request fields for its job type.
func (r Request) Validate() error {
	jobType, err := r.DeriveType()
	if err != nil {
		return err
	}
	switch r.Source {
	case "", shifts.SourceHTML, shifts.SourceAPI:
	default:
		return fmt.Errorf("unknown shift source %q", r.Source)
	}
	if jobType == JobTypeGames {
		for _, id := range r.GameIDs {
			if id < 1_000_000_000 || id > 9_999_999_999 {
				return fmt.Errorf("game id %d is not a 10 digit id", id)
			}
		}
		return nil
	}
	if !teamPattern.MatchString(r.Team) {
		return fmt.Errorf("team %q is not a three letter abbreviation", r.Team)
	}
	return ValidSeason(r.Season)
}

// ValidSeason checks an eight digit season id such as 20232024.
func ValidSeason(season int) error {
	start, end := season/10000, season%10000
	if season < 10000000 || season > 99999999 || end != start+1 {
		return fmt.Errorf("season %d is not of the form YYYYYYYY with consecutive years", season)
	}
	return nil
}

// Service coordinates job persistence, execution, and status reporting.
type Service struct {
	repo    JobStore
	runner  *Runner
	metrics *metrics.Recorder

	historyLimit int
	pollInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *slog.Logger
}

// NewService constructs a Service. Call Start to launch the worker.
func NewService(repo JobStore, runner *Runner, rec *metrics.Recorder, logger *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:         repo,
		runner:       runner,
		metrics:      rec,
		historyLimit: 10,
		pollInterval: 3 * time.Second,
		ctx:          ctx,
		cancel:       cancel,
		logger:       logger.With("component", "backfill"),
	}
}

// Start launches the background worker loop.
func (s *Service) Start() {
	if err := s.repo.ResetStuckJobs(s.ctx); err != nil {
		s.logger.Error("failed to reset jobs", "error", err)
	}

	s.wg.Add(1)
	go s.worker()
}

// Shutdown stops the worker and waits for it to finish.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Enqueue creates a new queued job from the request.
func (s *Service) Enqueue(ctx context.Context, req Request) (*Job, error) {
	req.Team = strings.ToUpper(strings.TrimSpace(req.Team))
	if err := req.Validate(); err != nil {
		return nil, err
	}
	jobType, _ := req.DeriveType()

	job := &Job{
		JobID:         uuid.NewString(),
		JobType:       jobType,
		ShiftSource:   sql.NullString{String: req.Source, Valid: req.Source != ""},
		SkipExisting:  req.SkipExisting,
		Status:        JobStatusQueued,
		StatusMessage: sql.NullString{String: "Queued", Valid: true},
	}
	switch jobType {
	case JobTypeGames:
		job.GameIDs = uniqueSorted(req.GameIDs)
		job.ProgressTotal = len(job.GameIDs)
	case JobTypeTeamSeason:
		job.Team = sql.NullString{String: req.Team, Valid: true}
		job.Season = sql.NullInt64{Int64: int64(req.Season), Valid: true}
	}

	stored, err := s.repo.CreateJob(ctx, job)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AppendEvent(ctx, stored.JobID, "queued", nil, "Job queued"); err != nil {
		s.logger.Warn("failed to record job event", "job_id", stored.JobID, "error", err)
	}
	s.logger.Info("job queued", "job_id", stored.JobID, "type", stored.JobType)
	return stored, nil
}

// GetJob returns one job.
func (s *Service) GetJob(ctx context.Context, jobID string) (*Job, error) {
	return s.repo.GetJob(ctx, jobID)
}

// GetStatus returns the currently running job plus recent history.
func (s *Service) GetStatus(ctx context.Context) (*StatusSummary, error) {
	active, err := s.repo.GetActiveJob(ctx)
	if err != nil {
		return nil, err
	}

	history, err := s.repo.ListRecentJobs(ctx, s.historyLimit)
	if err != nil {
		return nil, err
	}

	return &StatusSummary{
		ActiveJob: active,
		History:   history,
	}, nil
}

func (s *Service) worker() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		job, err := s.repo.MarkNextJobRunning(s.ctx)
		if err != nil {
			s.logger.Error("claim job error", "error", err)
		}
		if job != nil {
			s.executeJob(job)
			continue
		}

		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Service) executeJob(job *Job) {
	spec, err := buildSpec(job)
	if err != nil {
		s.logger.Error("invalid job spec", "job_id", job.JobID, "error", err)
		s.setStatus(job.JobID, JobStatusFailed, "Invalid job specification", err)
		return
	}

	if s.metrics != nil {
		s.metrics.BackfillStarted()
		defer s.metrics.BackfillFinished()
	}

	reporter := &jobReporter{ctx: s.ctx, repo: s.repo, job: job, logger: s.logger}
	report, err := s.runner.Run(s.ctx, spec, reporter)
	switch {
	case errors.Is(err, context.Canceled):
		// Shutdown: leave the job running so ResetStuckJobs requeues it.
		return
	case err != nil:
		s.setStatus(job.JobID, JobStatusFailed, "Job failed", err)
	case report.Total > 0 && len(report.Failed) == report.Total:
		s.setStatus(job.JobID, JobStatusFailed, report.Summary(), report.Errors[report.Failed[0]])
	default:
		var lastErr error
		if len(report.Failed) > 0 {
			lastErr = report.Errors[report.Failed[len(report.Failed)-1]]
		}
		s.setStatus(job.JobID, JobStatusCompleted, report.Summary(), lastErr)
	}
}

func (s *Service) setStatus(jobID string, status JobStatus, message string, lastErr error) {
	if err := s.repo.UpdateStatus(s.ctx, jobID, status, message, lastErr); err != nil {
		s.logger.Error("failed to update job status", "job_id", jobID, "status", status, "error", err)
	}
}

func buildSpec(job *Job) (JobSpec, error) {
	spec := JobSpec{
		Type:         job.JobType,
		Source:       job.ShiftSource.String,
		SkipExisting: job.SkipExisting,
	}

	switch job.JobType {
	case JobTypeGames:
		if len(job.GameIDs) == 0 {
			return spec, errors.New("games job missing game_ids")
		}
		spec.GameIDs = job.GameIDs
	case JobTypeTeamSeason:
		if !job.Team.Valid || !job.Season.Valid {
			return spec, errors.New("team_season job missing team or season")
		}
		spec.Team = job.Team.String
		spec.Season = int(job.Season.Int64)
	default:
		return spec, fmt.Errorf("unknown job type %s", job.JobType)
	}
	return spec, nil
}

// jobReporter mirrors runner progress into the job row and its event log.
type jobReporter struct {
	ctx    context.Context
	repo   JobStore
	job    *Job
	total  int
	logger *slog.Logger
}

func (r *jobReporter) OnJobStart(spec JobSpec, gameIDs []int64) {
	r.total = len(gameIDs)
	if spec.Type == JobTypeTeamSeason {
		r.check(r.repo.SetGameIDs(r.ctx, r.job.JobID, gameIDs))
	}
	r.check(r.repo.UpdateProgress(r.ctx, r.job.JobID, 0, r.total, fmt.Sprintf("Processing %d games", r.total)))
}

func (r *jobReporter) OnGameDone(res GameResult, done, total int) {
	id := res.GameID
	message := fmt.Sprintf("Game %d %s", id, res.Outcome)
	if res.Err != nil {
		message += ": " + res.Err.Error()
	}
	r.check(r.repo.AppendEvent(r.ctx, r.job.JobID, string(res.Outcome), &id, message))
	r.check(r.repo.RecordGame(r.ctx, r.job.JobID, id, res.Outcome))
	r.check(r.repo.UpdateProgress(r.ctx, r.job.JobID, done, total, fmt.Sprintf("Processed %d/%d games", done, total)))
}

func (r *jobReporter) OnJobComplete(report *Report) {
	r.check(r.repo.UpdateProgress(r.ctx, r.job.JobID, report.Total, report.Total, report.Summary()))
}

func (r *jobReporter) OnJobError(err error) {
	r.check(r.repo.AppendEvent(r.ctx, r.job.JobID, "error", nil, err.Error()))
}

func (r *jobReporter) check(err error) {
	if err != nil {
		r.logger.Warn("failed to record job progress", "job_id", r.job.JobID, "error", err)
	}
}
