package backfill

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/fortuna/icetime/internal/store"
)

const jobColumns = `
	job_id, job_type, team, season, game_ids, shift_source, skip_existing,
	status, status_message, progress_current, progress_total,
	failed_game_ids, skipped_game_ids, last_error,
	created_at, updated_at, started_at, completed_at
`

// Repository handles persistence for backfill jobs and events.
type Repository struct {
	db *store.Database
}

// NewRepository constructs a Repository.
func NewRepository(db *store.Database) *Repository {
	return &Repository{db: db}
}

// CreateJob inserts a new job row and returns the stored record.
func (r *Repository) CreateJob(ctx context.Context, job *Job) (*Job, error) {
	row := r.db.DB().QueryRowContext(ctx, `
		INSERT INTO backfill_jobs (
			job_id, job_type, team, season, game_ids, shift_source, skip_existing,
			status, status_message, progress_current, progress_total
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING `+jobColumns,
		job.JobID, string(job.JobType), job.Team, job.Season, job.GameIDs, job.ShiftSource, job.SkipExisting,
		string(job.Status), job.StatusMessage, job.ProgressCurrent, job.ProgressTotal,
	)
	stored, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return stored, nil
}

// GetJob returns one job by id.
func (r *Repository) GetJob(ctx context.Context, jobID string) (*Job, error) {
	row := r.db.DB().QueryRowContext(ctx, `SELECT `+jobColumns+` FROM backfill_jobs WHERE job_id = $1`, jobID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", jobID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// UpdateStatus updates status, message and optional error.
func (r *Repository) UpdateStatus(ctx context.Context, jobID string, status JobStatus, message string, lastErr error) error {
	query := `
		UPDATE backfill_jobs
		SET status = $2::varchar,
			status_message = $3,
			last_error = $4,
			updated_at = NOW(),
			completed_at = CASE WHEN $2::varchar IN ('completed','failed','cancelled') THEN NOW() ELSE completed_at END
		WHERE job_id = $1
	`

	var errText sql.NullString
	if lastErr != nil {
		errText = sql.NullString{String: lastErr.Error(), Valid: true}
	}

	if _, err := r.db.DB().ExecContext(ctx, query, jobID, string(status), message, errText); err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return nil
}

// UpdateProgress updates the progress counters and message.
func (r *Repository) UpdateProgress(ctx context.Context, jobID string, current, total int, message string) error {
	query := `
		UPDATE backfill_jobs
		SET progress_current = $2,
			progress_total = $3,
			status_message = $4,
			updated_at = NOW()
		WHERE job_id = $1
	`
	if _, err := r.db.DB().ExecContext(ctx, query, jobID, current, total, message); err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	return nil
}

// SetGameIDs stores the resolved game list of a team-season job.
func (r *Repository) SetGameIDs(ctx context.Context, jobID string, ids []int64) error {
	_, err := r.db.DB().ExecContext(ctx, `
		UPDATE backfill_jobs SET game_ids = $2, progress_total = $3, updated_at = NOW() WHERE job_id = $1
	`, jobID, pq.Int64Array(ids), len(ids))
	if err != nil {
		return fmt.Errorf("set job games: %w", err)
	}
	return nil
}

// RecordGame appends a skipped or failed game to the job's lists.
func (r *Repository) RecordGame(ctx context.Context, jobID string, gameID int64, outcome Outcome) error {
	var column string
	switch outcome {
	case OutcomeFailed:
		column = "failed_game_ids"
	case OutcomeSkipped:
		column = "skipped_game_ids"
	default:
		return nil
	}
	query := fmt.Sprintf(`UPDATE backfill_jobs SET %[1]s = array_append(%[1]s, $2), updated_at = NOW() WHERE job_id = $1`, column)
	if _, err := r.db.DB().ExecContext(ctx, query, jobID, gameID); err != nil {
		return fmt.Errorf("record %s game: %w", outcome, err)
	}
	return nil
}

// AppendEvent stores a log entry for a job.
func (r *Repository) AppendEvent(ctx context.Context, jobID string, eventType string, gameID *int64, message string) error {
	query := `
		INSERT INTO backfill_job_events (job_id, event_type, game_id, message)
		VALUES ($1,$2,$3,$4)
	`
	var game sql.NullInt64
	if gameID != nil {
		game = sql.NullInt64{Int64: *gameID, Valid: true}
	}
	if _, err := r.db.DB().ExecContext(ctx, query, jobID, eventType, game, message); err != nil {
		return fmt.Errorf("insert job event: %w", err)
	}
	return nil
}

// ResetStuckJobs moves running jobs back to queued (used during service restarts).
func (r *Repository) ResetStuckJobs(ctx context.Context) error {
	_, err := r.db.DB().ExecContext(ctx, `
		UPDATE backfill_jobs
		SET status = 'queued',
			status_message = 'Reset after service restart',
			updated_at = NOW()
		WHERE status = 'running'
	`)
	if err != nil {
		return fmt.Errorf("reset stuck jobs: %w", err)
	}
	return nil
}

// MarkNextJobRunning atomically claims the next queued job.
func (r *Repository) MarkNextJobRunning(ctx context.Context) (*Job, error) {
	query := `
		WITH next_job AS (
			SELECT job_id
			FROM backfill_jobs
			WHERE status = 'queued'
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE backfill_jobs
		SET status = 'running',
			status_message = 'Starting job...',
			started_at = COALESCE(started_at, NOW()),
			updated_at = NOW()
		FROM next_job
		WHERE backfill_jobs.job_id = next_job.job_id
		RETURNING ` + qualified("backfill_jobs")

	job, err := scanJob(r.db.DB().QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

// GetActiveJob returns the currently running job, if any.
func (r *Repository) GetActiveJob(ctx context.Context) (*Job, error) {
	row := r.db.DB().QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM backfill_jobs
		WHERE status = 'running'
		ORDER BY started_at DESC
		LIMIT 1
	`)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active job: %w", err)
	}
	return job, nil
}

// ListRecentJobs returns the most recently created jobs.
func (r *Repository) ListRecentJobs(ctx context.Context, limit int) ([]*Job, error) {
	rows, err := r.db.DB().QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM backfill_jobs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// qualified prefixes every job column with a table name for RETURNING
// clauses of joined updates.
func qualified(table string) string {
	cols := []string{
		"job_id", "job_type", "team", "season", "game_ids", "shift_source", "skip_existing",
		"status", "status_message", "progress_current", "progress_total",
		"failed_game_ids", "skipped_game_ids", "last_error",
		"created_at", "updated_at", "started_at", "completed_at",
	}
	for i, c := range cols {
		cols[i] = table + "." + c
	}
	return strings.Join(cols, ", ")
}

func scanJob(scanner interface {
	Scan(dest ...interface{}) error
}) (*Job, error) {
	job := &Job{}
	var jobType, status string
	err := scanner.Scan(
		&job.JobID,
		&jobType,
		&job.Team,
		&job.Season,
		&job.GameIDs,
		&job.ShiftSource,
		&job.SkipExisting,
		&status,
		&job.StatusMessage,
		&job.ProgressCurrent,
		&job.ProgressTotal,
		&job.FailedGameIDs,
		&job.SkippedGameIDs,
		&job.LastError,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	job.JobType = JobType(jobType)
	job.Status = JobStatus(status)
	return job, nil
}
