package backfill

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// JobType enumerates the supported backfill job variants.
type JobType string

const (
	JobTypeGames      JobType = "games"
	JobTypeTeamSeason JobType = "team_season"
)

// JobStatus represents the lifecycle state for a job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job models the database representation of a backfill job.
type Job struct {
	JobID           string
	JobType         JobType
	Team            sql.NullString
	Season          sql.NullInt64
	GameIDs         pq.Int64Array
	ShiftSource     sql.NullString
	SkipExisting    bool
	Status          JobStatus
	StatusMessage   sql.NullString
	ProgressCurrent int
	ProgressTotal   int
	FailedGameIDs   pq.Int64Array
	SkippedGameIDs  pq.Int64Array
	LastError       sql.NullString
	CreatedAt       time.Time
	UpdatedAt       time.Time
	StartedAt       sql.NullTime
	CompletedAt     sql.NullTime
}

// Copy returns a copy that shares no slices with the original.
func (j *Job) Copy() *Job {
	if j == nil {
		return nil
	}
	cpy := *j
	cpy.GameIDs = append(pq.Int64Array(nil), j.GameIDs...)
	cpy.FailedGameIDs = append(pq.Int64Array(nil), j.FailedGameIDs...)
	cpy.SkippedGameIDs = append(pq.Int64Array(nil), j.SkippedGameIDs...)
	return &cpy
}

// JobSpec describes the work to be performed by the runner.
type JobSpec struct {
	Type         JobType
	Team         string
	Season       int
	GameIDs      []int64
	Source       string
	SkipExisting bool
	DryRun       bool
}

// Outcome of one game within a job.
type Outcome string

const (
	OutcomeIngested Outcome = "ingested"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// GameResult is the outcome of one game.
type GameResult struct {
	GameID  int64
	Outcome Outcome
	Err     error
}

// Report summarizes a finished run. Game id lists are sorted.
type Report struct {
	Total    int
	Ingested []int64
	Skipped  []int64
	Failed   []int64
	Errors   map[int64]error
}

// Reporter receives lifecycle callbacks from the runner. Calls are
// serialized even when games run in parallel.
type Reporter interface {
	OnJobStart(spec JobSpec, gameIDs []int64)
	OnGameDone(result GameResult, done, total int)
	OnJobComplete(report *Report)
	OnJobError(err error)
}

// StatusSummary is returned to API callers.
type StatusSummary struct {
	ActiveJob *Job   `json:"active_job,omitempty"`
	History   []*Job `json:"recent_jobs,omitempty"`
}
