package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/JaneliaSciComp/fileglancer-server/internal/model"
)

// CreateJob inserts a new job record.
func (s *Store) CreateJob(ctx context.Context, job model.Job) error {
	params, err := json.Marshal(job.Parameters)
	if err != nil {
		return fmt.Errorf("encoding job parameters: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, username, app_url, app_name, entry_point_id, parameters,
			status, exit_code, cluster_job_id, work_dir, created_at, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.Username, job.AppURL, job.AppName, job.EntryPointID, string(params),
		string(job.Status), nullInt(job.ExitCode), nullString(job.ClusterJobID),
		nullString(job.WorkDir), job.CreatedAt.UTC(), nullTime(job.StartedAt), nullTime(job.FinishedAt))
	if err != nil {
		return fmt.Errorf("creating job: %w", err)
	}
	return nil
}

// GetJob fetches one job owned by username.
func (s *Store) GetJob(ctx context.Context, username, id string) (model.Job, error) {
	row := s.db.QueryRowContext(ctx, jobSelect+" WHERE id = ? AND username = ?", id, username)
	return scanJob(row)
}

// ListJobs returns a user's jobs, newest first.
func (s *Store) ListJobs(ctx context.Context, username string) ([]model.Job, error) {
	rows, err := s.db.QueryContext(ctx, jobSelect+" WHERE username = ? ORDER BY created_at DESC", username)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var out []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// ListActiveJobs returns every job across all users that has not yet
// reached a terminal state.
func (s *Store) ListActiveJobs(ctx context.Context) ([]model.Job, error) {
	rows, err := s.db.QueryContext(ctx, jobSelect+" WHERE status IN (?, ?)",
		string(model.JobPending), string(model.JobRunning))
	if err != nil {
		return nil, fmt.Errorf("listing active jobs: %w", err)
	}
	defer rows.Close()

	var out []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// UpdateJobStatus records a status transition with its timestamps.
func (s *Store) UpdateJobStatus(ctx context.Context, id string, status model.JobStatus, exitCode *int, startedAt, finishedAt *time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?,
			exit_code = COALESCE(?, exit_code),
			started_at = COALESCE(?, started_at),
			finished_at = COALESCE(?, finished_at)
		WHERE id = ?
	`, string(status), nullInt(exitCode), nullTime(startedAt), nullTime(finishedAt), id)
	if err != nil {
		return fmt.Errorf("updating job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetJobClusterID records the executor's handle for a submitted job.
func (s *Store) SetJobClusterID(ctx context.Context, id, clusterJobID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET cluster_job_id = ? WHERE id = ?
	`, clusterJobID, id)
	if err != nil {
		return fmt.Errorf("updating job %s: %w", id, err)
	}
	return nil
}

const jobSelect = `
	SELECT id, username, app_url, app_name, entry_point_id, parameters,
		status, exit_code, cluster_job_id, work_dir, created_at, started_at, finished_at
	FROM jobs`

func scanJob(row rowScanner) (model.Job, error) {
	var (
		job                   model.Job
		params, status        string
		exitCode              sql.NullInt64
		clusterJobID, workDir sql.NullString
		startedAt, finishedAt sql.NullTime
	)
	err := row.Scan(&job.ID, &job.Username, &job.AppURL, &job.AppName, &job.EntryPointID,
		&params, &status, &exitCode, &clusterJobID, &workDir, &job.CreatedAt, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Job{}, ErrNotFound
	}
	if err != nil {
		return model.Job{}, fmt.Errorf("scanning job: %w", err)
	}
	if err := json.Unmarshal([]byte(params), &job.Parameters); err != nil {
		return model.Job{}, fmt.Errorf("decoding job parameters: %w", err)
	}
	job.Status = model.JobStatus(status)
	job.ClusterJobID = clusterJobID.String
	job.WorkDir = workDir.String
	if exitCode.Valid {
		code := int(exitCode.Int64)
		job.ExitCode = &code
	}
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		job.FinishedAt = &t
	}
	return job, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
