package render

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	CreateJob(ctx context.Context, j *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	// GetJobByFingerprint returns the newest job for a fingerprint that
	// is pending, running or done. Failed and cancelled jobs do not
	// satisfy a cache lookup.
	GetJobByFingerprint(ctx context.Context, fingerprint string) (*Job, error)
	ListJobsByProject(ctx context.Context, projectID string, limit int) ([]*Job, error)
	ListRecentJobs(ctx context.Context, limit int) ([]*Job, error)
	UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error
	UpdateJobProgress(ctx context.Context, id string, progress int) error
	SetJobOutput(ctx context.Context, id, outputKey string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const jobColumns = `id, project_id, scenario_version, fingerprint, status, progress, output_key, error, created_at, updated_at`

func (r *SQLiteRepository) CreateJob(ctx context.Context, j *Job) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO render_jobs (id, project_id, scenario_version, fingerprint, status, progress, output_key, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.ProjectID, j.ScenarioVersion, j.Fingerprint, j.Status, j.Progress,
		nullString(j.OutputKey), nullString(j.Error),
		j.CreatedAt.Format(time.RFC3339), j.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetJob(ctx context.Context, id string) (*Job, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM render_jobs WHERE id = ?
	`, id)
	return scanJob(row)
}

func (r *SQLiteRepository) GetJobByFingerprint(ctx context.Context, fingerprint string) (*Job, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM render_jobs
		WHERE fingerprint = ? AND status IN ('pending', 'running', 'done')
		ORDER BY created_at DESC LIMIT 1
	`, fingerprint)
	return scanJob(row)
}

func scanJob(row *sql.Row) (*Job, error) {
	var j Job
	var outputKey, errMsg sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&j.ID, &j.ProjectID, &j.ScenarioVersion, &j.Fingerprint,
		&j.Status, &j.Progress, &outputKey, &errMsg, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	j.OutputKey = outputKey.String
	j.Error = errMsg.String
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &j, nil
}

func (r *SQLiteRepository) ListJobsByProject(ctx context.Context, projectID string, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM render_jobs
		WHERE project_id = ? ORDER BY created_at DESC LIMIT ?
	`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (r *SQLiteRepository) ListRecentJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM render_jobs
		ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

func scanJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		var j Job
		var outputKey, errMsg sql.NullString
		var createdAt, updatedAt string

		if err := rows.Scan(&j.ID, &j.ProjectID, &j.ScenarioVersion, &j.Fingerprint,
			&j.Status, &j.Progress, &outputKey, &errMsg, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		j.OutputKey = outputKey.String
		j.Error = errMsg.String
		j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

func (r *SQLiteRepository) UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE render_jobs SET status = ?, error = ?, updated_at = datetime('now') WHERE id = ?
	`, status, nullString(errorMsg), id)
	return err
}

func (r *SQLiteRepository) UpdateJobProgress(ctx context.Context, id string, progress int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE render_jobs SET progress = ?, updated_at = datetime('now') WHERE id = ?
	`, progress, id)
	return err
}

func (r *SQLiteRepository) SetJobOutput(ctx context.Context, id, outputKey string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE render_jobs SET output_key = ?, updated_at = datetime('now') WHERE id = ?
	`, outputKey, id)
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
