package generate

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	CreateTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, id string) (*Task, error)
	GetTaskBySegment(ctx context.Context, projectID, segmentID string) (*Task, error)
	ListPendingTasks(ctx context.Context) ([]*Task, error)
	ListTasksByProject(ctx context.Context, projectID string) ([]*Task, error)
	UpdateTaskStatus(ctx context.Context, id, status, errorMsg string) error
	SetTaskAsset(ctx context.Context, id, assetID string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const taskColumns = `id, project_id, segment_id, task_type, query, asset_id, status, error, created_at, updated_at`

func (r *SQLiteRepository) CreateTask(ctx context.Context, t *Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO generation_tasks (id, project_id, segment_id, task_type, query, asset_id, status, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.ProjectID, t.SegmentID, t.TaskType, nullString(t.Query), nullString(t.AssetID),
		t.Status, nullString(t.Error),
		t.CreatedAt.Format(time.RFC3339), t.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id string) (*Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM generation_tasks WHERE id = ?
	`, id)
	return scanTask(row)
}

func (r *SQLiteRepository) GetTaskBySegment(ctx context.Context, projectID, segmentID string) (*Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM generation_tasks
		WHERE project_id = ? AND segment_id = ? AND status != 'error'
		ORDER BY created_at DESC LIMIT 1
	`, projectID, segmentID)
	return scanTask(row)
}

func scanTask(row *sql.Row) (*Task, error) {
	var t Task
	var query, assetID, errMsg sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&t.ID, &t.ProjectID, &t.SegmentID, &t.TaskType,
		&query, &assetID, &t.Status, &errMsg, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	t.Query = query.String
	t.AssetID = assetID.String
	t.Error = errMsg.String
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &t, nil
}

func (r *SQLiteRepository) ListPendingTasks(ctx context.Context) ([]*Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM generation_tasks
		WHERE status = 'pending' ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *SQLiteRepository) ListTasksByProject(ctx context.Context, projectID string) ([]*Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM generation_tasks
		WHERE project_id = ? ORDER BY created_at ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func scanTasks(rows *sql.Rows) ([]*Task, error) {
	var tasks []*Task
	for rows.Next() {
		var t Task
		var query, assetID, errMsg sql.NullString
		var createdAt, updatedAt string

		if err := rows.Scan(&t.ID, &t.ProjectID, &t.SegmentID, &t.TaskType,
			&query, &assetID, &t.Status, &errMsg, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		t.Query = query.String
		t.AssetID = assetID.String
		t.Error = errMsg.String
		t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}

func (r *SQLiteRepository) UpdateTaskStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE generation_tasks SET status = ?, error = ?, updated_at = datetime('now') WHERE id = ?
	`, status, nullString(errorMsg), id)
	return err
}

func (r *SQLiteRepository) SetTaskAsset(ctx context.Context, id, assetID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE generation_tasks SET asset_id = ?, updated_at = datetime('now') WHERE id = ?
	`, assetID, id)
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
