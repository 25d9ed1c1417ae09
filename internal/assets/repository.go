package assets

import (
	"context"
	"database/sql"
	"time"

	"github.com/cutroom/renderd/internal/scenario"
)

type Repository interface {
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	TouchProject(ctx context.Context, id string) error

	CreateAsset(ctx context.Context, a *Asset) error
	GetAsset(ctx context.Context, id string) (*Asset, error)
	ListAssetsByProject(ctx context.Context, projectID string) ([]*Asset, error)
	UpdateAssetStatus(ctx context.Context, id string, status scenario.AssetStatus) error
	UpdateAssetMedia(ctx context.Context, id string, durationSec float64, width, height int) error

	GetScenario(ctx context.Context, projectID string) (version int, document string, err error)
	SaveScenario(ctx context.Context, projectID string, version int, document string) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, p *Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, p.ID, p.Name, p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at FROM projects WHERE id = ?
	`, id)

	var p Project
	var createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.Name, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at FROM projects ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		var p Project
		var createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.Name, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

func (r *SQLiteRepository) TouchProject(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE projects SET updated_at = datetime('now') WHERE id = ?
	`, id)
	return err
}

func (r *SQLiteRepository) CreateAsset(ctx context.Context, a *Asset) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO assets (id, project_id, file_key, filename, media_type, source, status,
			duration_sec, width, height, fingerprint, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.ProjectID, a.FileKey, a.Filename, a.MediaType, string(a.Source), string(a.Status),
		a.DurationSec, a.Width, a.Height, nullString(a.Fingerprint), a.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetAsset(ctx context.Context, id string) (*Asset, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, project_id, file_key, filename, media_type, source, status,
			duration_sec, width, height, fingerprint, created_at
		FROM assets WHERE id = ?
	`, id)
	return scanAsset(row)
}

func scanAsset(row *sql.Row) (*Asset, error) {
	var a Asset
	var source, status, createdAt string
	var duration sql.NullFloat64
	var width, height sql.NullInt64
	var fingerprint sql.NullString

	err := row.Scan(&a.ID, &a.ProjectID, &a.FileKey, &a.Filename, &a.MediaType,
		&source, &status, &duration, &width, &height, &fingerprint, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	a.Source = scenario.AssetSource(source)
	a.Status = scenario.AssetStatus(status)
	a.DurationSec = duration.Float64
	a.Width = int(width.Int64)
	a.Height = int(height.Int64)
	a.Fingerprint = fingerprint.String
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

func (r *SQLiteRepository) ListAssetsByProject(ctx context.Context, projectID string) ([]*Asset, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, file_key, filename, media_type, source, status,
			duration_sec, width, height, fingerprint, created_at
		FROM assets WHERE project_id = ? ORDER BY created_at ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Asset
	for rows.Next() {
		var a Asset
		var source, status, createdAt string
		var duration sql.NullFloat64
		var width, height sql.NullInt64
		var fingerprint sql.NullString

		if err := rows.Scan(&a.ID, &a.ProjectID, &a.FileKey, &a.Filename, &a.MediaType,
			&source, &status, &duration, &width, &height, &fingerprint, &createdAt); err != nil {
			return nil, err
		}
		a.Source = scenario.AssetSource(source)
		a.Status = scenario.AssetStatus(status)
		a.DurationSec = duration.Float64
		a.Width = int(width.Int64)
		a.Height = int(height.Int64)
		a.Fingerprint = fingerprint.String
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateAssetStatus(ctx context.Context, id string, status scenario.AssetStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE assets SET status = ? WHERE id = ?
	`, string(status), id)
	return err
}

func (r *SQLiteRepository) UpdateAssetMedia(ctx context.Context, id string, durationSec float64, width, height int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE assets SET duration_sec = ?, width = ?, height = ? WHERE id = ?
	`, durationSec, width, height, id)
	return err
}

func (r *SQLiteRepository) GetScenario(ctx context.Context, projectID string) (int, string, error) {
	var version int
	var document string
	err := r.db.QueryRowContext(ctx, `
		SELECT version, document FROM scenarios WHERE project_id = ?
	`, projectID).Scan(&version, &document)
	if err == sql.ErrNoRows {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", err
	}
	return version, document, nil
}

func (r *SQLiteRepository) SaveScenario(ctx context.Context, projectID string, version int, document string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scenarios (project_id, version, document, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(project_id) DO UPDATE SET
			version = excluded.version,
			document = excluded.document,
			updated_at = excluded.updated_at
	`, projectID, version, document)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
