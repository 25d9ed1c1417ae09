package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cutroom/renderd/internal/engine"
	"github.com/cutroom/renderd/internal/export"
	"github.com/cutroom/renderd/internal/scenario"
)

const fingerprintSize = 64 * 1024

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrAssetNotFound   = errors.New("asset not found")
	ErrNoScenario      = errors.New("project has no scenario")
	ErrUploadTooLarge  = errors.New("upload exceeds size limit")
)

// VersionConflictError reports a scenario save against a stale base
// version.
type VersionConflictError struct {
	Stored    int
	Submitted int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("scenario version conflict: stored version %d, submitted %d", e.Stored, e.Submitted)
}

// ValidationFailedError carries the full list of scenario validation
// failures back to the API layer.
type ValidationFailedError struct {
	Errors []scenario.ValidationError
}

func (e *ValidationFailedError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return "scenario validation failed: " + strings.Join(msgs, "; ")
}

// Prober extracts media metadata from an uploaded file.
type Prober interface {
	Probe(ctx context.Context, path string) (*engine.ProbeResult, error)
}

// Service manages projects, their uploaded media, and the scenario
// document attached to each project.
type Service struct {
	repo           Repository
	prober         Prober
	uploadDir      string
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewService(repo Repository, prober Prober, uploadDir string, maxUploadBytes int64, logger *slog.Logger) *Service {
	return &Service{
		repo:           repo,
		prober:         prober,
		uploadDir:      uploadDir,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

func (s *Service) CreateProject(ctx context.Context, name string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("project name is required")
	}

	now := time.Now()
	p := &Project{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("project created", "project_id", p.ID, "name", name)
	return p, nil
}

func (s *Service) GetProject(ctx context.Context, id string) (*Project, error) {
	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProjectNotFound
	}
	return p, nil
}

func (s *Service) ListProjects(ctx context.Context) ([]*Project, error) {
	return s.repo.ListProjects(ctx)
}

func (s *Service) ListAssets(ctx context.Context, projectID string) ([]*Asset, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListAssetsByProject(ctx, projectID)
}

func (s *Service) GetAsset(ctx context.Context, id string) (*Asset, error) {
	a, err := s.repo.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAssetNotFound
	}
	return a, nil
}

// RegisterUpload stores an uploaded file under the project's upload
// directory and registers it as a ready asset. Video files are probed
// for duration and dimensions.
func (s *Service) RegisterUpload(ctx context.Context, projectID, filename string, r io.Reader) (*Asset, error) {
	return s.RegisterMedia(ctx, projectID, filename, r, scenario.SourceUploaded)
}

// RegisterMedia stores a media file with an explicit source, so the
// generation runner can register fetched stock footage as suggested.
func (s *Service) RegisterMedia(ctx context.Context, projectID, filename string, r io.Reader, source scenario.AssetSource) (*Asset, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	filename = export.SanitizeName(filepath.Base(filename), 120)
	mediaType := MediaTypeForFilename(filename)
	if mediaType == "" {
		return nil, fmt.Errorf("unsupported media type for %q", filename)
	}

	assetID := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(filename))
	fileKey := filepath.Join(projectID, assetID+ext)
	dest := filepath.Join(s.uploadDir, fileKey)

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	if err := s.writeUpload(dest, r); err != nil {
		return nil, err
	}

	fingerprint, err := computeFingerprint(dest)
	if err != nil {
		os.Remove(dest)
		return nil, err
	}

	asset := &Asset{
		ID:          assetID,
		ProjectID:   projectID,
		FileKey:     fileKey,
		Filename:    filename,
		MediaType:   mediaType,
		Source:      source,
		Status:      scenario.StatusReady,
		Fingerprint: fingerprint,
		CreatedAt:   time.Now(),
	}

	if mediaType == "video" && s.prober != nil {
		if probe, err := s.prober.Probe(ctx, dest); err != nil {
			s.logger.Warn("probe failed for upload", "asset_id", assetID, "error", err)
		} else {
			asset.DurationSec = probe.Duration
			asset.Width = probe.Width
			asset.Height = probe.Height
		}
	}

	if err := s.repo.CreateAsset(ctx, asset); err != nil {
		os.Remove(dest)
		return nil, err
	}
	s.repo.TouchProject(ctx, projectID)

	s.logger.Info("asset registered",
		"asset_id", assetID,
		"project_id", projectID,
		"media_type", mediaType,
		"file_key", fileKey)
	return asset, nil
}

func (s *Service) writeUpload(dest string, r io.Reader) error {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	limit := s.maxUploadBytes
	if limit <= 0 {
		limit = 1 << 31
	}
	n, err := io.Copy(f, io.LimitReader(r, limit+1))
	if err != nil {
		os.Remove(dest)
		return fmt.Errorf("write upload: %w", err)
	}
	if n > limit {
		os.Remove(dest)
		return ErrUploadTooLarge
	}
	return nil
}

// AssetPath resolves an asset's absolute on-disk path.
func (s *Service) AssetPath(a *Asset) string {
	return filepath.Join(s.uploadDir, a.FileKey)
}

// AssetMap snapshots the project's assets for one validate or render
// pass.
func (s *Service) AssetMap(ctx context.Context, projectID string) (scenario.AssetMap, error) {
	list, err := s.repo.ListAssetsByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	m := make(scenario.AssetMap, len(list))
	for _, a := range list {
		m[a.ID] = scenario.ResolvedAsset{
			ID:     a.ID,
			Path:   s.AssetPath(a),
			Status: a.Status,
		}
	}
	return m, nil
}

// SaveScenario validates and persists a scenario document, assigning
// the next version. A submitted non-zero version must equal the next
// version or the save is rejected as stale.
func (s *Service) SaveScenario(ctx context.Context, projectID string, sc *scenario.Scenario) (*scenario.Scenario, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	stored, _, err := s.repo.GetScenario(ctx, projectID)
	if err != nil {
		return nil, err
	}
	next := stored + 1
	if sc.Version != 0 && sc.Version != next {
		return nil, &VersionConflictError{Stored: stored, Submitted: sc.Version}
	}
	sc.Version = next

	assetMap, err := s.AssetMap(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if verrs := scenario.Validate(sc, assetMap); len(verrs) > 0 {
		return nil, &ValidationFailedError{Errors: verrs}
	}

	doc, err := json.Marshal(sc)
	if err != nil {
		return nil, fmt.Errorf("marshal scenario: %w", err)
	}
	if err := s.repo.SaveScenario(ctx, projectID, sc.Version, string(doc)); err != nil {
		return nil, err
	}
	s.repo.TouchProject(ctx, projectID)

	s.logger.Info("scenario saved", "project_id", projectID, "version", sc.Version)
	return sc, nil
}

// GetScenario loads the current scenario document for a project.
func (s *Service) GetScenario(ctx context.Context, projectID string) (*scenario.Scenario, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	version, doc, err := s.repo.GetScenario(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, ErrNoScenario
	}

	var sc scenario.Scenario
	if err := json.Unmarshal([]byte(doc), &sc); err != nil {
		return nil, fmt.Errorf("decode stored scenario: %w", err)
	}
	return &sc, nil
}

func computeFingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, io.LimitReader(f, fingerprintSize)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
