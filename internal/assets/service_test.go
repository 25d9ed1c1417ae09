package assets

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cutroom/renderd/internal/db"
	"github.com/cutroom/renderd/internal/engine"
	"github.com/cutroom/renderd/internal/scenario"
)

func setupTestDB(t *testing.T) (*db.DB, Repository) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return database, NewRepository(database.Conn())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProber struct {
	result engine.ProbeResult
}

func (p *fakeProber) Probe(ctx context.Context, path string) (*engine.ProbeResult, error) {
	r := p.result
	return &r, nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	_, repo := setupTestDB(t)
	prober := &fakeProber{result: engine.ProbeResult{Duration: 12.5, Width: 1920, Height: 1080}}
	return NewService(repo, prober, t.TempDir(), 10<<20, discardLogger())
}

func TestCreateProject(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, "My Video")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if p.ID == "" {
		t.Error("project ID is empty")
	}

	got, err := svc.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got.Name != "My Video" {
		t.Errorf("name = %q", got.Name)
	}

	if _, err := svc.CreateProject(ctx, "  "); err == nil {
		t.Error("blank project name accepted")
	}
}

func TestGetProjectNotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetProject(context.Background(), "nope")
	if !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestRegisterUpload(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, "Upload Test")
	if err != nil {
		t.Fatal(err)
	}

	asset, err := svc.RegisterUpload(ctx, p.ID, "clip one.mp4", strings.NewReader("fake video content"))
	if err != nil {
		t.Fatalf("RegisterUpload: %v", err)
	}

	if asset.MediaType != "video" {
		t.Errorf("media type = %q", asset.MediaType)
	}
	if asset.Status != scenario.StatusReady {
		t.Errorf("status = %q", asset.Status)
	}
	if asset.DurationSec != 12.5 || asset.Width != 1920 {
		t.Errorf("probe metadata not applied: %+v", asset)
	}
	if asset.Fingerprint == "" {
		t.Error("fingerprint not computed")
	}

	data, err := os.ReadFile(svc.AssetPath(asset))
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if string(data) != "fake video content" {
		t.Errorf("stored content = %q", data)
	}

	list, err := svc.ListAssets(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != asset.ID {
		t.Errorf("assets = %+v", list)
	}
}

func TestRegisterUploadRejectsUnknownType(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p, _ := svc.CreateProject(ctx, "P")

	if _, err := svc.RegisterUpload(ctx, p.ID, "notes.txt", strings.NewReader("x")); err == nil {
		t.Fatal("unknown extension accepted")
	}
}

func TestRegisterUploadSizeLimit(t *testing.T) {
	_, repo := setupTestDB(t)
	svc := NewService(repo, nil, t.TempDir(), 8, discardLogger())
	ctx := context.Background()
	p, _ := svc.CreateProject(ctx, "P")

	_, err := svc.RegisterUpload(ctx, p.ID, "big.mp4", strings.NewReader("more than eight bytes"))
	if !errors.Is(err, ErrUploadTooLarge) {
		t.Fatalf("expected ErrUploadTooLarge, got %v", err)
	}
}

func uploadTestScenario(assetID string) *scenario.Scenario {
	return &scenario.Scenario{
		Metadata: scenario.Metadata{Name: "Test", TotalDurationSec: 5},
		Scenes: []scenario.Scene{
			{ID: "scene_1", StartSec: 0, EndSec: 5},
		},
		Layers: []scenario.Layer{
			{
				ID:   "video_main",
				Type: scenario.LayerVideo,
				Segments: []scenario.Segment{
					{ID: "seg_1", StartSec: 0, EndSec: 5, AssetID: assetID,
						AssetSource: scenario.SourceUploaded, AssetStatus: scenario.StatusReady,
						SceneID: "scene_1"},
				},
			},
		},
	}
}

func TestSaveScenarioAssignsVersions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p, _ := svc.CreateProject(ctx, "Versioning")
	asset, err := svc.RegisterUpload(ctx, p.ID, "a.mp4", strings.NewReader("v"))
	if err != nil {
		t.Fatal(err)
	}

	sc, err := svc.SaveScenario(ctx, p.ID, uploadTestScenario(asset.ID))
	if err != nil {
		t.Fatalf("SaveScenario: %v", err)
	}
	if sc.Version != 1 {
		t.Errorf("first version = %d", sc.Version)
	}

	sc2 := uploadTestScenario(asset.ID)
	sc2.Version = 2
	if _, err := svc.SaveScenario(ctx, p.ID, sc2); err != nil {
		t.Fatalf("second save: %v", err)
	}

	// A stale base is rejected.
	stale := uploadTestScenario(asset.ID)
	stale.Version = 2
	_, err = svc.SaveScenario(ctx, p.ID, stale)
	var conflict *VersionConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected VersionConflictError, got %v", err)
	}
	if conflict.Stored != 2 || conflict.Submitted != 2 {
		t.Errorf("conflict = %+v", conflict)
	}

	got, err := svc.GetScenario(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != 2 {
		t.Errorf("stored version = %d", got.Version)
	}
}

func TestSaveScenarioValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p, _ := svc.CreateProject(ctx, "Invalid")

	sc := uploadTestScenario("does-not-exist")
	_, err := svc.SaveScenario(ctx, p.ID, sc)
	var vfe *ValidationFailedError
	if !errors.As(err, &vfe) {
		t.Fatalf("expected ValidationFailedError, got %v", err)
	}
	if len(vfe.Errors) == 0 {
		t.Error("no validation errors reported")
	}
}

func TestGetScenarioMissing(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p, _ := svc.CreateProject(ctx, "Empty")

	_, err := svc.GetScenario(ctx, p.ID)
	if !errors.Is(err, ErrNoScenario) {
		t.Fatalf("expected ErrNoScenario, got %v", err)
	}
}

func TestMediaTypeForFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"video.mp4", "video"},
		{"video.MOV", "video"},
		{"photo.jpg", "image"},
		{"track.mp3", "audio"},
		{"document.pdf", ""},
		{"noextension", ""},
	}
	for _, tt := range tests {
		if got := MediaTypeForFilename(tt.filename); got != tt.want {
			t.Errorf("MediaTypeForFilename(%s) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
