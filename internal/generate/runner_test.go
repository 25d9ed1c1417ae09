package generate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/cutroom/renderd/internal/assets"
	"github.com/cutroom/renderd/internal/db"
	"github.com/cutroom/renderd/internal/scenario"
	"github.com/cutroom/renderd/internal/stock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupGenerate(t *testing.T) (Repository, *assets.Service, *assets.Project) {
	t.Helper()
	dir := t.TempDir()
	database, err := db.New(filepath.Join(dir, "test.db"), nil)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	assetSvc := assets.NewService(assets.NewRepository(database.Conn()), nil,
		filepath.Join(dir, "uploads"), 10<<20, discardLogger())
	project, err := assetSvc.CreateProject(context.Background(), "Gen Test")
	if err != nil {
		t.Fatal(err)
	}
	return NewRepository(database.Conn()), assetSvc, project
}

func suggestedScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Metadata: scenario.Metadata{Name: "Gen"},
		Layers: []scenario.Layer{
			{ID: "video_main", Type: scenario.LayerVideo,
				Segments: []scenario.Segment{
					{ID: "seg_stock", StartSec: 0, EndSec: 5,
						AssetSource: scenario.SourceSuggested, AssetStatus: scenario.StatusPending,
						Params: scenario.SegmentParams{Query: "city skyline"}},
					{ID: "seg_has_asset", StartSec: 5, EndSec: 10, AssetID: "a1",
						AssetSource: scenario.SourceSuggested, AssetStatus: scenario.StatusReady},
					{ID: "seg_no_query", StartSec: 10, EndSec: 12,
						AssetSource: scenario.SourceSuggested, AssetStatus: scenario.StatusPending},
				}},
			{ID: "images", Type: scenario.LayerImage,
				Segments: []scenario.Segment{
					{ID: "seg_img", StartSec: 0, EndSec: 3,
						AssetSource: scenario.SourceSuggested, AssetStatus: scenario.StatusPending,
						Params: scenario.SegmentParams{Query: "mountain photo"}},
				}},
		},
	}
}

func TestEnqueueFromScenario(t *testing.T) {
	repo, _, project := setupGenerate(t)
	ctx := context.Background()

	created, err := EnqueueFromScenario(ctx, repo, project.ID, suggestedScenario())
	if err != nil {
		t.Fatalf("EnqueueFromScenario: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("created %d tasks, want 2", len(created))
	}

	byID := map[string]*Task{}
	for _, task := range created {
		byID[task.SegmentID] = task
	}
	if task := byID["seg_stock"]; task == nil || task.TaskType != TaskTypeStockVideo || task.Query != "city skyline" {
		t.Errorf("video task = %+v", task)
	}
	if task := byID["seg_img"]; task == nil || task.TaskType != TaskTypeStockImage {
		t.Errorf("image task = %+v", task)
	}

	// Re-enqueueing the same scenario creates nothing new.
	again, err := EnqueueFromScenario(ctx, repo, project.ID, suggestedScenario())
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 0 {
		t.Errorf("duplicate enqueue created %d tasks", len(again))
	}
}

func TestProcessTaskRegistersAsset(t *testing.T) {
	repo, assetSvc, project := setupGenerate(t)
	ctx := context.Background()

	created, err := EnqueueFromScenario(ctx, repo, project.ID, suggestedScenario())
	if err != nil {
		t.Fatal(err)
	}

	runner := NewRunner(repo, assetSvc, stock.NewStubClient(discardLogger()), time.Second, discardLogger())
	if err := runner.ProcessTask(ctx, created[0]); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}

	task, err := repo.GetTask(ctx, created[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != TaskStatusReady {
		t.Errorf("status = %q (error %q)", task.Status, task.Error)
	}
	if task.AssetID == "" {
		t.Fatal("asset not recorded on task")
	}

	asset, err := assetSvc.GetAsset(ctx, task.AssetID)
	if err != nil {
		t.Fatal(err)
	}
	if asset.Source != scenario.SourceSuggested {
		t.Errorf("asset source = %q", asset.Source)
	}
}

type failingStock struct{}

func (failingStock) FetchVideo(ctx context.Context, query string, maxDurationSec int, destDir string) (*stock.Media, error) {
	return nil, stock.ErrNotFound
}

func (failingStock) FetchImage(ctx context.Context, query string, destDir string) (*stock.Media, error) {
	return nil, stock.ErrNotFound
}

func TestProcessTaskFailure(t *testing.T) {
	repo, assetSvc, project := setupGenerate(t)
	ctx := context.Background()

	created, err := EnqueueFromScenario(ctx, repo, project.ID, suggestedScenario())
	if err != nil {
		t.Fatal(err)
	}

	runner := NewRunner(repo, assetSvc, failingStock{}, time.Second, discardLogger())
	if err := runner.ProcessTask(ctx, created[0]); !errors.Is(err, stock.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	task, _ := repo.GetTask(ctx, created[0].ID)
	if task.Status != TaskStatusError {
		t.Errorf("status = %q", task.Status)
	}
	if task.Error == "" {
		t.Error("error message not recorded")
	}
}

func TestRunnerPauseResume(t *testing.T) {
	repo, assetSvc, _ := setupGenerate(t)
	runner := NewRunner(repo, assetSvc, stock.NewStubClient(discardLogger()), 10*time.Millisecond, discardLogger())

	if runner.IsPaused() {
		t.Error("runner starts paused")
	}
	runner.Pause()
	if !runner.IsPaused() {
		t.Error("Pause did not take effect")
	}
	runner.Resume()
	if runner.IsPaused() {
		t.Error("Resume did not take effect")
	}
}

func TestRunnerStartStop(t *testing.T) {
	repo, assetSvc, _ := setupGenerate(t)
	runner := NewRunner(repo, assetSvc, stock.NewStubClient(discardLogger()), 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runner.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for !runner.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !runner.IsRunning() {
		t.Fatal("runner never started")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
	if runner.IsRunning() {
		t.Error("runner still reports running after stop")
	}
}
