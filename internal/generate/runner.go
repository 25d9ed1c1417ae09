package generate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cutroom/renderd/internal/assets"
	"github.com/cutroom/renderd/internal/scenario"
	"github.com/cutroom/renderd/internal/stock"
)

// EnqueueFromScenario creates generation tasks for suggested segments
// that carry a search query and no asset yet. Segments that already
// have an active task are skipped.
func EnqueueFromScenario(ctx context.Context, repo Repository, projectID string, sc *scenario.Scenario) ([]*Task, error) {
	var created []*Task
	for _, layer := range sc.Layers {
		for _, seg := range layer.Segments {
			if seg.AssetSource != scenario.SourceSuggested || seg.AssetID != "" {
				continue
			}
			if seg.Params.Query == "" {
				continue
			}

			existing, err := repo.GetTaskBySegment(ctx, projectID, seg.ID)
			if err != nil {
				return created, err
			}
			if existing != nil {
				continue
			}

			taskType := TaskTypeStockVideo
			if layer.Type == scenario.LayerImage {
				taskType = TaskTypeStockImage
			}
			now := time.Now()
			task := &Task{
				ID:        uuid.NewString(),
				ProjectID: projectID,
				SegmentID: seg.ID,
				TaskType:  taskType,
				Query:     seg.Params.Query,
				Status:    TaskStatusPending,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := repo.CreateTask(ctx, task); err != nil {
				return created, err
			}
			created = append(created, task)
		}
	}
	return created, nil
}

// Runner polls for pending generation tasks and fulfills them through
// the stock client.
type Runner struct {
	repo         Repository
	assets       *assets.Service
	stock        stock.Client
	logger       *slog.Logger
	pollInterval time.Duration
	running      atomic.Bool
	paused       atomic.Bool
}

func NewRunner(repo Repository, assetSvc *assets.Service, stockClient stock.Client, pollInterval time.Duration, logger *slog.Logger) *Runner {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Runner{
		repo:         repo,
		assets:       assetSvc,
		stock:        stockClient,
		logger:       logger,
		pollInterval: pollInterval,
	}
}

func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	r.logger.Info("generation runner started")

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("generation runner stopping")
			r.running.Store(false)
			return
		case <-ticker.C:
			if !r.paused.Load() {
				r.processNextTask(ctx)
			}
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("generation runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("generation runner resumed")
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

func (r *Runner) processNextTask(ctx context.Context) {
	tasks, err := r.repo.ListPendingTasks(ctx)
	if err != nil {
		r.logger.Error("failed to list pending generation tasks", "error", err)
		return
	}
	if len(tasks) == 0 {
		return
	}

	task := tasks[0]
	r.logger.Info("processing generation task",
		"task_id", task.ID,
		"type", task.TaskType,
		"query", task.Query)

	if err := r.ProcessTask(ctx, task); err != nil {
		r.logger.Error("generation task failed", "task_id", task.ID, "error", err)
	}
}

// ProcessTask fetches media for one task and registers the result as a
// suggested asset.
func (r *Runner) ProcessTask(ctx context.Context, task *Task) error {
	r.repo.UpdateTaskStatus(ctx, task.ID, TaskStatusGenerating, "")

	destDir, err := os.MkdirTemp("", "stock-fetch-")
	if err != nil {
		r.repo.UpdateTaskStatus(ctx, task.ID, TaskStatusError, err.Error())
		return err
	}
	defer os.RemoveAll(destDir)

	var media *stock.Media
	switch task.TaskType {
	case TaskTypeStockVideo:
		media, err = r.stock.FetchVideo(ctx, task.Query, 30, destDir)
	case TaskTypeStockImage:
		media, err = r.stock.FetchImage(ctx, task.Query, destDir)
	default:
		err = fmt.Errorf("unknown task type %q", task.TaskType)
	}
	if err != nil {
		r.repo.UpdateTaskStatus(ctx, task.ID, TaskStatusError, err.Error())
		return err
	}

	f, err := os.Open(media.Path)
	if err != nil {
		r.repo.UpdateTaskStatus(ctx, task.ID, TaskStatusError, err.Error())
		return err
	}
	defer f.Close()

	asset, err := r.assets.RegisterMedia(ctx, task.ProjectID, filepath.Base(media.Path), f, scenario.SourceSuggested)
	if err != nil {
		r.repo.UpdateTaskStatus(ctx, task.ID, TaskStatusError, err.Error())
		return err
	}

	r.repo.SetTaskAsset(ctx, task.ID, asset.ID)
	r.repo.UpdateTaskStatus(ctx, task.ID, TaskStatusReady, "")

	r.logger.Info("generation task completed",
		"task_id", task.ID,
		"asset_id", asset.ID,
		"segment_id", task.SegmentID)
	return nil
}
