// Package render owns the render job lifecycle: compiling a scenario
// version into a task plan, executing it under a bounded worker pool,
// and serving repeat requests for the same version from the job cache.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/cutroom/renderd/internal/assets"
	"github.com/cutroom/renderd/internal/compile"
	"github.com/cutroom/renderd/internal/engine"
	"github.com/cutroom/renderd/internal/overlay"
	"github.com/cutroom/renderd/internal/scenario"
)

var (
	ErrJobNotFound    = errors.New("render job not found")
	ErrNotCancellable = errors.New("job is no longer cancellable")
)

// ConflictError reports a render request for a scenario version that is
// no longer current.
type ConflictError struct {
	RequestedVersion int
	CurrentVersion   int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("scenario version %d is superseded by version %d",
		e.RequestedVersion, e.CurrentVersion)
}

// Service compiles and executes render jobs. One job exists per
// (project, scenario version); repeat submissions join it.
type Service struct {
	repo     Repository
	assets   *assets.Service
	executor *engine.Executor
	styles   *overlay.Styles
	preset   string

	outputDir string
	workDir   string
	timeout   time.Duration

	// sem bounds concurrent ffmpeg pipelines.
	sem   chan struct{}
	group singleflight.Group
	wg    sync.WaitGroup

	mu      sync.Mutex
	cancels map[string]context.CancelFunc

	logger *slog.Logger
}

func NewService(repo Repository, assetSvc *assets.Service, executor *engine.Executor,
	styles *overlay.Styles, preset, outputDir, workDir string,
	workers int, timeout time.Duration, logger *slog.Logger) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		repo:      repo,
		assets:    assetSvc,
		executor:  executor,
		styles:    styles,
		preset:    preset,
		outputDir: outputDir,
		workDir:   workDir,
		timeout:   timeout,
		sem:       make(chan struct{}, workers),
		cancels:   make(map[string]context.CancelFunc),
		logger:    logger,
	}
}

// Render submits the project's current scenario for rendering. When a
// job for that scenario version already exists and has not failed, it
// is returned instead of starting a new render. requestedVersion 0
// means "whatever is current"; a stale non-zero version is rejected.
func (s *Service) Render(ctx context.Context, projectID string, requestedVersion int) (*Job, error) {
	sc, err := s.assets.GetScenario(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if requestedVersion != 0 && requestedVersion != sc.Version {
		return nil, &ConflictError{RequestedVersion: requestedVersion, CurrentVersion: sc.Version}
	}

	fingerprint := Fingerprint(projectID, sc.Version)

	// singleflight collapses concurrent submissions racing between the
	// cache lookup and job creation.
	v, err, _ := s.group.Do(fingerprint, func() (any, error) {
		existing, err := s.repo.GetJobByFingerprint(ctx, fingerprint)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.logger.Info("render cache hit",
				"job_id", existing.ID,
				"fingerprint", fingerprint,
				"status", existing.Status)
			return existing, nil
		}

		assetMap, err := s.assets.AssetMap(ctx, projectID)
		if err != nil {
			return nil, err
		}
		tasks, err := compile.Compile(sc, assetMap, s.styles, s.preset)
		if err != nil {
			return nil, err
		}

		now := time.Now()
		job := &Job{
			ID:              uuid.NewString(),
			ProjectID:       projectID,
			ScenarioVersion: sc.Version,
			Fingerprint:     fingerprint,
			Status:          JobStatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.repo.CreateJob(ctx, job); err != nil {
			return nil, err
		}

		// Execution detaches from the request context; the job's own
		// context carries the render timeout and cancellation.
		jobCtx, cancel := context.WithCancel(context.Background())
		s.mu.Lock()
		s.cancels[job.ID] = cancel
		s.mu.Unlock()

		s.wg.Add(1)
		go s.execute(jobCtx, job, sc, tasks)

		s.logger.Info("render job created",
			"job_id", job.ID,
			"project_id", projectID,
			"version", sc.Version,
			"tasks", len(tasks))
		return job, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Job), nil
}

func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return job, nil
}

func (s *Service) ListJobs(ctx context.Context, projectID string, limit int) ([]*Job, error) {
	return s.repo.ListJobsByProject(ctx, projectID, limit)
}

// Cancel stops a pending or running job. The executor honors the
// cancellation at the next task boundary.
func (s *Service) Cancel(ctx context.Context, jobID string) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if !job.Active() {
		return ErrNotCancellable
	}

	s.mu.Lock()
	cancel, ok := s.cancels[jobID]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	s.logger.Info("render job cancel requested", "job_id", jobID)
	return nil
}

// OutputPath resolves an output key to its on-disk location.
func (s *Service) OutputPath(outputKey string) string {
	return filepath.Join(s.outputDir, outputKey)
}

// Shutdown waits for in-flight renders to finish or the context to
// expire.
func (s *Service) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) execute(ctx context.Context, job *Job, sc *scenario.Scenario, tasks []compile.Task) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.cancels, job.ID)
		s.mu.Unlock()
	}()

	bg := context.Background()

	// Wait for a worker slot; a cancel during the wait still applies.
	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		s.repo.UpdateJobStatus(bg, job.ID, JobStatusCancelled, "cancelled before start")
		return
	}

	// Another save may have superseded this version while the job was
	// queued; rendering it would waste a worker on a stale timeline.
	if current, err := s.assets.GetScenario(bg, job.ProjectID); err == nil && current.Version != job.ScenarioVersion {
		s.repo.UpdateJobStatus(bg, job.ID, JobStatusCancelled,
			fmt.Sprintf("superseded by version %d", current.Version))
		s.logger.Info("render job superseded",
			"job_id", job.ID,
			"job_version", job.ScenarioVersion,
			"current_version", current.Version)
		return
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.repo.UpdateJobStatus(bg, job.ID, JobStatusRunning, "")

	workDir := filepath.Join(s.workDir, job.ID)
	outputKey := fmt.Sprintf("%s_v%d.mp4", job.ProjectID, job.ScenarioVersion)
	outputPath := filepath.Join(s.outputDir, outputKey)
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		s.repo.UpdateJobStatus(bg, job.ID, JobStatusFailed, err.Error())
		return
	}

	start := time.Now()
	_, err := s.executor.Execute(ctx, tasks, workDir, outputPath, func(done, total int) {
		s.repo.UpdateJobProgress(bg, job.ID, done*100/total)
	})
	os.RemoveAll(workDir)

	switch {
	case err == nil:
		s.repo.SetJobOutput(bg, job.ID, outputKey)
		s.repo.UpdateJobStatus(bg, job.ID, JobStatusDone, "")
		// Sidecar snapshot of the exact timeline this output was cut
		// from, for provenance when the scenario moves on.
		snapshot := outputPath[:len(outputPath)-len(filepath.Ext(outputPath))] + ".yaml"
		if werr := scenario.WriteFile(sc, snapshot); werr != nil {
			s.logger.Warn("failed to write scenario snapshot", "job_id", job.ID, "error", werr)
		}
		s.logger.Info("render job done",
			"job_id", job.ID,
			"output_key", outputKey,
			"duration", time.Since(start).Round(time.Millisecond))
	case errors.Is(err, context.Canceled):
		s.repo.UpdateJobStatus(bg, job.ID, JobStatusCancelled, "cancelled")
		s.logger.Info("render job cancelled", "job_id", job.ID)
	case errors.Is(err, context.DeadlineExceeded):
		s.repo.UpdateJobStatus(bg, job.ID, JobStatusFailed, "render timeout exceeded")
		s.logger.Warn("render job timed out", "job_id", job.ID)
	default:
		s.repo.UpdateJobStatus(bg, job.ID, JobStatusFailed, err.Error())
		s.logger.Error("render job failed", "job_id", job.ID, "error", err)
	}
}
