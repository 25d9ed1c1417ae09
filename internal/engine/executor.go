package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cutroom/renderd/internal/compile"
	"github.com/cutroom/renderd/internal/export"
)

// TaskState is the lifecycle of one task inside an execution.
type TaskState string

const (
	StatePending TaskState = "pending"
	StateRunning TaskState = "running"
	StateDone    TaskState = "done"
	StateFailed  TaskState = "failed"
)

// TaskReport is the final state of one task after Execute returns.
// Tasks after a failure stay pending; there are no retries.
type TaskReport struct {
	Type      compile.TaskType `json:"type"`
	SegmentID string           `json:"segment_id,omitempty"`
	State     TaskState        `json:"state"`
	Error     string           `json:"error,omitempty"`
}

// ExecutionError identifies which task of a plan failed.
type ExecutionError struct {
	Index int
	Type  compile.TaskType
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("task %d (%s): %v", e.Index, e.Type, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Executor interprets a compiled task list. It holds no scheduling
// logic of its own: tasks run strictly in order, one at a time, and
// cancellation is honored between tasks.
type Executor struct {
	engine Engine
	logger *slog.Logger
}

func NewExecutor(engine Engine, logger *slog.Logger) *Executor {
	return &Executor{engine: engine, logger: logger}
}

// Execute runs the plan. Intermediate files land in workDir; the final
// concat writes to outputPath. progress, when non-nil, is called after
// each completed task.
func (e *Executor) Execute(ctx context.Context, tasks []compile.Task, workDir, outputPath string, progress func(done, total int)) ([]TaskReport, error) {
	reports := make([]TaskReport, len(tasks))
	for i, t := range tasks {
		reports[i] = TaskReport{Type: t.Type, SegmentID: t.SegmentID, State: StatePending}
	}

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return reports, fmt.Errorf("create work dir: %w", err)
	}

	// Per-segment chain: each task reads the segment's current file and
	// replaces it with its own output.
	current := make(map[string]string)

	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		reports[i].State = StateRunning
		start := time.Now()
		err := e.runTask(ctx, i, task, current, workDir, outputPath)
		if err != nil {
			reports[i].State = StateFailed
			reports[i].Error = err.Error()
			return reports, &ExecutionError{Index: i, Type: task.Type, Err: err}
		}
		reports[i].State = StateDone
		e.logger.Debug("task done",
			"index", i,
			"type", task.Type,
			"segment", task.SegmentID,
			"duration", time.Since(start).Round(time.Millisecond))
		if progress != nil {
			progress(i+1, len(tasks))
		}
	}
	return reports, nil
}

func (e *Executor) runTask(ctx context.Context, i int, task compile.Task, current map[string]string, workDir, outputPath string) error {
	switch task.Type {
	case compile.TaskTrim:
		if task.Trim == nil {
			return fmt.Errorf("trim task missing params")
		}
		out := e.stepPath(workDir, i, "trim", task.SegmentID)
		if err := e.engine.Trim(ctx, task.Trim.AssetPath, out, task.Trim.StartSec, task.Trim.EndSec); err != nil {
			return err
		}
		current[task.SegmentID] = out
		return nil

	case compile.TaskTextOverlay:
		if task.Text == nil {
			return fmt.Errorf("text overlay task missing params")
		}
		src, ok := current[task.SegmentID]
		if !ok {
			return fmt.Errorf("segment %s has no trimmed input", task.SegmentID)
		}
		out := e.stepPath(workDir, i, "text", task.SegmentID)
		if err := e.engine.DrawText(ctx, src, out, *task.Text); err != nil {
			return err
		}
		current[task.SegmentID] = out
		return nil

	case compile.TaskSubtitles:
		if task.Subtitles == nil || len(task.Subtitles.Cues) == 0 {
			return fmt.Errorf("subtitle task has no cues")
		}
		src, ok := current[task.SegmentID]
		if !ok {
			return fmt.Errorf("segment %s has no trimmed input", task.SegmentID)
		}
		srtPath := filepath.Join(workDir, fmt.Sprintf("%03d_%s.srt", i, task.SegmentID))
		if err := export.WriteSRT(srtPath, task.Subtitles.Cues); err != nil {
			return err
		}
		defer os.Remove(srtPath)

		out := e.stepPath(workDir, i, "subs", task.SegmentID)
		if err := e.engine.BurnSubtitles(ctx, src, out, srtPath); err != nil {
			return err
		}
		current[task.SegmentID] = out
		return nil

	case compile.TaskConcat:
		if task.Concat == nil || len(task.Concat.Inputs) == 0 {
			return fmt.Errorf("concat task has no inputs")
		}
		inputs := make([]string, 0, len(task.Concat.Inputs))
		for _, segID := range task.Concat.Inputs {
			path, ok := current[segID]
			if !ok {
				return fmt.Errorf("concat input %s has no processed file", segID)
			}
			inputs = append(inputs, path)
		}
		return e.engine.Concat(ctx, inputs, outputPath)

	default:
		return fmt.Errorf("unknown task type %q", task.Type)
	}
}

func (e *Executor) stepPath(workDir string, i int, op, segID string) string {
	return filepath.Join(workDir, fmt.Sprintf("%03d_%s_%s.mp4", i, op, segID))
}
