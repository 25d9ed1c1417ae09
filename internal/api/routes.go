package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cutroom/renderd/internal/assets"
	"github.com/cutroom/renderd/internal/compile"
	"github.com/cutroom/renderd/internal/generate"
	"github.com/cutroom/renderd/internal/render"
	"github.com/cutroom/renderd/internal/scenario"
)

const maxUploadMemory = 32 << 20

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.AssetRepo, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Get("/styles", stylesHandler(cfg))

		r.Post("/projects", createProjectHandler(cfg))
		r.Get("/projects", listProjectsHandler(cfg))
		r.Get("/projects/{id}", getProjectHandler(cfg))
		r.Post("/projects/{id}/assets", uploadAssetHandler(cfg))
		r.Get("/projects/{id}/assets", listAssetsHandler(cfg))
		r.Get("/projects/{id}/scenario", getScenarioHandler(cfg))
		r.Put("/projects/{id}/scenario", saveScenarioHandler(cfg))
		r.Post("/projects/{id}/render", renderHandler(cfg))
		r.Get("/projects/{id}/render/jobs", listRenderJobsHandler(cfg))
		r.Get("/projects/{id}/generate/tasks", listGenerateTasksHandler(cfg))

		r.Get("/render/jobs/{id}", getRenderJobHandler(cfg))
		r.Post("/render/jobs/{id}/cancel", cancelRenderJobHandler(cfg))

		r.Post("/generate/pause", pauseGenerateHandler(cfg))
		r.Post("/generate/resume", resumeGenerateHandler(cfg))

		r.Get("/assets/{id}/file", assetFileHandler(cfg))
		r.Get("/outputs/*", outputHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:    "ok",
			Version:   "0.1.0",
			UptimeS:   uptime,
			ServiceID: cfg.ServiceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		projects, _ := cfg.AssetService.ListProjects(ctx)
		jobs, _ := cfg.RenderRepo.ListRecentJobs(ctx, 10)

		state := "idle"
		var activeJob *RenderJobResponse
		jobsRunning := 0
		lastError := ""

		for _, j := range jobs {
			if j.Status == render.JobStatusRunning {
				state = "rendering"
				resp := RenderJobToResponse(j)
				activeJob = &resp
				jobsRunning++
			}
			if j.Status == render.JobStatusFailed && lastError == "" {
				lastError = j.Error
			}
		}

		if lastError != "" && state == "idle" {
			state = "error"
		}

		resp := StatusResponse{
			State:         state,
			LastError:     lastError,
			ProjectsCount: len(projects),
			JobsRunning:   jobsRunning,
			ActiveJob:     activeJob,
		}

		if cfg.GenerateRunner != nil {
			resp.GeneratePaused = cfg.GenerateRunner.IsPaused()
		}

		if cfg.Doctor != nil {
			caps, err := cfg.Doctor.Get(ctx)
			if err == nil && caps != nil {
				resp.Engine = &EngineInfoResponse{
					FFmpegVersion: caps.FFmpegVersion,
					HasDrawtext:   caps.HasDrawtext,
					HasSubtitles:  caps.HasSubtitles,
					LastProbeAt:   caps.ProbedAt.Format(time.RFC3339),
				}
			}
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func stylesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names := cfg.Styles.Names()
		resp := StylesResponse{Presets: make([]StylePresetResponse, 0, len(names))}
		for _, name := range names {
			spec, ok := cfg.Styles.Lookup(name)
			if !ok {
				continue
			}
			resp.Presets = append(resp.Presets, StylePresetResponse{Name: name, Style: spec})
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func createProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		project, err := cfg.AssetService.CreateProject(r.Context(), req.Name)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusCreated, ProjectToResponse(project))
	}
}

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := cfg.AssetService.ListProjects(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list projects", "INTERNAL_ERROR")
			return
		}

		resp := ProjectsResponse{Projects: make([]ProjectResponse, len(projects))}
		for i, p := range projects {
			resp.Projects[i] = ProjectToResponse(p)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project, err := cfg.AssetService.GetProject(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, assets.ErrProjectNotFound) {
				WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, ProjectToResponse(project))
	}
}

func uploadAssetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")

		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid multipart body", "BAD_REQUEST")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			WriteError(w, http.StatusBadRequest, "multipart field 'file' is required", "BAD_REQUEST")
			return
		}
		defer file.Close()

		asset, err := cfg.AssetService.RegisterUpload(r.Context(), projectID, header.Filename, file)
		if err != nil {
			switch {
			case errors.Is(err, assets.ErrProjectNotFound):
				WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			case errors.Is(err, assets.ErrUploadTooLarge):
				WriteError(w, http.StatusRequestEntityTooLarge, err.Error(), "UPLOAD_TOO_LARGE")
			default:
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			}
			return
		}

		WriteJSON(w, http.StatusCreated, AssetToResponse(asset))
	}
}

func listAssetsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := cfg.AssetService.ListAssets(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, assets.ErrProjectNotFound) {
				WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		resp := AssetsResponse{Assets: make([]AssetResponse, len(list))}
		for i, a := range list {
			resp.Assets[i] = AssetToResponse(a)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getScenarioHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")
		sc, err := cfg.AssetService.GetScenario(r.Context(), projectID)
		if err != nil {
			switch {
			case errors.Is(err, assets.ErrProjectNotFound):
				WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			case errors.Is(err, assets.ErrNoScenario):
				WriteError(w, http.StatusNotFound, "project has no scenario", "NO_SCENARIO")
			default:
				WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			}
			return
		}
		WriteJSON(w, http.StatusOK, ScenarioResponse{ProjectID: projectID, Scenario: sc})
	}
}

func saveScenarioHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")

		var sc scenario.Scenario
		if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid scenario document", "BAD_REQUEST")
			return
		}

		saved, err := cfg.AssetService.SaveScenario(r.Context(), projectID, &sc)
		if err != nil {
			var validationErr *assets.ValidationFailedError
			var versionErr *assets.VersionConflictError
			switch {
			case errors.Is(err, assets.ErrProjectNotFound):
				WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			case errors.As(err, &validationErr):
				WriteErrorDetails(w, http.StatusUnprocessableEntity, ErrorResponse{
					Error:   "scenario validation failed",
					Code:    "VALIDATION_FAILED",
					Details: validationErr.Errors,
				})
			case errors.As(err, &versionErr):
				WriteError(w, http.StatusConflict, versionErr.Error(), "VERSION_CONFLICT")
			default:
				WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			}
			return
		}

		queued := 0
		if cfg.GenerateRepo != nil {
			tasks, err := generate.EnqueueFromScenario(r.Context(), cfg.GenerateRepo, projectID, saved)
			if err != nil {
				cfg.Logger.Error("failed to enqueue stock fetches", "error", err, "project_id", projectID)
			} else {
				queued = len(tasks)
			}
		}

		WriteJSON(w, http.StatusOK, SaveScenarioResponse{
			ProjectID:     projectID,
			Version:       saved.Version,
			QueuedFetches: queued,
		})
	}
}

func renderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")

		var req RenderRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
				return
			}
		}

		job, err := cfg.RenderService.Render(r.Context(), projectID, req.Version)
		if err != nil {
			var blockedErr *compile.BlockedError
			var conflictErr *render.ConflictError
			switch {
			case errors.Is(err, assets.ErrProjectNotFound):
				WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			case errors.Is(err, assets.ErrNoScenario):
				WriteError(w, http.StatusNotFound, "project has no scenario", "NO_SCENARIO")
			case errors.As(err, &blockedErr):
				WriteErrorDetails(w, http.StatusConflict, ErrorResponse{
					Error:      blockedErr.Error(),
					Code:       "RENDER_BLOCKED",
					SegmentIDs: blockedErr.SegmentIDs,
				})
			case errors.As(err, &conflictErr):
				WriteError(w, http.StatusConflict, conflictErr.Error(), "VERSION_CONFLICT")
			default:
				WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			}
			return
		}

		WriteJSON(w, http.StatusAccepted, RenderJobToResponse(job))
	}
}

func listRenderJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := cfg.RenderService.ListJobs(r.Context(), chi.URLParam(r, "id"), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list render jobs", "INTERNAL_ERROR")
			return
		}

		resp := RenderJobsResponse{Jobs: make([]RenderJobResponse, len(jobs))}
		for i, j := range jobs {
			resp.Jobs[i] = RenderJobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getRenderJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := cfg.RenderService.GetJob(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, render.ErrJobNotFound) {
				WriteError(w, http.StatusNotFound, "render job not found", "NOT_FOUND")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, RenderJobToResponse(job))
	}
}

func cancelRenderJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := cfg.RenderService.Cancel(r.Context(), id); err != nil {
			switch {
			case errors.Is(err, render.ErrJobNotFound):
				WriteError(w, http.StatusNotFound, "render job not found", "NOT_FOUND")
			case errors.Is(err, render.ErrNotCancellable):
				WriteError(w, http.StatusConflict, err.Error(), "NOT_CANCELLABLE")
			default:
				WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			}
			return
		}

		job, err := cfg.RenderService.GetJob(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, RenderJobToResponse(job))
	}
}

func listGenerateTasksHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tasks, err := cfg.GenerateRepo.ListTasksByProject(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list generation tasks", "INTERNAL_ERROR")
			return
		}

		resp := GenerateTasksResponse{Tasks: make([]GenerateTaskResponse, len(tasks))}
		for i, t := range tasks {
			resp.Tasks[i] = GenerateTaskToResponse(t)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func pauseGenerateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.GenerateRunner == nil {
			WriteError(w, http.StatusServiceUnavailable, "generation runner not available", "UNAVAILABLE")
			return
		}
		cfg.GenerateRunner.Pause()
		WriteJSON(w, http.StatusOK, map[string]bool{"paused": true})
	}
}

func resumeGenerateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.GenerateRunner == nil {
			WriteError(w, http.StatusServiceUnavailable, "generation runner not available", "UNAVAILABLE")
			return
		}
		cfg.GenerateRunner.Resume()
		WriteJSON(w, http.StatusOK, map[string]bool{"paused": false})
	}
}

func assetFileHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		asset, err := cfg.AssetService.GetAsset(r.Context(), id)
		if err != nil {
			if errors.Is(err, assets.ErrAssetNotFound) {
				WriteError(w, http.StatusNotFound, "asset not found", "NOT_FOUND")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if err := cfg.AssetPlayback.ServeKey(w, r, asset.FileKey); err != nil {
			cfg.Logger.Error("asset playback error", "error", err, "asset_id", id)
		}
	}
}

func outputHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		if key == "" {
			WriteError(w, http.StatusBadRequest, "output key required", "BAD_REQUEST")
			return
		}
		if err := cfg.PlaybackServer.ServeKey(w, r, key); err != nil {
			cfg.Logger.Error("playback error", "error", err, "key", key)
		}
	}
}
