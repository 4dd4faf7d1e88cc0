package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/thinktok/thinktok/internal/catalog"
	"github.com/thinktok/thinktok/internal/subtitle"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist())

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Post("/queue/pause", queueHandler(cfg, true))
		r.Post("/queue/resume", queueHandler(cfg, false))
		r.Get("/runs", listRunsHandler(cfg))
		r.Post("/runs", createRunHandler(cfg))
		r.Get("/runs/{id}", getRunHandler(cfg))
		r.Get("/runs/{id}/captions", captionsHandler(cfg))
		r.Post("/runs/{id}/export", exportHandler(cfg))
	})

	r.Group(func(r chi.Router) {
		r.Use(LoopbackGuard())

		video := mediaHandler(cfg, func(run *catalog.Run) string { return run.VideoPath })
		subs := mediaHandler(cfg, func(run *catalog.Run) string { return run.SubtitlePath })
		r.Get("/runs/{id}/video", video)
		r.Head("/runs/{id}/video", video)
		r.Get("/runs/{id}/subtitles", subs)
		r.Head("/runs/{id}/subtitles", subs)
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		resp := StatusResponse{State: "idle", ActiveRuns: []ActiveRun{}}

		if pending, err := cfg.Repository.ListPendingRuns(ctx); err == nil {
			resp.PendingRuns = len(pending)
		}
		if cfg.Stages != nil {
			for _, st := range cfg.Stages.Active() {
				resp.ActiveRuns = append(resp.ActiveRuns, ActiveRun{
					Key:     st.Key,
					Script:  st.Script,
					Stage:   st.Stage,
					Started: st.Started.Format(time.RFC3339),
				})
			}
		}

		recent, _ := cfg.Repository.ListRuns(ctx, 1)
		if len(recent) > 0 && recent[0].Status == catalog.RunStatusFailed {
			resp.LastError = recent[0].Error
		}

		switch {
		case len(resp.ActiveRuns) > 0:
			resp.State = "generating"
		case cfg.Runner != nil && cfg.Runner.IsPaused():
			resp.State = "paused"
		case resp.LastError != "":
			resp.State = "error"
		}

		if cfg.Doctor != nil {
			caps := cfg.Doctor.Get(ctx)
			if caps != nil && !caps.ProbedAt.IsZero() {
				resp.Tools = &ToolsResponse{
					Ready:          caps.Ready(),
					FFmpegVersion:  caps.FFmpeg.Version,
					FFprobeVersion: caps.FFprobe.Version,
					LastProbeAt:    caps.ProbedAt.Format(time.RFC3339),
				}
			}
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func queueHandler(cfg ServerConfig, pause bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Runner == nil {
			WriteError(w, http.StatusServiceUnavailable, "run queue not available", "UNAVAILABLE")
			return
		}
		if pause {
			cfg.Runner.Pause()
		} else {
			cfg.Runner.Resume()
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listRunsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				WriteError(w, http.StatusBadRequest, "limit must be a positive integer", "BAD_REQUEST")
				return
			}
			limit = n
		}

		runs, err := cfg.CatalogService.GetRuns(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list runs", "INTERNAL_ERROR")
			return
		}

		resp := RunsResponse{Runs: make([]RunResponse, len(runs))}
		for i, run := range runs {
			resp.Runs[i] = RunToResponse(run)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func createRunHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.ScriptPath == "" {
			WriteError(w, http.StatusBadRequest, "script_path is required", "BAD_REQUEST")
			return
		}
		if req.Options.SpeedFactor < 0 || req.Options.Workers < 0 {
			WriteError(w, http.StatusBadRequest, "speed_factor and workers must not be negative", "BAD_REQUEST")
			return
		}

		run, err := cfg.CatalogService.QueueRun(r.Context(), req.ScriptPath, req.OutputDir, req.Options)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusAccepted, CreateRunResponse{RunID: run.ID})
	}
}

func getRunHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := cfg.CatalogService.GetRunDetail(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, catalog.ErrRunNotFound) {
			WriteError(w, http.StatusNotFound, "run not found", "NOT_FOUND")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		resp := RunDetailResponse{
			Run:    RunToResponse(detail.Run),
			Lines:  detail.Lines,
			Scenes: detail.Scenes,
		}
		if resp.Lines == nil {
			resp.Lines = []*catalog.RunLine{}
		}
		if resp.Scenes == nil {
			resp.Scenes = []*catalog.RunScene{}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// completedRun loads the run named in the path and writes the error
// response itself when it is missing or not finished successfully.
func completedRun(cfg ServerConfig, w http.ResponseWriter, r *http.Request) *catalog.Run {
	run, err := cfg.CatalogService.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		return nil
	}
	if run == nil {
		WriteError(w, http.StatusNotFound, "run not found", "NOT_FOUND")
		return nil
	}
	if run.Status != catalog.RunStatusCompleted {
		WriteError(w, http.StatusConflict, "run is "+run.Status, "NOT_READY")
		return nil
	}
	return run
}

func captionsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run := completedRun(cfg, w, r)
		if run == nil {
			return
		}

		captions, err := subtitle.ReadFile(run.SubtitlePath)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to read subtitles", "INTERNAL_ERROR")
			return
		}

		resp := CaptionsResponse{Captions: make([]CaptionResponse, len(captions))}
		for i, c := range captions {
			resp.Captions[i] = CaptionToResponse(c)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func mediaHandler(cfg ServerConfig, pick func(*catalog.Run) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run := completedRun(cfg, w, r)
		if run == nil {
			return
		}

		path := pick(run)
		if path == "" {
			WriteError(w, http.StatusNotFound, "output not recorded", "NOT_FOUND")
			return
		}
		if err := cfg.PlaybackServer.ServeFile(w, r, path); err != nil {
			cfg.Logger.Error("playback error", "error", err, "run_id", run.ID)
		}
	}
}
