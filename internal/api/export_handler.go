package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/thinktok/thinktok/internal/export"
	"github.com/thinktok/thinktok/internal/media"
)

func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		run := completedRun(cfg, w, r)
		if run == nil {
			return
		}

		title := export.SanitizeName(run.ScriptName, 120)
		if title == "" {
			title = "thinktok_export"
		}

		outputPath := strings.TrimSuffix(run.VideoPath, filepath.Ext(run.VideoPath)) + ".edl"
		if req.OutputDir != "" {
			if err := export.ValidateOutputDir(req.OutputDir); err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
			outputPath = filepath.Join(req.OutputDir, title+".edl")
		}

		frameRate := req.FrameRate
		if frameRate <= 0 {
			frameRate = export.DefaultFrameRate
			if run.Options.Fast {
				frameRate = float64(media.PresetFast.FPS)
			}
		}

		scenes, err := cfg.Repository.ListScenes(r.Context(), run.ID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		refs := make([]export.Scene, len(scenes))
		for i, s := range scenes {
			refs[i] = export.Scene{Ordinal: s.Ordinal, Lines: s.Lines, Start: s.Start, End: s.End}
		}

		clips := export.SceneClips(run.VideoPath, refs)
		if len(clips) == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "run has no scenes to export", "NO_SCENES")
			return
		}

		if err := export.WriteEDL(outputPath, clips, title, frameRate); err != nil {
			cfg.Logger.Error("edl export failed", "error", err, "run_id", run.ID)
			WriteError(w, http.StatusInternalServerError, "failed to write export file", "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusOK, export.Response{
			Status:     "ok",
			Format:     "edl",
			OutputPath: outputPath,
			ClipCount:  len(clips),
		})
	}
}
