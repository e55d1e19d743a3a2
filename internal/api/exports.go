package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/visitlog/internal/blob"
	"github.com/kalambet/visitlog/internal/export"
)

func handleCreateExport(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.Request
		if !decodeBody(w, r, &req) {
			return
		}

		res, err := deps.Exporter.Export(r.Context(), deps.Book.Reports.List(), req)
		if err != nil {
			format := "unknown"
			if f, perr := export.ParseFormat(string(req.Format)); perr == nil {
				format = string(f)
			}
			deps.Metrics.observeExport(format, exportOutcome(err))
			writeError(w, err)
			return
		}
		deps.Metrics.observeExport(string(res.Format), "written")
		writeJSON(w, http.StatusCreated, res)
	}
}

func exportOutcome(err error) string {
	switch {
	case errors.Is(err, export.ErrEmptyExportSet):
		return "empty"
	case errors.Is(err, export.ErrInvalidRequest):
		return "invalid"
	}
	return "failed"
}

func handleListExports(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		files, err := deps.Exporter.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if files == nil {
			files = []blob.Info{}
		}
		writeJSON(w, http.StatusOK, files)
	}
}

func handleDownloadExport(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		info, rc, err := deps.Exporter.Open(r.Context(), name)
		if err != nil {
			writeError(w, err)
			return
		}
		defer rc.Close()

		w.Header().Set("Content-Type", info.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Key))
		if info.Size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
		}
		if _, err := io.Copy(w, rc); err != nil {
			slog.Error("streaming export", "name", name, "error", err)
		}
	}
}
