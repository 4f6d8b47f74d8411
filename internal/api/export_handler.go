package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/digest-agent/internal/export"
)

func exportSummaryHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.ExportRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		format := strings.ToLower(strings.TrimSpace(req.Format))
		if format == "" {
			format = export.FormatMarkdown
		}
		if !export.ValidFormat(format) {
			WriteError(w, http.StatusBadRequest, "format must be one of md, txt, docx", "BAD_REQUEST")
			return
		}

		outputDir, err := export.ResolveOutputDir(req.OutputDir, cfg.ExportDir)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		id := chi.URLParam(r, "id")
		summary, err := cfg.CatalogService.GetSummary(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if summary == nil {
			WriteError(w, http.StatusNotFound, "summary not found", "NOT_FOUND")
			return
		}

		doc := export.Document{
			VideoID:    summary.VideoID,
			YouTubeURL: summary.YouTubeURL,
			Summary:    summary.Summary,
			Backend:    summary.Backend,
			Model:      summary.Model,
			ChunkCount: summary.ChunkCount,
			CreatedAt:  summary.CreatedAt,
		}

		outputPath, err := export.Write(doc, format, outputDir, export.FileName(req.FileName, summary.VideoID, format))
		if err != nil {
			cfg.Logger.Error("export failed", "summary_id", id, "format", format, "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to write export file", "INTERNAL_ERROR")
			return
		}

		var size int64
		if info, err := os.Stat(outputPath); err == nil {
			size = info.Size()
		}

		WriteJSON(w, http.StatusOK, export.ExportResponse{
			Status:     "ok",
			Format:     format,
			SummaryID:  id,
			OutputPath: outputPath,
			Bytes:      size,
		})
	}
}
