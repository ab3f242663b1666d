// Package handler provides HTTP handlers for the export trigger API.
package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aqexport/aqexport/internal/api/middleware"
	"github.com/aqexport/aqexport/internal/api/models"
	"github.com/aqexport/aqexport/internal/api/response"
	"github.com/aqexport/aqexport/internal/pipeline"
)

// Runner executes one export run.
type Runner interface {
	Run(ctx context.Context) (*pipeline.RunResult, error)
}

// ExportHandler triggers pipeline runs over HTTP.
type ExportHandler struct {
	runner Runner
	logger zerolog.Logger
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(runner Runner, logger zerolog.Logger) *ExportHandler {
	return &ExportHandler{runner: runner, logger: logger}
}

// RunSummary is the response body for a completed run. Skipped cities
// still count as success; only infrastructure failure fails the request.
type RunSummary struct {
	Status          string `json:"status"`
	RunID           string `json:"run_id"`
	CitiesProcessed int    `json:"cities_processed"`
	CitiesSkipped   int    `json:"cities_skipped"`
	Records         int    `json:"records"`
	ObjectKey       string `json:"object_key,omitempty"`
	DurationMillis  int64  `json:"duration_ms"`
}

// TriggerExport handles POST /v1/export - runs the pipeline synchronously.
func (h *ExportHandler) TriggerExport(w http.ResponseWriter, r *http.Request) {
	result, err := h.runner.Run(r.Context())
	if err != nil {
		requestID := middleware.GetRequestID(r.Context())
		h.logger.Error().Err(err).Str("request_id", requestID).Msg("export run failed")

		problem := models.NewRunFailed(requestID, err.Error())
		problem.Instance = r.URL.Path
		problem.Write(w)
		return
	}

	response.JSON(w, http.StatusOK, RunSummary{
		Status:          "ok",
		RunID:           result.RunID,
		CitiesProcessed: result.CitiesProcessed,
		CitiesSkipped:   result.CitiesSkipped,
		Records:         result.Records,
		ObjectKey:       result.ObjectKey,
		DurationMillis:  result.Duration.Milliseconds(),
	})
}
