package handler

import (
	"net/http"
	"time"

	"github.com/aqexport/aqexport/internal/api/response"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version, buildTime string) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
	}
}

// Health is the health check response body.
type Health struct {
	Status    string    `json:"status"`
	Time      time.Time `json:"time"`
	Version   string    `json:"version"`
	BuildTime string    `json:"buildTime,omitempty"`
}

// HealthCheck handles GET /health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, Health{
		Status:    "ok",
		Time:      time.Now().UTC(),
		Version:   h.version,
		BuildTime: h.buildTime,
	})
}
