// Package models defines the API response shapes.
package models

import (
	"encoding/json"
	"net/http"
)

// Problem represents an RFC7807 error response, written with
// Content-Type: application/problem+json.
type Problem struct {
	// Type is a URI reference that identifies the problem type.
	Type string `json:"type"`

	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`

	// Status is the HTTP status code for this occurrence of the problem.
	Status int `json:"status"`

	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`

	// Instance is a URI reference that identifies the specific occurrence.
	Instance string `json:"instance,omitempty"`

	// RequestID is the request identifier for debugging.
	RequestID string `json:"requestId"`
}

// ProblemType constants for standard error types.
const (
	ProblemTypeTooManyRequests = "https://aqexport.dev/problems/too-many-requests"
	ProblemTypeInternal        = "https://aqexport.dev/problems/internal-error"
	ProblemTypeRunFailed       = "https://aqexport.dev/problems/export-run-failed"
)

// NewInternalError creates a Problem for an unexpected server error.
func NewInternalError(requestID, detail string) *Problem {
	return &Problem{
		Type:      ProblemTypeInternal,
		Title:     "Internal Server Error",
		Status:    http.StatusInternalServerError,
		Detail:    detail,
		RequestID: requestID,
	}
}

// NewRunFailed creates a Problem for a failed export run.
func NewRunFailed(requestID, detail string) *Problem {
	return &Problem{
		Type:      ProblemTypeRunFailed,
		Title:     "Export Run Failed",
		Status:    http.StatusInternalServerError,
		Detail:    detail,
		RequestID: requestID,
	}
}

// NewTooManyRequests creates a Problem for a rate-limited request.
func NewTooManyRequests(requestID string) *Problem {
	return &Problem{
		Type:      ProblemTypeTooManyRequests,
		Title:     "Too Many Requests",
		Status:    http.StatusTooManyRequests,
		RequestID: requestID,
	}
}

// Write writes the Problem as JSON to the ResponseWriter.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
