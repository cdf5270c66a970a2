package handler

import (
	"time"

	"github.com/evant/instance-state/internal/core/service"
	"github.com/evant/instance-state/internal/infra/buildinfo"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// StateStatusResponse is the body of GET /v1/state.
type StateStatusResponse struct {
	service.StoreStats
	Backend     string         `json:"backend"`
	LastPersist *time.Time     `json:"last_persist,omitempty"`
	Build       buildinfo.Info `json:"build"`
}

// SnapshotResponse is the body of GET /v1/state/save.
// Values are base64 encoded by encoding/json.
type SnapshotResponse struct {
	Keys    int               `json:"keys"`
	Entries map[string][]byte `json:"entries"`
}

// PersistResponse is the body of POST /v1/state/persist.
type PersistResponse struct {
	Backend string `json:"backend"`
	Keys    int    `json:"keys"`
}
