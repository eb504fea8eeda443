package net

import (
	"encoding/json"
	"net/http"

	perr "claimguard/internal/platform/errors"
)

// Envelope is the body of every json response the api writes, failures included
type Envelope struct {
	StatusCode int            `json:"status_code"`
	Status     string         `json:"status"`
	Code       perr.ErrorCode `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
	Field      string         `json:"field,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Data       any            `json:"data,omitempty"`
}

// Success wraps data under status
func Success(status int, data any, reqID string) Envelope {
	return Envelope{StatusCode: status, Status: http.StatusText(status), RequestID: reqID, Data: data}
}

// Failure maps err to its status and wire code
func Failure(err error, reqID string) Envelope {
	status := perr.HTTPStatus(err)
	w := perr.WireFrom(err)
	return Envelope{
		StatusCode: status,
		Status:     http.StatusText(status),
		Code:       w.Code,
		Error:      w.Message,
		Field:      w.Field,
		RequestID:  reqID,
	}
}

// WriteJSON writes v with status
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteEnvelope writes e under its own status
func WriteEnvelope(w http.ResponseWriter, e Envelope) { WriteJSON(w, e.StatusCode, e) }
