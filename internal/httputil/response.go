// Package httputil provides JSON request and response helpers shared by the
// HTTP API and its middleware.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	apperrors "github.com/R3E-Network/vybe_engagement/internal/errors"
)

// MaxBodyBytes bounds request bodies read by ReadJSON.
const MaxBodyBytes = 1 << 20

// RetryAfterSeconds is advertised on 503 responses.
const RetryAfterSeconds = 1

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
	TraceID string                 `json:"trace_id,omitempty"`
}

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteErrorResponse writes an ErrorBody. The trace id is taken from the
// X-Trace-ID response header when the logging middleware has set one.
func WriteErrorResponse(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
	}
	WriteJSON(w, status, ErrorBody{
		Error:   message,
		Code:    code,
		Details: details,
		TraceID: w.Header().Get("X-Trace-ID"),
	})
}

// WriteError maps err onto its ServiceError status. Errors outside the
// taxonomy are reported as 500 without leaking their text.
func WriteError(w http.ResponseWriter, err error) {
	se := apperrors.GetServiceError(err)
	if se == nil {
		se = apperrors.Internal("internal error", err)
	}
	WriteErrorResponse(w, se.HTTPStatus, string(se.Code), se.Message, se.Details)
}

// ReadJSON decodes the request body into v, rejecting unknown fields and
// trailing data.
func ReadJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return apperrors.InvalidInput("body", "required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.InvalidInput("body", "required")
		}
		return apperrors.InvalidInput("body", fmt.Sprintf("malformed JSON: %v", err))
	}
	if dec.More() {
		return apperrors.InvalidInput("body", "unexpected trailing data")
	}
	return nil
}

// Unauthorized writes a 401 response.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, apperrors.Unauthorized(message))
}
