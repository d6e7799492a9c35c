package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details for debugging (server-side)
//   - Returned to clients as user-friendly JSON with an action suggestion
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err), optionally with a status override
//  3. Error is mapped via core.MapError to get user-friendly message
//  4. Technical error + context is logged with request ID for correlation
//  5. User message is written as an ErrorResponse

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/dwcheck/internal/core"
	"github.com/JonMunkholm/dwcheck/internal/loader"
	"github.com/JonMunkholm/dwcheck/internal/logging"
)

// retryAfterSeconds is sent with 429 responses.
const retryAfterSeconds = 5

// errMissingTable is returned when an upload lacks one of the three parts.
var errMissingTable = errors.New("missing table")

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for an error.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, core.ErrTooManyRuns):
		return http.StatusTooManyRequests
	case errors.As(err, &tooLarge), errors.Is(err, loader.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errMissingTable),
		errors.Is(err, core.ErrNilTable),
		errors.Is(err, loader.ErrEmptyFile),
		errors.Is(err, loader.ErrInvalidCSV):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		// Client went away; the status is for the log only.
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the technical error server-side and writes a JSON
// error response. A zero status means statusFor(err).
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	if status == 0 {
		status = statusFor(err)
	}
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	level := logger.Warn
	if status >= http.StatusInternalServerError {
		level = logger.Error
	}
	level("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	writeJSON(w, r, status, ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}
