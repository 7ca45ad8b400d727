package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is:
//   - Logged with full technical details for debugging (server-side)
//   - Returned to clients as a user-friendly JSON message with an action
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls s.fail(w, r, err), or respondError with an explicit status
//  3. Error is mapped via core.MapError to get user-friendly message
//  4. Technical error is logged with the request ID for correlation

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/leads/internal/core"
	"github.com/JonMunkholm/leads/internal/logging"
)

var (
	errRateLimited = errors.New("rate limit exceeded")
	errNoFile      = errors.New("no file provided")
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	// Result carries a partial import outcome alongside the error.
	Result *core.ImportResult `json:"result,omitempty"`
}

// fail responds with the status statusFor picks for err.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, err, statusFor(err))
}

// respondError logs the technical error and writes the mapped message.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	writeJSON(w, statusCode, errorResponse(r, err, statusCode))
}

func errorResponse(r *http.Request, err error, statusCode int) ErrorResponse {
	userMsg := core.MapError(err)

	level := slog.LevelWarn
	if statusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}

	var ve *core.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	return resp
}

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	var ve *core.ValidationError
	var wne *core.WorkspaceNotEmptyError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &wne):
		return http.StatusConflict
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrTooManyImports), errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrMixedWorkspaces),
		errors.Is(err, core.ErrNothingImported),
		errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, core.ErrEncoding),
		errors.Is(err, core.ErrNotCSV),
		errors.Is(err, errNoFile):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrSheetsDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeErrorBody(data []byte) (ErrorResponse, error) {
	var resp ErrorResponse
	err := json.Unmarshal(data, &resp)
	return resp, err
}
