// Package handler holds the JSON helpers shared by the HTTP handlers.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/dukerupert/papertrail/internal/domain"
	"github.com/dukerupert/papertrail/internal/middleware"
	"github.com/dukerupert/papertrail/internal/telemetry"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	return domain.HTTPStatus(code)
}

// ErrorResponse writes err as JSON with the status its code maps to.
// Server errors are logged with their op and reported to Sentry; the
// client only sees the safe message.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, ErrorCodeToHTTPStatus(domain.ErrorCode(err)), err)
}

// ErrorResponseWithStatus is ErrorResponse with the status forced, for
// callers whose protocol dictates one (the payment webhook).
func ErrorResponseWithStatus(w http.ResponseWriter, r *http.Request, status int, err error) {
	writeError(w, r, status, err)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	code := domain.ErrorCode(err)
	logger := middleware.GetLogger(r.Context())

	attrs := []any{
		"error", err,
		"code", code,
		"op", domain.ErrorOp(err),
		"status", status,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", attrs...)
		telemetry.CaptureErrorFromContext(r.Context(), err, map[string]interface{}{
			"op":   domain.ErrorOp(err),
			"path": r.URL.Path,
		})
	} else {
		logger.Info("request rejected", attrs...)
	}

	JSON(w, status, errorBody{Error: errorDetail{
		Code:    code,
		Message: domain.ErrorMessage(err),
		Fields:  domain.GetValidationFields(err),
	}})
}

// ValidationErrorResponse writes field-level validation errors. Other
// errors fall through to ErrorResponse.
func ValidationErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if !domain.IsValidationError(err) {
		ErrorResponse(w, r, err)
		return
	}
	writeError(w, r, http.StatusBadRequest, err)
}

// NotFoundResponse writes a generic 404.
func NotFoundResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Errorf(domain.ENOTFOUND, "", "The requested resource was not found"))
}

// UnauthorizedResponse writes a generic 401.
func UnauthorizedResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "", "Authentication required"))
}

// InternalErrorResponse hides err behind a generic 500.
func InternalErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	ErrorResponse(w, r, domain.Internal(err, "", "An unexpected error occurred"))
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Message writes {"message": msg}.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"message": msg})
}
