// Package errors provides custom error types and error handling utilities.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes.
const (
	// Input errors.
	CodeValidation             = "VALIDATION_ERROR"
	CodeMalformedRecord        = "MALFORMED_RECORD"
	CodeUnknownMetric          = "UNKNOWN_METRIC"
	CodeInvalidMetricParameter = "INVALID_METRIC_PARAMETER"
	CodeUnsupportedFormat      = "UNSUPPORTED_FORMAT"
	CodeNotFound               = "NOT_FOUND"
	CodeRateLimited            = "RATE_LIMITED"
	CodeInvalidRequest         = "INVALID_REQUEST"

	// Computation errors.
	CodeMetricUnavailable = "METRIC_UNAVAILABLE"

	// I/O and server errors.
	CodeReportWrite = "REPORT_WRITE"
	CodeDataset     = "DATASET_ERROR"
	CodeHistory     = "HISTORY_ERROR"
	CodeInternal    = "INTERNAL_ERROR"
	CodeUnavailable = "SERVICE_UNAVAILABLE"
	CodeTimeout     = "TIMEOUT"
)

// AppError represents an application error with code and details.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code for this error.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case CodeValidation, CodeInvalidRequest, CodeMalformedRecord,
		CodeUnknownMetric, CodeInvalidMetricParameter, CodeUnsupportedFormat:
		return http.StatusBadRequest
	case CodeMetricUnavailable:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError.
func Wrap(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetail adds a single detail to the error.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Detail returns a detail value, or "" when unset.
func (e *AppError) Detail(key string) string {
	if e.Details == nil {
		return ""
	}
	return e.Details[key]
}

// Convenience constructors.

// ValidationError creates a validation error.
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// NotFoundError creates a not found error.
func NotFoundError(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// MalformedRecordError reports a record that cannot be normalized into a sample.
// field names the first offending field (e.g. "query.id").
func MalformedRecordError(field, reason string) *AppError {
	err := New(CodeMalformedRecord, fmt.Sprintf("%s: %s", field, reason))
	return err.WithDetail("field", field)
}

// UnknownMetricError reports a metric identifier that no registry entry serves.
func UnknownMetricError(metric string) *AppError {
	return New(CodeUnknownMetric, fmt.Sprintf("unknown metric %q", metric)).
		WithDetail("metric", metric)
}

// InvalidMetricParameterError reports a malformed or out-of-range metric parameter.
func InvalidMetricParameterError(metric, reason string) *AppError {
	return New(CodeInvalidMetricParameter, fmt.Sprintf("metric %q: %s", metric, reason)).
		WithDetail("metric", metric)
}

// MetricUnavailableError reports a requested metric whose optional dependency is missing.
func MetricUnavailableError(metric, reason string) *AppError {
	return New(CodeMetricUnavailable, fmt.Sprintf("metric %q unavailable: %s", metric, reason)).
		WithDetail("metric", metric)
}

// ReportWriteError reports a failure persisting one report target.
func ReportWriteError(target string, err error) *AppError {
	return Wrap(CodeReportWrite, fmt.Sprintf("writing report target %s", target), err).
		WithDetail("target", target)
}

// UnsupportedFormatError reports a dataset or report format that is not handled.
func UnsupportedFormatError(format string) *AppError {
	return New(CodeUnsupportedFormat, fmt.Sprintf("unsupported format %q", format)).
		WithDetail("format", format)
}

// DatasetError creates a dataset loading error.
func DatasetError(message string, err error) *AppError {
	return Wrap(CodeDataset, message, err)
}

// HistoryError creates a run history error.
func HistoryError(message string, err error) *AppError {
	return Wrap(CodeHistory, message, err)
}

// InternalError creates an internal error.
func InternalError(message string, err error) *AppError {
	return Wrap(CodeInternal, message, err)
}

// InvalidRequestError creates an invalid request error.
func InvalidRequestError(message string) *AppError {
	return New(CodeInvalidRequest, message)
}

// RateLimitedError creates a rate limited error with retry information.
func RateLimitedError(retryAfterSeconds int) *AppError {
	err := New(CodeRateLimited, "rate limit exceeded")
	if retryAfterSeconds > 0 {
		err = err.WithDetail("retry_after", fmt.Sprintf("%d", retryAfterSeconds))
	}
	return err
}

// TimeoutError creates a timeout error.
func TimeoutError(operation string) *AppError {
	return New(CodeTimeout, fmt.Sprintf("%s timed out", operation))
}

// ServiceUnavailableError creates a service unavailable error.
func ServiceUnavailableError(service string) *AppError {
	message := "service unavailable"
	if service != "" {
		message = fmt.Sprintf("%s is unavailable", service)
	}
	return New(CodeUnavailable, message)
}

// AsAppError returns the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether any AppError in err's chain (including joined errors) has code.
func HasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr.Code == code {
		return true
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if HasCode(e, code) {
				return true
			}
		}
	}
	return false
}

// IsNotFound checks if error is a not found error.
func IsNotFound(err error) bool { return HasCode(err, CodeNotFound) }

// IsValidation checks if error is a validation error.
func IsValidation(err error) bool { return HasCode(err, CodeValidation) }

// IsMalformedRecord checks if error is a malformed record error.
func IsMalformedRecord(err error) bool { return HasCode(err, CodeMalformedRecord) }

// IsUnknownMetric checks if error is an unknown metric error.
func IsUnknownMetric(err error) bool { return HasCode(err, CodeUnknownMetric) }

// IsInvalidMetricParameter checks if error is an invalid metric parameter error.
func IsInvalidMetricParameter(err error) bool { return HasCode(err, CodeInvalidMetricParameter) }

// IsMetricUnavailable checks if error is a metric unavailable error.
func IsMetricUnavailable(err error) bool { return HasCode(err, CodeMetricUnavailable) }

// IsReportWrite checks if error contains a report write error.
func IsReportWrite(err error) bool { return HasCode(err, CodeReportWrite) }

// ErrorResponse is the standard JSON error response structure.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON error response to the ResponseWriter.
func WriteJSON(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing useful to do with an encode error.
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteError writes an error response with proper sanitization.
// AppErrors keep their code and status; anything else becomes an opaque 500.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		WriteJSON(w, appErr.HTTPStatus(), ErrorResponse{
			Error:   appErr.Message,
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		})
		return
	}

	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal server error",
		Code:    CodeInternal,
		Message: "An unexpected error occurred",
	})
}

// WriteErrorWithStatus writes an error with a specific HTTP status code.
// 4xx messages are shown to the client, 5xx messages are replaced.
func WriteErrorWithStatus(w http.ResponseWriter, status int, err error) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		WriteJSON(w, status, ErrorResponse{
			Error:   appErr.Message,
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		})
		return
	}

	if status >= 400 && status < 500 {
		WriteJSON(w, status, ErrorResponse{
			Error:   err.Error(),
			Code:    codeForStatus(status),
			Message: err.Error(),
		})
		return
	}

	WriteJSON(w, status, ErrorResponse{
		Error:   "internal server error",
		Code:    CodeInternal,
		Message: "An unexpected error occurred",
	})
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeInvalidRequest
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusServiceUnavailable:
		return CodeUnavailable
	case http.StatusGatewayTimeout:
		return CodeTimeout
	default:
		return CodeInternal
	}
}
