package dto

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/yigit/thesisflow/internal/pkg/apperrors"
)

// ErrorCode represents standardized error codes
type ErrorCode string

// Standard error codes for the application
const (
	// Authentication errors
	ErrorCodeInvalidToken ErrorCode = "AUTH_005"
	ErrorCodeExpiredToken ErrorCode = "AUTH_006"
	ErrorCodeUnauthorized ErrorCode = "AUTH_008"
	ErrorCodeForbidden    ErrorCode = apperrors.CodePermissionDenied

	// Resource errors
	ErrorCodeResourceNotFound      ErrorCode = apperrors.CodeNotFound
	ErrorCodeResourceAlreadyExists ErrorCode = apperrors.CodeAlreadyExists
	ErrorCodeConcurrentUpdate      ErrorCode = apperrors.CodeConcurrentUpdate

	// Workflow errors
	ErrorCodeSchedulingConflict ErrorCode = apperrors.CodeSchedulingConflict
	ErrorCodeIllegalTransition  ErrorCode = apperrors.CodeIllegalTransition
	ErrorCodeSyncFailure        ErrorCode = apperrors.CodeSyncFailure

	// Validation errors
	ErrorCodeValidationFailed ErrorCode = apperrors.CodeValidation
	ErrorCodeBadRequest       ErrorCode = "BAD_REQUEST"

	// Server errors
	ErrorCodeInternalServer ErrorCode = apperrors.CodeInternal
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

// Severity levels
const (
	ErrorSeverityInfo    ErrorSeverity = "INFO"
	ErrorSeverityWarning ErrorSeverity = "WARNING"
	ErrorSeverityError   ErrorSeverity = "ERROR"
)

// ErrorDetail represents detailed error information
type ErrorDetail struct {
	Code     ErrorCode     `json:"code" example:"SCH_001"`
	Message  string        `json:"message" example:"schedule for request 2 conflicts with request 1"`
	Field    string        `json:"field,omitempty" example:"endTime"`
	Severity ErrorSeverity `json:"severity" example:"ERROR"`
	Details  interface{}   `json:"details,omitempty"`
}

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Success   bool         `json:"success" example:"false"`
	Error     *ErrorDetail `json:"error"`
	Timestamp time.Time    `json:"timestamp" example:"2025-04-23T12:01:05.123Z"`
}

// NewErrorDetail creates a new error detail
func NewErrorDetail(code ErrorCode, message string) *ErrorDetail {
	return &ErrorDetail{
		Code:     code,
		Message:  message,
		Severity: ErrorSeverityError,
	}
}

// WithField adds a field name to the error detail
func (e *ErrorDetail) WithField(field string) *ErrorDetail {
	e.Field = field
	return e
}

// WithDetails adds additional details to the error
func (e *ErrorDetail) WithDetails(details interface{}) *ErrorDetail {
	e.Details = details
	return e
}

// NewErrorResponse creates a standard error response
func NewErrorResponse(errorDetail *ErrorDetail) *ErrorResponse {
	return &ErrorResponse{
		Success:   false,
		Error:     errorDetail,
		Timestamp: time.Now(),
	}
}

// HandleValidationError turns binding and validator errors into an ErrorDetail
// that lists every failing field.
func HandleValidationError(err error) *ErrorDetail {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewErrorDetail(ErrorCodeBadRequest, "Invalid request format").WithDetails(err.Error())
	}

	fields := make([]ErrorDetail, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, ErrorDetail{
			Code:     ErrorCodeValidationFailed,
			Message:  formatFieldError(fe),
			Field:    fe.Field(),
			Severity: ErrorSeverityError,
		})
	}
	detail := NewErrorDetail(ErrorCodeValidationFailed, "Validation failed").WithDetails(fields)
	if len(fields) == 1 {
		detail.Field = fields[0].Field
	}
	return detail
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must match the layout %s", fe.Field(), fe.Param())
	case "dive":
		return fe.Field() + " contains an invalid item"
	default:
		return fmt.Sprintf("%s validation failed: %s", fe.Field(), fe.Tag())
	}
}
