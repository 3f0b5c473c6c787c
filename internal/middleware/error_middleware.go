package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/thesisflow/internal/app/models/dto"
	"github.com/yigit/thesisflow/internal/pkg/apperrors"
	"github.com/yigit/thesisflow/internal/pkg/logger"
)

// HandleAPIError maps a service error to its HTTP status and error envelope.
func HandleAPIError(c *gin.Context, err error) {
	status, detail := describeError(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Request failed")
	}
	c.AbortWithStatusJSON(status, dto.APIResponse{Success: false, Error: detail, Timestamp: time.Now()})
}

func describeError(err error) (int, *dto.ErrorDetail) {
	var (
		syncErr       *apperrors.SyncFailureError
		validationErr *apperrors.ValidationError
		conflictErr   *apperrors.SchedulingConflictError
		transitionErr *apperrors.IllegalTransitionError
	)

	// Sync failures first: they also unwrap to whatever broke underneath.
	switch {
	case errors.As(err, &syncErr):
		return http.StatusInternalServerError,
			dto.NewErrorDetail(dto.ErrorCodeSyncFailure, "Record sync failed").
				WithDetails(map[string]interface{}{"requestId": syncErr.RequestID, "step": syncErr.Step})
	case errors.Is(err, apperrors.ErrSyncFailure):
		return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeSyncFailure, "Record sync failed")

	case errors.As(err, &validationErr):
		return http.StatusBadRequest,
			dto.NewErrorDetail(dto.ErrorCodeValidationFailed, validationErr.Message).WithField(validationErr.Field)
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeValidationFailed, err.Error())

	case errors.As(err, &conflictErr):
		return http.StatusConflict,
			dto.NewErrorDetail(dto.ErrorCodeSchedulingConflict, conflictErr.Error()).WithDetails(conflictErr.Collisions)

	case errors.As(err, &transitionErr):
		return http.StatusConflict,
			dto.NewErrorDetail(dto.ErrorCodeIllegalTransition, transitionErr.Error()).
				WithDetails(map[string]interface{}{"action": transitionErr.Action, "state": transitionErr.From})
	case errors.Is(err, apperrors.ErrIllegalTransition):
		return http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeIllegalTransition, err.Error())

	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, err.Error())
	case errors.Is(err, apperrors.ErrAlreadyExists):
		return http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeResourceAlreadyExists, err.Error())
	case errors.Is(err, apperrors.ErrConcurrentUpdate):
		return http.StatusConflict,
			dto.NewErrorDetail(dto.ErrorCodeConcurrentUpdate, "The resource was changed by another request, reload and retry")
	case errors.Is(err, apperrors.ErrPermissionDenied):
		return http.StatusForbidden, dto.NewErrorDetail(dto.ErrorCodeForbidden, err.Error())
	}
	return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")
}
