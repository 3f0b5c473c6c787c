package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	appauth "github.com/yigit/thesisflow/internal/app/auth"
	"github.com/yigit/thesisflow/internal/app/models/dto"
	"github.com/yigit/thesisflow/internal/middleware"
)

// parseIDParam reads a positive int64 path parameter. On failure it writes a
// 400 response and returns false.
func parseIDParam(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid "+name).
			WithField(name).
			WithDetails(name + " must be a positive number")
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return id, true
}

// principal returns the authenticated actor or writes a 401.
func principal(ctx *gin.Context) (appauth.Principal, bool) {
	p, ok := middleware.CurrentPrincipal(ctx)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return appauth.Principal{}, false
	}
	return p, true
}

// authorizeRequest resolves the actor and checks it may perform action on the
// request. It writes the error response itself.
func authorizeRequest(ctx *gin.Context, authz *appauth.AuthorizationService, action appauth.Action, requestID int64) (appauth.Principal, bool) {
	p, ok := principal(ctx)
	if !ok {
		return p, false
	}
	if err := authz.AuthorizeRequest(ctx, p, action, requestID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return p, false
	}
	return p, true
}

// authorize checks the role policy without loading a request.
func authorize(ctx *gin.Context, authz *appauth.AuthorizationService, action appauth.Action) (appauth.Principal, bool) {
	p, ok := principal(ctx)
	if !ok {
		return p, false
	}
	if err := authz.Authorize(p, action); err != nil {
		middleware.HandleAPIError(ctx, err)
		return p, false
	}
	return p, true
}

var errMissingBody = errors.New("validated request body missing from context")
