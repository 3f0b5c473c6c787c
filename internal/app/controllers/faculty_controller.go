package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	appauth "github.com/yigit/thesisflow/internal/app/auth"
	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/app/models/dto"
	"github.com/yigit/thesisflow/internal/app/services"
	"github.com/yigit/thesisflow/internal/middleware"
)

// FacultyController manages the panel directory
type FacultyController struct {
	directoryService services.DirectoryService
	authz            *appauth.AuthorizationService
}

// NewFacultyController creates a new FacultyController
func NewFacultyController(directoryService services.DirectoryService, authz *appauth.AuthorizationService) *FacultyController {
	return &FacultyController{
		directoryService: directoryService,
		authz:            authz,
	}
}

// List returns the faculty directory
// @Summary List faculty
// @Tags faculty
// @Produce json
// @Security BearerAuth
// @Param active query bool false "Only active members" default(true)
// @Success 200 {object} dto.APIResponse{data=[]models.Faculty}
// @Router /faculty [get]
func (c *FacultyController) List(ctx *gin.Context) {
	if _, ok := authorize(ctx, c.authz, appauth.ActionView); !ok {
		return
	}
	activeOnly := !strings.EqualFold(ctx.DefaultQuery("active", "true"), "false")
	items, err := c.directoryService.List(ctx, activeOnly)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(items))
}

// Upsert creates or refreshes a directory entry
// @Summary Create or update a faculty member
// @Description Entries are keyed by normalized full name.
// @Tags faculty
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpsertFacultyRequest true "Faculty member"
// @Success 200 {object} dto.APIResponse{data=models.Faculty}
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Router /faculty [put]
func (c *FacultyController) Upsert(ctx *gin.Context) {
	body, _ := ctx.Get("validatedBody")
	req, ok := body.(*dto.UpsertFacultyRequest)
	if !ok {
		middleware.HandleAPIError(ctx, errMissingBody)
		return
	}
	if _, ok := authorize(ctx, c.authz, appauth.ActionManageDirectory); !ok {
		return
	}
	f := &models.Faculty{FullName: req.FullName, Title: req.Title, Active: true}
	if req.Active != nil {
		f.Active = *req.Active
	}
	if err := c.directoryService.Upsert(ctx, f); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(f))
}
