package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	appauth "github.com/yigit/thesisflow/internal/app/auth"
	"github.com/yigit/thesisflow/internal/app/models/dto"
	"github.com/yigit/thesisflow/internal/app/services"
	"github.com/yigit/thesisflow/internal/middleware"
)

const defaultResyncLimit = 100

// JobController exposes the sweeper and record sync as administrative triggers
type JobController struct {
	sweeperService services.SweeperService
	syncService    services.SyncService
	authz          *appauth.AuthorizationService
}

// NewJobController creates a new JobController
func NewJobController(sweeperService services.SweeperService, syncService services.SyncService, authz *appauth.AuthorizationService) *JobController {
	return &JobController{
		sweeperService: sweeperService,
		syncService:    syncService,
		authz:          authz,
	}
}

// Sweep runs the auto-completion sweep
// @Summary Run the auto-completion sweep
// @Description Completes every scheduled defense whose slot has ended. With dryRun nothing is written.
// @Tags jobs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SweepRequest false "Options"
// @Success 200 {object} dto.APIResponse{data=services.SweepReport}
// @Router /jobs/sweep [post]
func (c *JobController) Sweep(ctx *gin.Context) {
	if _, ok := authorize(ctx, c.authz, appauth.ActionRunJobs); !ok {
		return
	}
	var req dto.SweepRequest
	if ctx.Request.ContentLength > 0 && !middleware.BindJSON(ctx, &req) {
		return
	}
	report, err := c.sweeperService.Sweep(ctx, req.DryRun)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(report))
}

// Sync materializes the finance records of one request
// @Summary Run the record sync for a request
// @Description Idempotent. A request that was already synced reports alreadySynced.
// @Tags jobs
// @Produce json
// @Security BearerAuth
// @Param id path int true "Defense request ID"
// @Success 200 {object} dto.APIResponse{data=models.SyncResult}
// @Failure 409 {object} dto.ErrorResponse "No ready-for-finance verification"
// @Failure 500 {object} dto.ErrorResponse "Sync failed at a step"
// @Router /jobs/sync/{id} [post]
func (c *JobController) Sync(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if _, ok := authorize(ctx, c.authz, appauth.ActionRunJobs); !ok {
		return
	}
	result, err := c.syncService.Sync(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(result))
}

// Resync retries syncs for ready requests without records
// @Summary Retry pending record syncs
// @Tags jobs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ResyncRequest false "Options"
// @Success 200 {object} dto.APIResponse{data=models.BulkResult}
// @Router /jobs/resync [post]
func (c *JobController) Resync(ctx *gin.Context) {
	if _, ok := authorize(ctx, c.authz, appauth.ActionRunJobs); !ok {
		return
	}
	var req dto.ResyncRequest
	if ctx.Request.ContentLength > 0 && !middleware.BindJSON(ctx, &req) {
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultResyncLimit
	}
	result, err := c.syncService.Resync(ctx, req.Limit)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(result))
}

// GetStudentRecord returns what a sync wrote for a request
// @Summary Get the synced student record
// @Tags jobs
// @Produce json
// @Security BearerAuth
// @Param id path int true "Defense request ID"
// @Success 200 {object} dto.APIResponse{data=models.SyncResult}
// @Failure 404 {object} dto.ErrorResponse "Not synced yet"
// @Router /defense-requests/{id}/student-record [get]
func (c *JobController) GetStudentRecord(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if _, ok := authorizeRequest(ctx, c.authz, appauth.ActionView, id); !ok {
		return
	}
	result, err := c.syncService.GetStudentRecord(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(result))
}
