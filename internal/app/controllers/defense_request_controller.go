package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	appauth "github.com/yigit/thesisflow/internal/app/auth"
	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/app/models/dto"
	"github.com/yigit/thesisflow/internal/app/repositories"
	"github.com/yigit/thesisflow/internal/app/services"
	"github.com/yigit/thesisflow/internal/middleware"
	"github.com/yigit/thesisflow/internal/pkg/apperrors"
	"github.com/yigit/thesisflow/internal/pkg/helpers"
)

// DefenseRequestController exposes the defense request workflow
type DefenseRequestController struct {
	requestService services.DefenseRequestService
	authz          *appauth.AuthorizationService
}

// NewDefenseRequestController creates a new DefenseRequestController
func NewDefenseRequestController(requestService services.DefenseRequestService, authz *appauth.AuthorizationService) *DefenseRequestController {
	return &DefenseRequestController{
		requestService: requestService,
		authz:          authz,
	}
}

// Submit files a new defense request
// @Summary Submit a defense request
// @Description Files a new thesis defense request. Students may only file for their own student id.
// @Tags defense-requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SubmitDefenseRequest true "Defense request"
// @Success 201 {object} dto.APIResponse{data=models.DefenseRequest} "Request submitted"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Router /defense-requests [post]
func (c *DefenseRequestController) Submit(ctx *gin.Context) {
	p, ok := authorize(ctx, c.authz, appauth.ActionSubmit)
	if !ok {
		return
	}
	var req dto.SubmitDefenseRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	if !p.Has(models.RoleAdministrator) && req.StudentID != p.ID {
		middleware.HandleAPIError(ctx, apperrors.NewCustomError(apperrors.ErrPermissionDenied, "students may only file their own defense requests"))
		return
	}

	out, err := c.requestService.Submit(ctx, services.SubmitInput{
		StudentID:   req.StudentID,
		StudentName: req.StudentName,
		Program:     req.Program,
		ThesisTitle: req.ThesisTitle,
		DefenseType: req.DefenseType,
		AdviserName: req.AdviserName,
		Priority:    req.Priority,
		Actor:       p.ID,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewAPIResponse(out))
}

// List returns defense requests, optionally filtered by status
// @Summary List defense requests
// @Description Lists defense requests ordered by id. Students only see their own.
// @Tags defense-requests
// @Produce json
// @Security BearerAuth
// @Param status query string false "Workflow status" Enums(submitted, adviser-review, adviser-approved, coordinator-review, coordinator-approved, panels-assigned, scheduled, completed, rejected, pending)
// @Param studentId query string false "Student id"
// @Param page query int false "Page number (1-based)" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.StructuredResponse{data=dto.DefenseRequestListResponse} "Requests"
// @Failure 400 {object} dto.ErrorResponse "Invalid filter"
// @Router /defense-requests [get]
func (c *DefenseRequestController) List(ctx *gin.Context) {
	p, ok := authorize(ctx, c.authz, appauth.ActionView)
	if !ok {
		return
	}

	filter := repositories.RequestFilter{
		Status:    models.RequestStatus(ctx.Query("status")),
		StudentID: ctx.Query("studentId"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("status", "unknown status %q", filter.Status))
		return
	}
	if isStudentOnly(p) {
		filter.StudentID = p.ID
	}

	page, size := helpers.ParsePaginationParams(ctx)
	filter.Offset, filter.Limit = helpers.CalculateOffsetLimit(page, size)

	items, total, err := c.requestService.List(ctx, filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewPaginatedResponse(items, helpers.NewPaginationInfo(total, page, size), "Defense requests retrieved"))
}

// Get returns one request with its history
// @Summary Get a defense request
// @Tags defense-requests
// @Produce json
// @Security BearerAuth
// @Param id path int true "Defense request ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=models.DefenseRequest} "Request with history"
// @Failure 404 {object} dto.ErrorResponse "Not found"
// @Router /defense-requests/{id} [get]
func (c *DefenseRequestController) Get(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if _, ok := authorizeRequest(ctx, c.authz, appauth.ActionView, id); !ok {
		return
	}
	out, err := c.requestService.Get(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(out))
}

// StartAdviserReview moves a submitted request into adviser review
// @Summary Start adviser review
// @Tags defense-requests
// @Produce json
// @Security BearerAuth
// @Param id path int true "Defense request ID"
// @Success 200 {object} dto.APIResponse{data=models.DefenseRequest}
// @Failure 409 {object} dto.ErrorResponse "Illegal transition"
// @Router /defense-requests/{id}/adviser-review [post]
func (c *DefenseRequestController) StartAdviserReview(ctx *gin.Context) {
	c.simpleTransition(ctx, appauth.ActionAdviserReview, c.requestService.StartAdviserReview)
}

// AdviserDecision records the adviser's approve or reject
// @Summary Adviser decision
// @Description Approve or reject a request under adviser review. A rejection needs a reason.
// @Tags defense-requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Defense request ID"
// @Param request body dto.DecisionRequest true "Decision"
// @Success 200 {object} dto.APIResponse{data=models.DefenseRequest}
// @Failure 400 {object} dto.ErrorResponse "Missing reason"
// @Failure 409 {object} dto.ErrorResponse "Illegal transition"
// @Router /defense-requests/{id}/adviser-decision [post]
func (c *DefenseRequestController) AdviserDecision(ctx *gin.Context) {
	c.decision(ctx, appauth.ActionAdviserReview, c.requestService.AdviserDecision)
}

// ForwardToCoordinator hands an adviser-approved request to the coordinator
// @Summary Forward to coordinator
// @Tags defense-requests
// @Produce json
// @Security BearerAuth
// @Param id path int true "Defense request ID"
// @Success 200 {object} dto.APIResponse{data=models.DefenseRequest}
// @Failure 409 {object} dto.ErrorResponse "Illegal transition"
// @Router /defense-requests/{id}/forward [post]
func (c *DefenseRequestController) ForwardToCoordinator(ctx *gin.Context) {
	c.simpleTransition(ctx, appauth.ActionCoordinatorReview, c.requestService.ForwardToCoordinator)
}

// CoordinatorDecision records the coordinator's approve or reject
// @Summary Coordinator decision
// @Tags defense-requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Defense request ID"
// @Param request body dto.DecisionRequest true "Decision"
// @Success 200 {object} dto.APIResponse{data=models.DefenseRequest}
// @Failure 409 {object} dto.ErrorResponse "Illegal transition"
// @Router /defense-requests/{id}/coordinator-decision [post]
func (c *DefenseRequestController) CoordinatorDecision(ctx *gin.Context) {
	c.decision(ctx, appauth.ActionCoordinatorReview, c.requestService.CoordinatorDecision)
}

// BulkCoordinatorDecision applies one decision to many requests
// @Summary Bulk coordinator decision
// @Description Each id is decided independently. The response lists the changed ids and per-item errors.
// @Tags defense-requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BulkDecisionRequest true "Ids and decision"
// @Success 200 {object} dto.APIResponse{data=models.BulkResult}
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Router /defense-requests/bulk-decision [post]
func (c *DefenseRequestController) BulkCoordinatorDecision(ctx *gin.Context) {
	p, ok := authorize(ctx, c.authz, appauth.ActionCoordinatorReview)
	if !ok {
		return
	}
	var req dto.BulkDecisionRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	result, err := c.requestService.BulkCoordinatorDecision(ctx, req.IDs, p.ID, services.Decision{Approve: *req.Approve, Reason: req.Reason})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(result))
}

// Retrieve pulls a request back to pending for corrections
// @Summary Retrieve a request
// @Tags defense-requests
// @Produce json
// @Security BearerAuth
// @Param id path int true "Defense request ID"
// @Success 200 {object} dto.APIResponse{data=models.DefenseRequest}
// @Failure 409 {object} dto.ErrorResponse "Illegal transition"
// @Router /defense-requests/{id}/retrieve [post]
func (c *DefenseRequestController) Retrieve(ctx *gin.Context) {
	c.simpleTransition(ctx, appauth.ActionRetrieve, c.requestService.Retrieve)
}

// Resubmit sends a pending request back for review with corrections
// @Summary Resubmit a request
// @Tags defense-requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Defense request ID"
// @Param request body dto.ResubmitRequest true "Corrections"
// @Success 200 {object} dto.APIResponse{data=models.DefenseRequest}
// @Failure 409 {object} dto.ErrorResponse "Illegal transition"
// @Router /defense-requests/{id}/resubmit [post]
func (c *DefenseRequestController) Resubmit(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	p, ok := authorizeRequest(ctx, c.authz, appauth.ActionResubmit, id)
	if !ok {
		return
	}
	var req dto.ResubmitRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	out, err := c.requestService.Resubmit(ctx, id, p.ID, services.Corrections{
		Program:     req.Program,
		ThesisTitle: req.ThesisTitle,
		DefenseType: req.DefenseType,
		AdviserName: req.AdviserName,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(out))
}

// AssignPanels fills the committee of an approved request
// @Summary Assign panels
// @Description Chairperson and panelist1 are required. Members are resolved against the faculty directory.
// @Tags defense-requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Defense request ID"
// @Param request body dto.AssignPanelsRequest true "Committee"
// @Success 200 {object} dto.APIResponse{data=models.DefenseRequest}
// @Failure 400 {object} dto.ErrorResponse "Invalid committee"
// @Failure 409 {object} dto.ErrorResponse "Illegal transition"
// @Router /defense-requests/{id}/panels [put]
func (c *DefenseRequestController) AssignPanels(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	p, ok := authorizeRequest(ctx, c.authz, appauth.ActionAssignPanels, id)
	if !ok {
		return
	}
	var req dto.AssignPanelsRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	out, err := c.requestService.AssignPanels(ctx, id, p.ID, services.PanelInput{
		Chairperson: req.Chairperson.Ref(),
		Panelist1:   req.Panelist1.Ref(),
		Panelist2:   req.Panelist2.Ref(),
		Panelist3:   req.Panelist3.Ref(),
		Panelist4:   req.Panelist4.Ref(),
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(out))
}

// Schedule sets or changes the defense slot
// @Summary Schedule a defense
// @Description Checks the slot against every defense already scheduled that day for venue and committee overlaps.
// @Tags defense-requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Defense request ID"
// @Param request body dto.ScheduleRequest true "Slot"
// @Success 200 {object} dto.APIResponse{data=models.DefenseRequest}
// @Failure 400 {object} dto.ErrorResponse "Invalid slot"
// @Failure 409 {object} dto.ErrorResponse "Scheduling conflict or illegal transition"
// @Router /defense-requests/{id}/schedule [put]
func (c *DefenseRequestController) Schedule(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	p, ok := authorizeRequest(ctx, c.authz, appauth.ActionSchedule, id)
	if !ok {
		return
	}
	var req dto.ScheduleRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	out, err := c.requestService.Schedule(ctx, id, p.ID, services.ScheduleInput{
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Mode:      req.Mode,
		Venue:     req.Venue,
		Notes:     req.Notes,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(out))
}

// MarkCompleted completes a scheduled defense
// @Summary Mark a defense completed
// @Tags defense-requests
// @Produce json
// @Security BearerAuth
// @Param id path int true "Defense request ID"
// @Success 200 {object} dto.APIResponse{data=models.DefenseRequest}
// @Failure 409 {object} dto.ErrorResponse "Illegal transition"
// @Router /defense-requests/{id}/complete [post]
func (c *DefenseRequestController) MarkCompleted(ctx *gin.Context) {
	c.simpleTransition(ctx, appauth.ActionComplete, c.requestService.MarkCompleted)
}

func (c *DefenseRequestController) simpleTransition(ctx *gin.Context, action appauth.Action,
	apply func(ctx context.Context, id int64, actor string) (*models.DefenseRequest, error)) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	p, ok := authorizeRequest(ctx, c.authz, action, id)
	if !ok {
		return
	}
	out, err := apply(ctx, id, p.ID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(out))
}

func (c *DefenseRequestController) decision(ctx *gin.Context, action appauth.Action,
	apply func(ctx context.Context, id int64, actor string, d services.Decision) (*models.DefenseRequest, error)) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	p, ok := authorizeRequest(ctx, c.authz, action, id)
	if !ok {
		return
	}
	var req dto.DecisionRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	out, err := apply(ctx, id, p.ID, services.Decision{Approve: *req.Approve, Reason: req.Reason})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(out))
}

// isStudentOnly reports whether p sees nothing beyond its own requests.
func isStudentOnly(p appauth.Principal) bool {
	for _, r := range p.Roles {
		if r != models.RoleStudent {
			return false
		}
	}
	return p.Has(models.RoleStudent)
}
