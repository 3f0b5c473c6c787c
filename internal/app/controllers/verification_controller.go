package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	appauth "github.com/yigit/thesisflow/internal/app/auth"
	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/app/models/dto"
	"github.com/yigit/thesisflow/internal/app/repositories"
	"github.com/yigit/thesisflow/internal/app/services"
	"github.com/yigit/thesisflow/internal/middleware"
	"github.com/yigit/thesisflow/internal/pkg/apperrors"
	"github.com/yigit/thesisflow/internal/pkg/filestorage"
	"github.com/yigit/thesisflow/internal/pkg/helpers"
	"github.com/yigit/thesisflow/internal/pkg/logger"
)

// VerificationController handles payment verification endpoints
type VerificationController struct {
	verificationService services.VerificationService
	storage             filestorage.FileStorage
	authz               *appauth.AuthorizationService
}

// NewVerificationController creates a new VerificationController
func NewVerificationController(verificationService services.VerificationService, storage filestorage.FileStorage, authz *appauth.AuthorizationService) *VerificationController {
	return &VerificationController{
		verificationService: verificationService,
		storage:             storage,
		authz:               authz,
	}
}

// RecordPayment registers a payment for a defense request
// @Summary Record a payment
// @Description Creates a pending verification. Refused while another non-rejected verification exists for the request.
// @Tags verifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.RecordPaymentRequest true "Payment"
// @Success 201 {object} dto.APIResponse{data=models.PaymentVerification}
// @Failure 400 {object} dto.ErrorResponse "Invalid payment"
// @Failure 409 {object} dto.ErrorResponse "Already recorded or request not ready"
// @Router /verifications [post]
func (c *VerificationController) RecordPayment(ctx *gin.Context) {
	var req dto.RecordPaymentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	if _, ok := authorizeRequest(ctx, c.authz, appauth.ActionRecordPayment, req.DefenseRequestID); !ok {
		return
	}
	out, err := c.verificationService.RecordPayment(ctx, services.RecordPaymentInput{
		DefenseRequestID: req.DefenseRequestID,
		Amount:           req.Amount,
		ReferenceNumber:  req.ReferenceNumber,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewAPIResponse(out))
}

// List returns verifications, optionally filtered by status
// @Summary List payment verifications
// @Tags verifications
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status" Enums(pending, verified, rejected, ready-for-finance)
// @Param page query int false "Page number (1-based)" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.StructuredResponse{data=dto.VerificationListResponse}
// @Router /verifications [get]
func (c *VerificationController) List(ctx *gin.Context) {
	if _, ok := authorize(ctx, c.authz, appauth.ActionVerifyPayment); !ok {
		return
	}
	filter := repositories.VerificationFilter{Status: models.VerificationStatus(ctx.Query("status"))}
	if filter.Status != "" && !filter.Status.Valid() {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("status", "unknown status %q", filter.Status))
		return
	}
	page, size := helpers.ParsePaginationParams(ctx)
	filter.Offset, filter.Limit = helpers.CalculateOffsetLimit(page, size)

	items, total, err := c.verificationService.List(ctx, filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewPaginatedResponse(items, helpers.NewPaginationInfo(total, page, size), "Verifications retrieved"))
}

// ListByRequest returns every verification filed for a defense request
// @Summary List verifications of a request
// @Tags verifications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Defense request ID"
// @Success 200 {object} dto.APIResponse{data=[]models.PaymentVerification}
// @Router /defense-requests/{id}/verifications [get]
func (c *VerificationController) ListByRequest(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if _, ok := authorizeRequest(ctx, c.authz, appauth.ActionView, id); !ok {
		return
	}
	items, err := c.verificationService.ListByRequest(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(items))
}

// Get returns one verification
// @Summary Get a payment verification
// @Tags verifications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Verification ID"
// @Success 200 {object} dto.APIResponse{data=models.PaymentVerification}
// @Failure 404 {object} dto.ErrorResponse "Not found"
// @Router /verifications/{id} [get]
func (c *VerificationController) Get(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	v, err := c.verificationService.Get(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if _, ok := authorizeRequest(ctx, c.authz, appauth.ActionView, v.DefenseRequestID); !ok {
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(v))
}

// Decide moves a verification to another status
// @Summary Decide a payment verification
// @Description Allowed moves: pending to verified or rejected, verified to ready-for-finance or back to pending, rejected back to pending. Ready-for-finance requires a completed defense.
// @Tags verifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Verification ID"
// @Param request body dto.VerificationDecisionRequest true "Decision"
// @Success 200 {object} dto.APIResponse{data=models.PaymentVerification}
// @Failure 409 {object} dto.ErrorResponse "Illegal transition"
// @Router /verifications/{id}/decision [post]
func (c *VerificationController) Decide(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	p, ok := authorize(ctx, c.authz, appauth.ActionVerifyPayment)
	if !ok {
		return
	}
	var req dto.VerificationDecisionRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	out, err := c.verificationService.Decide(ctx, id, p.ID, req.Status, req.Note)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(out))
}

// BulkDecide applies one decision to many verifications
// @Summary Bulk verification decision
// @Tags verifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BulkVerificationDecisionRequest true "Ids and decision"
// @Success 200 {object} dto.APIResponse{data=models.BulkResult}
// @Router /verifications/bulk-decision [post]
func (c *VerificationController) BulkDecide(ctx *gin.Context) {
	p, ok := authorize(ctx, c.authz, appauth.ActionVerifyPayment)
	if !ok {
		return
	}
	var req dto.BulkVerificationDecisionRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	result, err := c.verificationService.BulkDecide(ctx, req.IDs, p.ID, req.Status, req.Note)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(result))
}

// UploadProof stores a proof of payment and attaches it to the verification
// @Summary Upload proof of payment
// @Tags verifications
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Verification ID"
// @Param file formData file true "Receipt (pdf, png, jpg)"
// @Success 200 {object} dto.APIResponse{data=models.PaymentVerification}
// @Failure 400 {object} dto.ErrorResponse "Missing or unsupported file"
// @Router /verifications/{id}/proof [post]
func (c *VerificationController) UploadProof(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	v, err := c.verificationService.Get(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if _, ok := authorizeRequest(ctx, c.authz, appauth.ActionRecordPayment, v.DefenseRequestID); !ok {
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("file", "a proof file is required"))
		return
	}
	ref, err := c.storage.SaveFile(fileHeader, fmt.Sprintf("proofs/%d", v.DefenseRequestID))
	if err != nil {
		if errors.Is(err, filestorage.ErrUnsupportedType) || errors.Is(err, filestorage.ErrFileTooLarge) {
			middleware.HandleAPIError(ctx, apperrors.NewValidationError("file", "%v", err))
			return
		}
		middleware.HandleAPIError(ctx, err)
		return
	}

	out, err := c.verificationService.AttachProof(ctx, id, ref)
	if err != nil {
		if delErr := c.storage.DeleteFile(ref); delErr != nil {
			logger.Warn().Err(delErr).Str("ref", ref).Msg("Failed to remove orphaned proof file")
		}
		middleware.HandleAPIError(ctx, err)
		return
	}
	if v.ProofRef != "" && v.ProofRef != ref {
		if err := c.storage.DeleteFile(v.ProofRef); err != nil {
			logger.Warn().Err(err).Str("ref", v.ProofRef).Msg("Failed to remove replaced proof file")
		}
	}
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(out))
}
