package dto

import "github.com/yigit/thesisflow/internal/app/models"

// RecordPaymentRequest registers a payment for a defense request
type RecordPaymentRequest struct {
	DefenseRequestID int64   `json:"defenseRequestId" binding:"required,gt=0" example:"12"`
	Amount           float64 `json:"amount" binding:"required,gt=0" example:"4500"`
	ReferenceNumber  string  `json:"referenceNumber" binding:"required,refnumber" example:"OR-2025-00417"`
}

// VerificationDecisionRequest moves a verification to another status
type VerificationDecisionRequest struct {
	Status models.VerificationStatus `json:"status" binding:"required,oneof=pending verified rejected ready-for-finance" example:"verified"`
	Note   string                    `json:"note,omitempty" binding:"max=1000" example:"Receipt matches the cashier ledger"`
}

// BulkVerificationDecisionRequest applies one decision to many verifications
type BulkVerificationDecisionRequest struct {
	IDs    []int64                   `json:"ids" binding:"required,min=1,max=200,dive,gt=0" example:"3,4"`
	Status models.VerificationStatus `json:"status" binding:"required,oneof=pending verified rejected ready-for-finance" example:"verified"`
	Note   string                    `json:"note,omitempty" binding:"max=1000"`
}

// VerificationListResponse is one page of payment verifications
type VerificationListResponse struct {
	Items      []*models.PaymentVerification `json:"items"`
	Pagination PaginationInfo                `json:"pagination"`
}
