package models

import "time"

// VerificationStatus is the state of an administrative payment verification
type VerificationStatus string

const (
	VerificationPending         VerificationStatus = "pending"
	VerificationVerified        VerificationStatus = "verified"
	VerificationRejected        VerificationStatus = "rejected"
	VerificationReadyForFinance VerificationStatus = "ready-for-finance"
)

// Valid reports whether s is a known verification status.
func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationPending, VerificationVerified, VerificationRejected, VerificationReadyForFinance:
		return true
	}
	return false
}

// PaymentVerification tracks the admin-assistant check of a defense payment
type PaymentVerification struct {
	ID               int64              `json:"id" db:"id" example:"3"`
	DefenseRequestID int64              `json:"defenseRequestId" db:"defense_request_id" example:"12"`
	Amount           float64            `json:"amount" db:"amount" example:"4500.00"`
	ReferenceNumber  string             `json:"referenceNumber" db:"reference_number" example:"OR-2025-00417"`
	ProofRef         string             `json:"proofRef,omitempty" db:"proof_ref"`
	Status           VerificationStatus `json:"status" db:"status" example:"pending"`
	Note             string             `json:"note,omitempty" db:"note"`
	DecidedBy        string             `json:"decidedBy,omitempty" db:"decided_by"`
	DecidedAt        *time.Time         `json:"decidedAt,omitempty" db:"decided_at"`
	CreatedAt        time.Time          `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time          `json:"updatedAt" db:"updated_at"`
}
