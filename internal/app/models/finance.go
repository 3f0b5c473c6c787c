package models

import "time"

// ProgramRecord groups student records of one program and defense category
type ProgramRecord struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Category  string    `json:"category" db:"category"`
	NameKey   string    `json:"-" db:"name_key"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// StudentRecord is the academic record materialized from a completed defense.
// There is at most one per defense request.
type StudentRecord struct {
	ID               int64       `json:"id" db:"id"`
	DefenseRequestID int64       `json:"defenseRequestId" db:"defense_request_id"`
	ProgramRecordID  int64       `json:"programRecordId" db:"program_record_id"`
	StudentID        string      `json:"studentId" db:"student_id"`
	StudentName      string      `json:"studentName" db:"student_name"`
	ThesisTitle      string      `json:"thesisTitle" db:"thesis_title"`
	DefenseType      DefenseType `json:"defenseType" db:"defense_type"`
	DefenseDate      *time.Time  `json:"defenseDate,omitempty" db:"defense_date"`
	CreatedAt        time.Time   `json:"createdAt" db:"created_at"`
}

// PanelistRecord is a committee member entry scoped to a program record
type PanelistRecord struct {
	ID              int64     `json:"id" db:"id"`
	ProgramRecordID int64     `json:"programRecordId" db:"program_record_id"`
	FacultyID       int64     `json:"facultyId,omitempty" db:"faculty_id"`
	Name            string    `json:"name" db:"name"`
	NameKey         string    `json:"-" db:"name_key"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}

// PanelistAssignment links a panelist record to a student record for one role.
// Receivable is nil when no honorarium rate is known for the role and defense type.
type PanelistAssignment struct {
	ID               int64         `json:"id" db:"id"`
	PanelistRecordID int64         `json:"panelistRecordId" db:"panelist_record_id"`
	StudentRecordID  int64         `json:"studentRecordId" db:"student_record_id"`
	Role             CommitteeRole `json:"role" db:"role"`
	Slot             int           `json:"slot" db:"slot"`
	DefenseType      DefenseType   `json:"defenseType" db:"defense_type"`
	Receivable       *float64      `json:"receivable" db:"receivable"`
	CreatedAt        time.Time     `json:"createdAt" db:"created_at"`
}

// PaymentRecord captures the verified payment for a student record
type PaymentRecord struct {
	ID               int64     `json:"id" db:"id"`
	StudentRecordID  int64     `json:"studentRecordId" db:"student_record_id"`
	DefenseRequestID int64     `json:"defenseRequestId" db:"defense_request_id"`
	VerificationID   int64     `json:"verificationId" db:"verification_id"`
	Amount           float64   `json:"amount" db:"amount"`
	ReferenceNumber  string    `json:"referenceNumber" db:"reference_number"`
	CreatedAt        time.Time `json:"createdAt" db:"created_at"`
}

// SyncResult summarizes a record sync for one defense request
type SyncResult struct {
	DefenseRequestID int64                `json:"defenseRequestId"`
	AlreadySynced    bool                 `json:"alreadySynced"`
	StudentRecord    *StudentRecord       `json:"studentRecord,omitempty"`
	Program          *ProgramRecord       `json:"program,omitempty"`
	Assignments      []PanelistAssignment `json:"assignments,omitempty"`
	Payment          *PaymentRecord       `json:"payment,omitempty"`
}
