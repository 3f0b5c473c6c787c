package dto

import "github.com/yigit/thesisflow/internal/app/models"

// SubmitDefenseRequest is the body of a new defense request
type SubmitDefenseRequest struct {
	StudentID   string             `json:"studentId" binding:"required,max=32" example:"2021-00123"`
	StudentName string             `json:"studentName" binding:"required,personname" example:"Maria Santos"`
	Program     string             `json:"program" binding:"required,max=200" example:"Master of Science in Computer Science"`
	ThesisTitle string             `json:"thesisTitle" binding:"required,max=500" example:"Graph Partitioning for Sparse Solvers"`
	DefenseType models.DefenseType `json:"defenseType" binding:"required,oneof=proposal prefinal final" example:"final"`
	AdviserName string             `json:"adviserName" binding:"required,personname" example:"Dr. Jose Rizal"`
	Priority    models.Priority    `json:"priority,omitempty" binding:"omitempty,oneof=low normal high urgent" example:"normal"`
}

// DecisionRequest approves or rejects a request at the current review stage
type DecisionRequest struct {
	Approve *bool  `json:"approve" binding:"required" example:"false"`
	Reason  string `json:"reason,omitempty" binding:"max=1000" example:"Chapter 3 needs a related work section"`
}

// BulkDecisionRequest applies one coordinator decision to many requests
type BulkDecisionRequest struct {
	IDs     []int64 `json:"ids" binding:"required,min=1,max=200,dive,gt=0" example:"12,13,14"`
	Approve *bool   `json:"approve" binding:"required" example:"true"`
	Reason  string  `json:"reason,omitempty" binding:"max=1000"`
}

// ResubmitRequest carries the corrections made while a request was pending.
// Omitted fields keep their current value.
type ResubmitRequest struct {
	Program     string             `json:"program,omitempty" binding:"max=200"`
	ThesisTitle string             `json:"thesisTitle,omitempty" binding:"max=500"`
	DefenseType models.DefenseType `json:"defenseType,omitempty" binding:"omitempty,oneof=proposal prefinal final"`
	AdviserName string             `json:"adviserName,omitempty" binding:"omitempty,personname"`
}

// MemberInput names a committee member by directory id or by name
type MemberInput struct {
	FacultyID int64  `json:"facultyId,omitempty" example:"7"`
	Name      string `json:"name,omitempty" example:"Dr. Andres Bonifacio"`
}

// Ref converts the input to a member reference
func (m *MemberInput) Ref() models.MemberRef {
	if m == nil {
		return models.MemberRef{}
	}
	return models.MemberRef{FacultyID: m.FacultyID, Name: m.Name}
}

// AssignPanelsRequest fills the chairperson and panelist seats
type AssignPanelsRequest struct {
	Chairperson *MemberInput `json:"chairperson" binding:"required"`
	Panelist1   *MemberInput `json:"panelist1" binding:"required"`
	Panelist2   *MemberInput `json:"panelist2,omitempty"`
	Panelist3   *MemberInput `json:"panelist3,omitempty"`
	Panelist4   *MemberInput `json:"panelist4,omitempty"`
}

// ScheduleRequest proposes a defense slot
type ScheduleRequest struct {
	Date      string             `json:"date" binding:"required,caldate" example:"2025-03-01"`
	StartTime string             `json:"startTime" binding:"required,clock" example:"09:00"`
	EndTime   string             `json:"endTime" binding:"required,clock" example:"10:00"`
	Mode      models.DefenseMode `json:"mode" binding:"required,oneof=face-to-face online" example:"face-to-face"`
	Venue     string             `json:"venue" binding:"required,max=200" example:"Room 301"`
	Notes     string             `json:"notes,omitempty" binding:"max=1000"`
}

// DefenseRequestListResponse is one page of defense requests
type DefenseRequestListResponse struct {
	Items      []*models.DefenseRequest `json:"items"`
	Pagination PaginationInfo           `json:"pagination"`
}
