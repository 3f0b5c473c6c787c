package dto

// UpsertFacultyRequest creates or refreshes a directory entry
type UpsertFacultyRequest struct {
	FullName string `json:"fullName" binding:"required,personname" example:"Dr. Jose Rizal"`
	Title    string `json:"title,omitempty" binding:"max=100" example:"Associate Professor"`
	Active   *bool  `json:"active,omitempty" example:"true"`
}
