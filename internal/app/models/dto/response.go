package dto

import "time"

// APIResponse is the envelope used by the error middleware and simple handlers
type APIResponse struct {
	Success bool         `json:"success" example:"true"`
	Data    interface{}  `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`

	Timestamp time.Time `json:"timestamp" example:"2025-04-23T12:01:05.123Z"`
}

// NewAPIResponse wraps data in a successful envelope
func NewAPIResponse(data interface{}) APIResponse {
	return APIResponse{Success: true, Data: data, Timestamp: time.Now()}
}

// PaginationInfo represents pagination metadata
type PaginationInfo struct {
	CurrentPage int   `json:"currentPage" example:"1"`
	TotalPages  int   `json:"totalPages" example:"3"`
	PageSize    int   `json:"pageSize" example:"20"`
	TotalItems  int64 `json:"totalItems" example:"45"`
}

// PaginatedResponse represents a paginated list with metadata
type PaginatedResponse struct {
	Items      interface{}    `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}
