package dto

// SweepRequest triggers the auto-completion sweep
type SweepRequest struct {
	DryRun bool `json:"dryRun" example:"true"`
}

// ResyncRequest retries record syncs that did not complete
type ResyncRequest struct {
	Limit int `json:"limit,omitempty" binding:"omitempty,gt=0,max=500" example:"50"`
}
