package models

// BulkItemError reports why one item of a bulk operation was not changed
type BulkItemError struct {
	ID    int64  `json:"id" example:"14"`
	Code  string `json:"code" example:"WFL_001"`
	Error string `json:"error"`
}

// BulkResult lists the ids a bulk operation changed and the ones it could not.
// Items are independent: a failure never undoes another item's change.
type BulkResult struct {
	Changed []int64         `json:"changed"`
	Failed  []BulkItemError `json:"failed"`
}
