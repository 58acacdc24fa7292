package domain

// BatchError is the per-id failure entry of a batch operation.
type BatchError struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BatchOperationResult aggregates the per-id outcomes of a multi-id
// lifecycle operation. It is transient, never persisted.
type BatchOperationResult struct {
	TotalRequested int          `json:"total_requested"`
	SuccessCount   int          `json:"success_count"`
	FailureCount   int          `json:"failure_count"`
	SuccessIDs     []string     `json:"success_ids"`
	Errors         []BatchError `json:"errors,omitempty"`
}

// NewBatchOperationResult starts an empty result for the requested ids.
func NewBatchOperationResult(requested int) *BatchOperationResult {
	return &BatchOperationResult{
		TotalRequested: requested,
		SuccessIDs:     []string{},
	}
}

// AddError records a per-id failure.
func (r *BatchOperationResult) AddError(id, code, message string) {
	r.Errors = append(r.Errors, BatchError{ID: id, Code: code, Message: message})
	r.FailureCount++
}

// AddSuccess records a per-id success.
func (r *BatchOperationResult) AddSuccess(id string) {
	r.SuccessIDs = append(r.SuccessIDs, id)
	r.SuccessCount++
}
