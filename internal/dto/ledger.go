package dto

// CreateLedgerRequest creates a new ledger root with its default accounts.
type CreateLedgerRequest struct {
	Name string `json:"name" binding:"required"`
}

// LedgerResponse mirrors a persisted ledger.
type LedgerResponse struct {
	Hash       string `json:"hash"`
	Name       string `json:"name"`
	BucketHash string `json:"bucketHash"`
}
