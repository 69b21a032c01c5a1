// Package types contains common types used across the application
package types

// IngestReport summarizes one batch of rows submitted for normalization.
type IngestReport struct {
	BatchID    string `json:"batch_id"`
	Received   int    `json:"received"`
	Accepted   int    `json:"accepted"`
	Duplicates int    `json:"duplicates"`
	Dropped    int    `json:"dropped"`
}

// Add folds another report's counts into r. The batch id is kept.
func (r *IngestReport) Add(o IngestReport) {
	r.Received += o.Received
	r.Accepted += o.Accepted
	r.Duplicates += o.Duplicates
	r.Dropped += o.Dropped
}

// Rejection records a row that failed normalization
type Rejection struct {
	PassengerID int    `json:"passenger_id"`
	Kind        string `json:"kind"`
	Error       string `json:"error"`
}
