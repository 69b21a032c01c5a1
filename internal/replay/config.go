// Package replay posts manifest files to a running normalizer and checks
// that every row comes back either normalized or rejected.
package replay

import "time"

// Config holds configuration for a replay run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Files        []string      // Manifest CSV files to replay
	BatchSize    int           // Rows per POST /passengers request
	Workers      int           // Number of concurrent submitters
	Timeout      time.Duration // HTTP request timeout
	SettleWait   time.Duration // How long to wait for every row to be accounted for
	PollInterval time.Duration // Delay between verification polls
	PageSize     int           // Page limit used when listing passengers
	Verbose      bool          // Log every batch
}

// Stats holds replay statistics.
type Stats struct {
	RowsLoaded     int
	BatchesSent    int
	RowsAccepted   int
	RowsDuplicate  int
	Retries        int
	BatchesFailed  int
	RowsNormalized int
	RowsRejected   int
	RowsMissing    int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}

// Defaults.
const (
	DefaultBatchSize    = 100
	DefaultTimeout      = 30 * time.Second
	DefaultSettleWait   = 30 * time.Second
	DefaultPollInterval = 200 * time.Millisecond
	DefaultPageSize     = 100

	retryBackoff = 50 * time.Millisecond
	maxRetries   = 100
)
