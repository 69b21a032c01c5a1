package replay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/okian/manifest/internal/adapters/manifest"
	"github.com/okian/manifest/pkg/logger"
)

// ErrNoRows is returned when the replayed files hold no rows.
var ErrNoRows = errors.New("no rows to replay")

func (cfg *Config) applyDefaults() {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Workers < 1 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.SettleWait <= 0 {
		cfg.SettleWait = DefaultSettleWait
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PageSize < 1 {
		cfg.PageSize = DefaultPageSize
	}
}

// Run replays the configured files and verifies the outcome.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	cfg.applyDefaults()
	log := logger.Named("replay")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting manifest replay",
		logger.String("baseURL", cfg.BaseURL),
		logger.Any("files", cfg.Files),
		logger.Int("batchSize", cfg.BatchSize),
		logger.Int("workers", cfg.Workers),
	)

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := checkServiceHealth(ctx, c); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	rows, err := manifest.LoadFiles(ctx, cfg.Files...)
	if err != nil {
		return stats, fmt.Errorf("load manifest: %w", err)
	}
	if len(rows) == 0 {
		return stats, ErrNoRows
	}
	stats.RowsLoaded = len(rows)

	submitRows(ctx, cfg, c, rows, stats)
	if stats.BatchesFailed > 0 {
		return finish(ctx, stats), fmt.Errorf("%d of %d batches failed", stats.BatchesFailed, stats.BatchesSent)
	}

	if err := verifyRows(ctx, cfg, c, rows, stats); err != nil {
		return finish(ctx, stats), fmt.Errorf("verify: %w", err)
	}
	return finish(ctx, stats), nil
}

func checkServiceHealth(ctx context.Context, c *client) error {
	status, err := c.get(ctx, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("unexpected status %d", status)
	}
	return nil
}

func finish(ctx context.Context, stats *Stats) *Stats {
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	var rowsPerSecond float64
	if stats.Duration > 0 {
		rowsPerSecond = float64(stats.RowsLoaded) / stats.Duration.Seconds()
	}
	logger.Named("replay").Info(ctx, "replay statistics",
		logger.Int("rowsLoaded", stats.RowsLoaded),
		logger.Int("batchesSent", stats.BatchesSent),
		logger.Int("batchesFailed", stats.BatchesFailed),
		logger.Int("rowsAccepted", stats.RowsAccepted),
		logger.Int("rowsDuplicate", stats.RowsDuplicate),
		logger.Int("retries", stats.Retries),
		logger.Int("rowsNormalized", stats.RowsNormalized),
		logger.Int("rowsRejected", stats.RowsRejected),
		logger.Int("rowsMissing", stats.RowsMissing),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("rowsPerSecond", rowsPerSecond),
	)
	return stats
}
