package replay

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/okian/manifest/internal/domain/model"
	"github.com/okian/manifest/internal/domain/types"
	"github.com/okian/manifest/pkg/logger"
)

type ingestResponse struct {
	Status string `json:"status"`
	types.IngestReport
}

// batches splits rows into consecutive slices of at most size rows.
func batches(rows []model.RawPassenger, size int) [][]model.RawPassenger {
	if size < 1 {
		size = DefaultBatchSize
	}
	out := make([][]model.RawPassenger, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		out = append(out, rows[start:min(start+size, len(rows))])
	}
	return out
}

type batchResult struct {
	accepted  int
	duplicate int
	retries   int
	failed    bool
}

// submitRows posts batches concurrently. A batch answered with 429 is sent
// again: rows that made it the first time come back as duplicates, so only
// the dropped ones are queued on retry.
func submitRows(ctx context.Context, cfg *Config, c *client, rows []model.RawPassenger, stats *Stats) {
	log := logger.Named("replay")
	work := make(chan []model.RawPassenger, cfg.Workers*2)
	results := make(chan batchResult, cfg.Workers*2)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range work {
				res := submitBatch(ctx, c, batch)
				if cfg.Verbose {
					log.Info(ctx, "batch sent",
						logger.Int("rows", len(batch)),
						logger.Int("accepted", res.accepted),
						logger.Int("retries", res.retries),
						logger.Bool("failed", res.failed),
					)
				}
				results <- res
			}
		}()
	}

	go func() {
		defer close(work)
		for _, b := range batches(rows, cfg.BatchSize) {
			select {
			case <-ctx.Done():
				return
			case work <- b:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		stats.BatchesSent++
		stats.RowsAccepted += res.accepted
		stats.RowsDuplicate += res.duplicate
		stats.Retries += res.retries
		if res.failed {
			stats.BatchesFailed++
		}
	}
}

func submitBatch(ctx context.Context, c *client, batch []model.RawPassenger) batchResult {
	var res batchResult
	for attempt := 0; attempt <= maxRetries; attempt++ {
		var resp ingestResponse
		status, err := c.post(ctx, "/passengers", batch, &resp)
		if err != nil {
			res.failed = true
			return res
		}
		switch status {
		case http.StatusAccepted:
			res.accepted += resp.Accepted
			if attempt == 0 {
				res.duplicate = resp.Duplicates
			}
			return res
		case http.StatusTooManyRequests:
			res.accepted += resp.Accepted
			if attempt == 0 {
				res.duplicate = resp.Duplicates
			}
			res.retries++
			select {
			case <-ctx.Done():
				res.failed = true
				return res
			case <-time.After(retryBackoff):
			}
		default:
			res.failed = true
			return res
		}
	}
	res.failed = true
	return res
}
