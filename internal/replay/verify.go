package replay

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/manifest/internal/domain/model"
	"github.com/okian/manifest/internal/domain/types"
)

// pageResponse also carries the error code of a refused page request.
type pageResponse struct {
	Code       string            `json:"code"`
	Passengers []model.Passenger `json:"passengers"`
}

const codeLimitExceeded = "limit_exceeded"

// outcome is what the service reports for the replayed ids.
type outcome struct {
	normalized map[int]bool
	rejected   map[int]bool
}

func (o outcome) missing(ids map[int]struct{}) int {
	n := 0
	for id := range ids {
		if !o.normalized[id] && !o.rejected[id] {
			n++
		}
	}
	return n
}

// fetchOutcome pages through GET /passengers and reads GET /rejections.
// A page size above the server's cap is halved until the server accepts
// it; the accepted size is left in *pageSize for later polls.
func fetchOutcome(ctx context.Context, c *client, pageSize *int) (outcome, error) {
	o := outcome{normalized: make(map[int]bool), rejected: make(map[int]bool)}
	offset := 0
	for {
		var page pageResponse
		status, err := c.get(ctx, fmt.Sprintf("/passengers?offset=%d&limit=%d", offset, *pageSize), &page)
		if err != nil {
			return o, err
		}
		if status == http.StatusBadRequest && page.Code == codeLimitExceeded && *pageSize > 1 {
			*pageSize /= 2
			continue
		}
		if status != http.StatusOK {
			return o, fmt.Errorf("list passengers: status %d", status)
		}
		for _, p := range page.Passengers {
			o.normalized[p.PassengerID] = true
		}
		if len(page.Passengers) < *pageSize {
			break
		}
		offset += len(page.Passengers)
	}

	var rejections []types.Rejection
	status, err := c.get(ctx, "/rejections", &rejections)
	if err != nil {
		return o, err
	}
	if status != http.StatusOK {
		return o, fmt.Errorf("list rejections: status %d", status)
	}
	for _, r := range rejections {
		o.rejected[r.PassengerID] = true
	}
	return o, nil
}

// verifyRows polls until every replayed id is normalized or rejected, or
// until the settle wait runs out.
func verifyRows(ctx context.Context, cfg *Config, c *client, rows []model.RawPassenger, stats *Stats) error {
	ids := make(map[int]struct{}, len(rows))
	for _, r := range rows {
		ids[r.PassengerID] = struct{}{}
	}

	pageSize := cfg.PageSize
	deadline := time.Now().Add(cfg.SettleWait)
	for {
		o, err := fetchOutcome(ctx, c, &pageSize)
		if err != nil {
			return err
		}
		stats.RowsMissing = o.missing(ids)
		stats.RowsNormalized, stats.RowsRejected = 0, 0
		for id := range ids {
			switch {
			case o.normalized[id]:
				stats.RowsNormalized++
			case o.rejected[id]:
				stats.RowsRejected++
			}
		}
		if stats.RowsMissing == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%d rows neither normalized nor rejected after %s", stats.RowsMissing, cfg.SettleWait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.PollInterval):
		}
	}
}
