package service

import (
	"context"

	"github.com/okian/manifest/internal/adapters/repository"
	"github.com/okian/manifest/internal/domain/dedupe"
	"github.com/okian/manifest/internal/domain/model"
)

// rowSink stores worker output. A rejected row's id is forgotten by the
// deduper so a corrected row with the same id can be submitted again.
type rowSink struct {
	*repository.ShardedStore
	deduper dedupe.Deduper
}

// Reject records the rejection, then releases the passenger id.
func (s rowSink) Reject(ctx context.Context, passengerID int, kind string, cause error) error {
	if err := s.ShardedStore.Reject(ctx, passengerID, kind, cause); err != nil {
		return err
	}
	s.deduper.Unrecord(ctx, model.RawPassenger{PassengerID: passengerID}.Key())
	return nil
}
