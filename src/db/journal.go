package db

import (
	"context"
	"errors"

	"wheelofmeals/src/types"
)

// Journal saves picks to a primary store and then forwards them to any sinks.
// Reads are served by the primary store only.
type Journal struct {
	store types.PickStore
	sinks []types.PickSink
}

func Tee(store types.PickStore, sinks ...types.PickSink) *Journal {
	return &Journal{store: store, sinks: sinks}
}

// SavePick returns the joined errors of every destination that failed. A failing sink
// does not stop the others.
func (j *Journal) SavePick(ctx context.Context, pick types.Pick) error {
	var errs []error
	if err := j.store.SavePick(ctx, pick); err != nil {
		errs = append(errs, err)
	}
	for _, sink := range j.sinks {
		if err := sink.SavePick(ctx, pick); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (j *Journal) GetPicks(ctx context.Context, user string, limit, offset int) ([]types.Pick, int, error) {
	return j.store.GetPicks(ctx, user, limit, offset)
}

func (j *Journal) GetNearbyPicks(ctx context.Context, user string, origin types.GeoPoint, limit int) ([]types.Pick, error) {
	return j.store.GetNearbyPicks(ctx, user, origin, limit)
}
