package stock

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Store persists snapshots in Redis, one key per location. A rebuild always
// replaces the whole value; entries are never patched in place.
type Store struct {
	R   *redis.Client
	TTL time.Duration
}

func snapshotKey(locationID string) string {
	return "stock:snapshot:" + locationID
}

// Get loads the snapshot for a location. The second return reports whether a
// snapshot existed.
func (s Store) Get(ctx context.Context, locationID string) (*Snapshot, bool, error) {
	if s.R == nil || locationID == "" {
		return nil, false, nil
	}
	data, err := s.R.Get(ctx, snapshotKey(locationID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, err
	}
	return &snap, true, nil
}

// Set stores the snapshot under its own location key.
func (s Store) Set(ctx context.Context, snap *Snapshot) error {
	if s.R == nil || snap == nil || snap.LocationID == "" {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.R.Set(ctx, snapshotKey(snap.LocationID), data, s.TTL).Err()
}
