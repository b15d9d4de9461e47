package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Store errors.
var (
	ErrNotFound = errors.New("draft not found")
	ErrConflict = errors.New("draft was modified concurrently")
)

// Store persists drafts as JSON in Redis with a TTL. Saves carry an
// optimistic revision check; edits are serialized per draft by the caller, so
// a conflict indicates a stale client rather than a race to resolve.
type Store struct {
	R   *redis.Client
	TTL time.Duration
}

func draftKey(id string) string {
	return "draft:" + id
}

// Get loads a draft by id.
func (s Store) Get(ctx context.Context, id string) (Draft, error) {
	if s.R == nil {
		return Draft{}, errors.New("draft store not configured")
	}
	data, err := s.R.Get(ctx, draftKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Draft{}, ErrNotFound
		}
		return Draft{}, fmt.Errorf("load draft: %w", err)
	}
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return Draft{}, fmt.Errorf("decode draft: %w", err)
	}
	return d, nil
}

// Create stores a brand-new draft at revision 1.
func (s Store) Create(ctx context.Context, d Draft) (Draft, error) {
	if s.R == nil {
		return Draft{}, errors.New("draft store not configured")
	}
	d.Revision = 1
	data, err := json.Marshal(d)
	if err != nil {
		return Draft{}, fmt.Errorf("encode draft: %w", err)
	}
	ok, err := s.R.SetNX(ctx, draftKey(d.ID), data, s.TTL).Result()
	if err != nil {
		return Draft{}, fmt.Errorf("store draft: %w", err)
	}
	if !ok {
		return Draft{}, ErrConflict
	}
	return d, nil
}

// Save persists an edit. expectedRevision is the revision the edit was based
// on; the stored draft must still carry it or ErrConflict is returned.
func (s Store) Save(ctx context.Context, d Draft, expectedRevision int64) (Draft, error) {
	if s.R == nil {
		return Draft{}, errors.New("draft store not configured")
	}
	current, err := s.Get(ctx, d.ID)
	if err != nil {
		return Draft{}, err
	}
	if current.Revision != expectedRevision {
		return Draft{}, ErrConflict
	}
	d.Revision = expectedRevision + 1
	data, err := json.Marshal(d)
	if err != nil {
		return Draft{}, fmt.Errorf("encode draft: %w", err)
	}
	if err := s.R.Set(ctx, draftKey(d.ID), data, s.TTL).Err(); err != nil {
		return Draft{}, fmt.Errorf("store draft: %w", err)
	}
	return d, nil
}

// Delete drops a draft.
func (s Store) Delete(ctx context.Context, id string) error {
	if s.R == nil {
		return nil
	}
	return s.R.Del(ctx, draftKey(id)).Err()
}
