package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrSnapshotNotFound - no snapshot stored yet for the requested feed
var ErrSnapshotNotFound = errors.New("feed snapshot not found")

// SnapshotStore keeps serialized CandleFeed tables in Redis so a
// restarted service can warm-start instead of refetching trade history.
type SnapshotStore struct {
	rdb    *Client
	prefix string
	ttl    time.Duration
}

func NewSnapshotStore(rdb *Client, prefix string, ttl time.Duration) *SnapshotStore {
	if prefix == "" {
		prefix = "pricefeed"
	}
	return &SnapshotStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *SnapshotStore) key(feedID string) string {
	return fmt.Sprintf("%s:snapshot:%s", s.prefix, feedID)
}

// Save overwrites the stored snapshot for the feed. A zero TTL keeps the
// snapshot until the next overwrite.
func (s *SnapshotStore) Save(ctx context.Context, feedID string, data []byte) error {
	if err := s.rdb.Set(ctx, s.key(feedID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save feed snapshot %s: %w", feedID, err)
	}
	return nil
}

// Load returns the stored snapshot bytes, or ErrSnapshotNotFound.
func (s *SnapshotStore) Load(ctx context.Context, feedID string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, s.key(feedID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, feedID)
	}
	if err != nil {
		return nil, fmt.Errorf("load feed snapshot %s: %w", feedID, err)
	}
	return data, nil
}

func (s *SnapshotStore) Health(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
