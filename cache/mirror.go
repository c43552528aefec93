package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"Spotter/models"

	"github.com/redis/go-redis/v9"
)

// Key schema:
//
//	arbspotter:snapshot:latest - full snapshot JSON, expires after ttl
//	arbspotter:snapshots       - pub/sub channel carrying summaries
const (
	LatestKey       = "arbspotter:snapshot:latest"
	SummaryChannel  = "arbspotter:snapshots"
	ttlIntervalMult = 3
)

// ErrNoSnapshot is returned by Latest when nothing has been mirrored.
var ErrNoSnapshot = errors.New("cache: no snapshot")

// SnapshotMirror writes every published snapshot to Redis.
type SnapshotMirror struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSnapshotMirror creates a mirror whose latest key outlives three scan
// intervals.
func NewSnapshotMirror(c *Client, scanInterval time.Duration) *SnapshotMirror {
	return &SnapshotMirror{rdb: c.rdb, ttl: ttlIntervalMult * scanInterval}
}

// Name implements scanner.Publisher.
func (m *SnapshotMirror) Name() string { return "redis" }

// Publish stores the snapshot and announces its summary.
func (m *SnapshotMirror) Publish(ctx context.Context, snap *models.Snapshot) error {
	full, summary, err := encode(snap)
	if err != nil {
		return err
	}

	pipe := m.rdb.TxPipeline()
	pipe.Set(ctx, LatestKey, full, m.ttl)
	pipe.Publish(ctx, SummaryChannel, summary)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: mirror snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// Latest reads back the mirrored snapshot.
func (m *SnapshotMirror) Latest(ctx context.Context) (*models.Snapshot, error) {
	data, err := m.rdb.Get(ctx, LatestKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("redis: get snapshot: %w", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("redis: unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

func encode(snap *models.Snapshot) (full, summary []byte, err error) {
	full, err = json.Marshal(snap)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: marshal snapshot %s: %w", snap.ID, err)
	}
	summary, err = json.Marshal(snap.Summarize())
	if err != nil {
		return nil, nil, fmt.Errorf("redis: marshal summary %s: %w", snap.ID, err)
	}
	return full, summary, nil
}
