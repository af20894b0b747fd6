package feed

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"pricefeed/internal/domain"
)

const snapshotVersion = 1

// Snapshot is a serializable image of a feed's owned table, allowing a
// warm start after a restart instead of refetching the trade history.
type Snapshot struct {
	Version   int
	TakenAt   time.Time
	Timeframe domain.Timeframe
	LastCycle int64
	Candles   []domain.Candle
}

// MarshalSnapshot serializes the feed's current table with gob.
func (f *CandleFeed) MarshalSnapshot() ([]byte, error) {
	f.mu.RLock()
	snap := Snapshot{
		Version:   snapshotVersion,
		TakenAt:   time.Now().UTC(),
		Timeframe: f.timeframe,
		LastCycle: f.lastCycle,
		Candles:   f.table,
	}
	f.mu.RUnlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, fmt.Errorf("encode feed snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// RestoreSnapshot replaces the feed's table and cycle counter from a
// snapshot taken by MarshalSnapshot. The snapshot's timeframe must match
// the feed's: restoring 1h candles into a 5m feed would poison every
// later delta.
func (f *CandleFeed) RestoreSnapshot(data []byte) error {
	if len(data) == 0 {
		return errors.New("empty snapshot data")
	}

	var snap Snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return fmt.Errorf("decode feed snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("unsupported feed snapshot version: %d", snap.Version)
	}
	if snap.Timeframe != f.timeframe {
		return fmt.Errorf("snapshot timeframe %s does not match feed timeframe %s",
			snap.Timeframe.Duration, f.timeframe.Duration)
	}

	f.mu.Lock()
	f.table = snap.Candles
	f.lastCycle = snap.LastCycle
	f.mu.Unlock()
	return nil
}
