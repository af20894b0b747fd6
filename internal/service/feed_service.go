package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gitlab.com/nevasik7/alerting/logger"

	"pricefeed/internal/domain"
	"pricefeed/internal/feed"
	"pricefeed/internal/metrics"
	"pricefeed/internal/ohlcv"
	"pricefeed/internal/pubsub"
	"pricefeed/internal/universe"
)

// CandleWriter persists recomputed candles.
type CandleWriter interface {
	Enqueue(candle domain.Candle) error
	Health(ctx context.Context) error
}

// SnapshotStore keeps feed snapshots for warm starts.
type SnapshotStore interface {
	Save(ctx context.Context, feedID string, data []byte) error
	Load(ctx context.Context, feedID string) ([]byte, error)
	Health(ctx context.Context) error
}

// FeedService is the single orchestration point for trade deltas:
// feed apply -> broadcast -> persistence. Also serves the read side for
// the HTTP handlers.
type FeedService struct {
	log         logger.Logger
	feedID      string
	feed        *feed.CandleFeed
	broadcaster pubsub.Broadcaster
	writer      CandleWriter
	snapshots   SnapshotStore
}

func NewFeedService(
	log logger.Logger,
	feedID string,
	candleFeed *feed.CandleFeed,
	broadcaster pubsub.Broadcaster,
	writer CandleWriter,
	snapshots SnapshotStore,
) *FeedService {
	return &FeedService{
		log:         log,
		feedID:      feedID,
		feed:        candleFeed,
		broadcaster: broadcaster,
		writer:      writer,
		snapshots:   snapshots,
	}
}

// ProcessDelta applies one trade delta and fans the recomputed candles
// out. Broadcast and persistence failures do not fail the delta: the
// feed table is already consistent, subscribers catch up on the next
// cycle and ClickHouse rows are re-enqueued by later corrections.
func (s *FeedService) ProcessDelta(ctx context.Context, delta domain.TradeDelta) error {
	before := len(s.feed.Table())

	suffix, err := s.feed.ApplyDelta(delta)
	if err != nil {
		metrics.DeltasRejected.Inc()
		return fmt.Errorf("apply delta cycle=%d: %w", delta.Cycle, err)
	}

	metrics.DeltasApplied.Inc()
	metrics.CandlesEmitted.Add(float64(len(suffix)))
	if truncated := before + len(suffix) - len(s.feed.Table()); truncated > 0 {
		metrics.TruncatedRows.Add(float64(truncated))
	}

	for _, patch := range s.buildPatches(delta.Cycle, suffix) {
		if s.broadcaster != nil {
			if err := s.broadcaster.Publish(ctx, patch.Topic, patch); err != nil {
				s.log.Errorf("Failed to broadcast patch for %s: %v", patch.Topic, err)
			}
		}
	}

	if s.writer != nil {
		for i := range suffix {
			if err := s.writer.Enqueue(suffix[i]); err != nil {
				s.log.Errorf("Failed to enqueue candle for persistence: %v", err)
				break
			}
		}
	}

	s.log.Debugf("Delta applied: cycle=%d start_ts=%s candles=%d",
		delta.Cycle, delta.StartTS.Format(time.RFC3339), len(suffix))
	return nil
}

// buildPatches groups a recomputed suffix by pair, one patch per pair.
func (s *FeedService) buildPatches(cycle int64, suffix []domain.Candle) []domain.CandlePatch {
	byPair := make(map[domain.PairID][]domain.Candle)
	order := make([]domain.PairID, 0)
	for i := range suffix {
		p := suffix[i].PairID
		if _, ok := byPair[p]; !ok {
			order = append(order, p)
		}
		byPair[p] = append(byPair[p], suffix[i])
	}

	now := time.Now().UTC()
	patches := make([]domain.CandlePatch, 0, len(order))
	for _, p := range order {
		patches = append(patches, domain.CandlePatch{
			Topic:       fmt.Sprintf("pair:%d", p),
			PairID:      p,
			Cycle:       cycle,
			GeneratedAt: now,
			Candles:     byPair[p],
		})
	}
	return patches
}

// GetPairCandles returns the pair's current series, empty when the feed
// has not produced candles for it yet.
func (s *FeedService) GetPairCandles(_ context.Context, pair domain.PairID) []domain.Candle {
	return s.feed.GetCandlesByPair(pair)
}

// GetPairCandlesBefore returns the pair's candles known strictly before
// the given instant (inclusive when allowCurrent) - the bias-safe view.
func (s *FeedService) GetPairCandlesBefore(_ context.Context, pair domain.PairID, before time.Time, allowCurrent bool) ([]domain.Candle, error) {
	series := ohlcv.FeedForPair(s.feed.Table(), pair)
	u, err := universe.NewGroupedCandleUniverse(series)
	if err != nil {
		return nil, err
	}
	if u.GetPairCount() == 0 {
		return nil, nil
	}
	return u.GetSinglePairData(before, allowCurrent)
}

// GetPriceAt resolves the pair's price at the given instant with bounded
// staleness, against a snapshot of the current feed table.
func (s *FeedService) GetPriceAt(_ context.Context, pair domain.PairID, when time.Time, tolerance time.Duration) (float64, time.Duration, error) {
	u, err := universe.NewGroupedCandleUniverse(s.feed.Table())
	if err != nil {
		return 0, 0, err
	}

	price, distance, err := u.GetPriceWithTolerance(pair, when, tolerance)
	if err != nil {
		var unavailable *universe.CandleSampleUnavailableError
		if errors.As(err, &unavailable) {
			metrics.LookupMisses.Inc()
		}
		return 0, 0, err
	}
	return price, distance, nil
}

// Snapshot persists the feed's current table for warm starts.
func (s *FeedService) Snapshot(ctx context.Context) error {
	if s.snapshots == nil {
		return nil
	}

	data, err := s.feed.MarshalSnapshot()
	if err != nil {
		return err
	}
	if err = s.snapshots.Save(ctx, s.feedID, data); err != nil {
		return err
	}

	s.log.Infof("Feed snapshot saved: feed=%s candles=%d bytes=%d",
		s.feedID, len(s.feed.Table()), len(data))
	return nil
}

// RestoreFromSnapshot warm-starts the feed from the last saved snapshot.
// A missing snapshot is a cold start, not an error.
func (s *FeedService) RestoreFromSnapshot(ctx context.Context) error {
	if s.snapshots == nil {
		return nil
	}

	data, err := s.snapshots.Load(ctx, s.feedID)
	if err != nil {
		s.log.Infof("No usable feed snapshot, cold start: %v", err)
		return nil
	}

	if err = s.feed.RestoreSnapshot(data); err != nil {
		return fmt.Errorf("restore feed snapshot %s: %w", s.feedID, err)
	}

	s.log.Infof("Feed warm-started from snapshot: feed=%s candles=%d cycle=%d",
		s.feedID, len(s.feed.Table()), s.feed.LastCycle())
	return nil
}

// LastCycle exposes the feed's applied cycle counter (readiness, tests).
func (s *FeedService) LastCycle() int64 {
	return s.feed.LastCycle()
}

func (s *FeedService) CheckDependency(ctx context.Context) error {
	errDependency := make([]string, 0, 3)

	if s.snapshots != nil {
		if err := s.snapshots.Health(ctx); err != nil {
			errDependency = append(errDependency, fmt.Sprintf("Redis connection error: %v", err))
		}
	}

	if s.writer != nil {
		if err := s.writer.Health(ctx); err != nil {
			errDependency = append(errDependency, fmt.Sprintf("ClickHouse connection error: %v", err))
		}
	}

	if s.broadcaster != nil {
		if err := s.broadcaster.Health(ctx); err != nil {
			errDependency = append(errDependency, "NATS: connection not ready")
		}
	}

	if len(errDependency) > 0 {
		return fmt.Errorf("dependency check failed: %v", strings.Join(errDependency, "; "))
	}
	return nil
}
