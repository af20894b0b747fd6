// Package feed owns the growing candle table for a set of pairs and one
// timeframe, applying trade deltas by invalidating and recomputing the
// overlapping tail.
package feed

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"pricefeed/internal/domain"
	"pricefeed/internal/ohlcv"
)

var (
	// ErrCycleRegression - delta cycles must be non-decreasing per feed
	ErrCycleRegression = errors.New("delta cycle older than last applied cycle")

	// ErrOverlappingDelta - the resampled suffix collided with a row the
	// truncation should have removed, i.e. the delta's StartTS was wrong
	ErrOverlappingDelta = errors.New("resampled candles overlap retained table prefix")
)

// CandleFeed generates candles of one timeframe for a set of pairs from
// an incremental trade stream.
//
// The owned table is replaced by reference on every delta, never mutated
// in place: concurrent readers always observe either the old complete
// table or the new complete table, never a truncated-but-not-yet-refilled
// intermediate state. Writers (ApplyDelta callers) must still serialize
// among themselves.
type CandleFeed struct {
	timeframe domain.Timeframe
	tracked   map[domain.PairID]struct{} // empty = accept all pairs

	mu        sync.RWMutex
	table     []domain.Candle // ordered by timestamp asc, then pair id
	lastCycle int64
}

func NewCandleFeed(pairs []domain.PairID, tf domain.Timeframe) (*CandleFeed, error) {
	if tf.Duration <= 0 {
		return nil, domain.ErrInvalidTimeframe
	}
	tracked := make(map[domain.PairID]struct{}, len(pairs))
	for _, p := range pairs {
		tracked[p] = struct{}{}
	}
	return &CandleFeed{
		timeframe: tf,
		tracked:   tracked,
	}, nil
}

// ApplyDelta discards every owned candle with timestamp >= delta.StartTS,
// resamples delta.Trades, and appends the fresh suffix to the retained
// prefix. Reapplying the same delta is idempotent: truncation and
// resampling are pure functions of StartTS and Trades.
//
// Returns the recomputed suffix so callers can fan the fresh candles out
// (broadcast, persistence) without diffing the table.
func (f *CandleFeed) ApplyDelta(delta domain.TradeDelta) ([]domain.Candle, error) {
	f.mu.RLock()
	last := f.lastCycle
	old := f.table
	f.mu.RUnlock()

	if delta.Cycle < last {
		return nil, fmt.Errorf("%w: got cycle=%d, last=%d", ErrCycleRegression, delta.Cycle, last)
	}

	// retained prefix: strictly before the correction window
	cut := len(old)
	for cut > 0 && !old[cut-1].Timestamp.Before(delta.StartTS) {
		cut--
	}
	prefix := old[:cut]

	suffix := ohlcv.ResampleTrades(f.trackedTrades(delta.Trades), f.timeframe)

	// A suffix row landing on a (pair, timestamp) the prefix still holds
	// means the delta understated its correction window. Silently merging
	// would duplicate bars, so fail loudly instead.
	if len(prefix) > 0 && len(suffix) > 0 {
		kept := make(map[domain.PairID]time.Time, 8)
		for i := range prefix {
			kept[prefix[i].PairID] = prefix[i].Timestamp
		}
		for i := range suffix {
			if lastTS, ok := kept[suffix[i].PairID]; ok && !suffix[i].Timestamp.After(lastTS) {
				return nil, fmt.Errorf("%w: pair=%d candle=%s start_ts=%s",
					ErrOverlappingDelta, suffix[i].PairID,
					suffix[i].Timestamp.Format(time.RFC3339),
					delta.StartTS.Format(time.RFC3339))
			}
		}
	}

	next := make([]domain.Candle, 0, len(prefix)+len(suffix))
	next = append(next, prefix...)
	next = append(next, suffix...)

	f.mu.Lock()
	f.table = next
	f.lastCycle = delta.Cycle
	f.mu.Unlock()
	return suffix, nil
}

// trackedTrades drops trades for pairs the feed does not follow.
func (f *CandleFeed) trackedTrades(trades []domain.Trade) []domain.Trade {
	if len(f.tracked) == 0 {
		return trades
	}
	out := make([]domain.Trade, 0, len(trades))
	for i := range trades {
		if _, ok := f.tracked[trades[i].PairID]; ok {
			out = append(out, trades[i])
		}
	}
	return out
}

// GetCandlesByPair returns the pair's current series in timestamp order.
// Empty when no candles have been generated for the pair yet.
func (f *CandleFeed) GetCandlesByPair(pair domain.PairID) []domain.Candle {
	return ohlcv.FeedForPair(f.Table(), pair)
}

// Table returns the current owned table. The returned slice is immutable
// by convention: ApplyDelta always builds a new one.
func (f *CandleFeed) Table() []domain.Candle {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.table
}

// LastCycle returns the cycle counter of the last applied delta.
func (f *CandleFeed) LastCycle() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastCycle
}

// Timeframe returns the bucket width this feed aggregates to.
func (f *CandleFeed) Timeframe() domain.Timeframe {
	return f.timeframe
}

// TrackedPairs returns the pair filter, empty when the feed accepts all.
func (f *CandleFeed) TrackedPairs() []domain.PairID {
	out := make([]domain.PairID, 0, len(f.tracked))
	for p := range f.tracked {
		out = append(out, p)
	}
	return out
}
