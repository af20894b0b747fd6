// Package ohlcv converts raw trade tables into fixed-timeframe OHLCV
// candles. Pure transformations, no state.
package ohlcv

import (
	"math"
	"sort"

	"pricefeed/internal/domain"
)

// ResampleTrades buckets trades by (pair, timeframe) and emits one candle
// per non-empty bucket.
//
// The input does not need to be sorted: out-of-order delivery is common
// with streaming and reorg sources, so trades are stable-sorted by
// timestamp before first/last price extraction. Buckets with no trades
// produce no candle; forward-filling is the consumer's responsibility.
//
// Output is ordered by bucket timestamp ascending, then pair id, which
// makes resampling deterministic for a fixed input.
func ResampleTrades(trades []domain.Trade, tf domain.Timeframe) []domain.Candle {
	if len(trades) == 0 {
		return nil
	}

	sorted := make([]domain.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	type bucketKey struct {
		pair  domain.PairID
		start int64 // unix nanos of the bucket start
	}

	buckets := make(map[bucketKey]*domain.Candle)
	order := make([]bucketKey, 0)

	for i := range sorted {
		t := &sorted[i]
		start := tf.BucketStart(t.Timestamp)
		key := bucketKey{pair: t.PairID, start: start.UnixNano()}

		size := math.Abs(t.Amount)

		c, ok := buckets[key]
		if !ok {
			c = &domain.Candle{
				PairID:       t.PairID,
				Timestamp:    start,
				Open:         t.Price,
				High:         t.Price,
				Low:          t.Price,
				Close:        t.Price,
				ExchangeRate: t.ExchangeRate,
				StartBlock:   t.BlockNumber,
				EndBlock:     t.BlockNumber,
			}
			buckets[key] = c
			order = append(order, key)
		}

		if t.Price > c.High {
			c.High = t.Price
		}
		if t.Price < c.Low {
			c.Low = t.Price
		}
		// trades are sorted, so the current one is chronologically last
		c.Close = t.Price
		c.Volume += size
		if t.ExchangeRate != 0 {
			c.ExchangeRate = t.ExchangeRate
		}

		switch t.Side() {
		case domain.SideBuy:
			c.Buys++
		case domain.SideSell:
			c.Sells++
		}

		if t.BlockNumber != 0 {
			if c.StartBlock == 0 || t.BlockNumber < c.StartBlock {
				c.StartBlock = t.BlockNumber
			}
			if t.BlockNumber > c.EndBlock {
				c.EndBlock = t.BlockNumber
			}
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].start != order[j].start {
			return order[i].start < order[j].start
		}
		return order[i].pair < order[j].pair
	})

	candles := make([]domain.Candle, 0, len(order))
	for _, key := range order {
		candles = append(candles, *buckets[key])
	}
	return candles
}

// FeedForPair filters a multi-pair candle table down to one pair,
// preserving row order. An absent pair yields an empty slice, never an
// error: the feed table legitimately starts empty and grows as deltas
// arrive, so "no rows yet" is not an exceptional condition here.
// Keyed accessors that treat an unknown pair as a caller mistake live on
// GroupedCandleUniverse instead.
func FeedForPair(candles []domain.Candle, pair domain.PairID) []domain.Candle {
	out := make([]domain.Candle, 0)
	for i := range candles {
		if candles[i].PairID == pair {
			out = append(out, candles[i])
		}
	}
	return out
}
