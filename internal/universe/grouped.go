// Package universe provides a read-only, pair-grouped index over a candle
// table with bias-safe point-in-time price lookups.
package universe

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"pricefeed/internal/domain"
)

var (
	// ErrPairNotFound - the requested pair id has no rows in this universe
	ErrPairNotFound = errors.New("pair not found in universe")

	// ErrAmbiguousPair - a single-pair accessor was called on a universe
	// holding more than one pair
	ErrAmbiguousPair = errors.New("universe holds more than one pair")

	// ErrDuplicateCandle - the input table violated the (pair, timestamp)
	// uniqueness invariant
	ErrDuplicateCandle = errors.New("duplicate candle timestamp for pair")
)

// CandleSampleUnavailableError is returned by GetPriceWithTolerance when
// no candle lies within the requested tolerance at or before the
// requested instant. Expected and recoverable: the caller may widen the
// tolerance or treat the pair as missing data.
type CandleSampleUnavailableError struct {
	PairID    domain.PairID
	When      time.Time
	Tolerance time.Duration
}

func (e *CandleSampleUnavailableError) Error() string {
	return fmt.Sprintf("no candle sample for pair %d at or before %s within tolerance %s",
		e.PairID, e.When.Format(time.RFC3339), e.Tolerance)
}

// GroupedCandleUniverse partitions a candle table by pair id, each
// partition sorted ascending and unique by timestamp. Built once at
// construction; never mutated afterwards. When new data must be merged
// the universe is reconstructed wholesale from a fresh table.
type GroupedCandleUniverse struct {
	pairs map[domain.PairID][]domain.Candle
	ids   []domain.PairID // sorted, for deterministic iteration
	total int
}

// NewGroupedCandleUniverse groups the input by pair and sorts each group
// by timestamp. Fails fast on duplicate (pair, timestamp) rows; malformed
// rows are not otherwise repaired.
func NewGroupedCandleUniverse(candles []domain.Candle) (*GroupedCandleUniverse, error) {
	pairs := make(map[domain.PairID][]domain.Candle)
	for i := range candles {
		c := candles[i]
		pairs[c.PairID] = append(pairs[c.PairID], c)
	}

	ids := make([]domain.PairID, 0, len(pairs))
	for id, series := range pairs {
		sort.SliceStable(series, func(i, j int) bool {
			return series[i].Timestamp.Before(series[j].Timestamp)
		})
		for i := 1; i < len(series); i++ {
			if series[i].Timestamp.Equal(series[i-1].Timestamp) {
				return nil, fmt.Errorf("%w: pair=%d timestamp=%s",
					ErrDuplicateCandle, id, series[i].Timestamp.Format(time.RFC3339))
			}
		}
		pairs[id] = series
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return &GroupedCandleUniverse{
		pairs: pairs,
		ids:   ids,
		total: len(candles),
	}, nil
}

// GetPairCount returns the number of distinct pairs present.
func (u *GroupedCandleUniverse) GetPairCount() int {
	return len(u.pairs)
}

// GetCandleCount returns the total row count across all pairs.
func (u *GroupedCandleUniverse) GetCandleCount() int {
	return u.total
}

// GetCandlesByPair returns the pair's full ascending series as a view.
// Callers must not mutate the returned slice.
func (u *GroupedCandleUniverse) GetCandlesByPair(pair domain.PairID) ([]domain.Candle, error) {
	series, ok := u.pairs[pair]
	if !ok {
		return nil, fmt.Errorf("%w: pair=%d", ErrPairNotFound, pair)
	}
	return series, nil
}

// GetSinglePairData returns the prefix of the series known strictly
// before the given timestamp. With allowCurrent, rows exactly at the
// timestamp are included as well.
//
// This is the forward-looking-bias guard: by default the bar whose
// timestamp coincides with the query instant is excluded, because its
// close would not yet be knowable in live or backtest use.
//
// Only defined on single-pair universes; holding more than one pair is
// an error, callers must disambiguate via GetCandlesByPair.
func (u *GroupedCandleUniverse) GetSinglePairData(timestamp time.Time, allowCurrent bool) ([]domain.Candle, error) {
	if len(u.ids) != 1 {
		return nil, fmt.Errorf("%w: have %d pairs", ErrAmbiguousPair, len(u.ids))
	}
	series := u.pairs[u.ids[0]]

	// first index whose timestamp is not before the cut
	n := sort.Search(len(series), func(i int) bool {
		return !series[i].Timestamp.Before(timestamp)
	})
	if allowCurrent {
		for n < len(series) && series[n].Timestamp.Equal(timestamp) {
			n++
		}
	}
	return series[:n], nil
}

// GetPriceWithTolerance resolves the pair's price at or before the given
// instant with bounded staleness.
//
// Returns the close of the latest candle whose timestamp <= when, plus
// the distance between the instant and that candle. A candle exactly at
// the instant wins with distance zero. If no candle exists at or before
// the instant, or the nearest one is further away than the tolerance
// (boundary inclusive), a CandleSampleUnavailableError is returned.
func (u *GroupedCandleUniverse) GetPriceWithTolerance(pair domain.PairID, when time.Time, tolerance time.Duration) (float64, time.Duration, error) {
	series, ok := u.pairs[pair]
	if !ok {
		return 0, 0, fmt.Errorf("%w: pair=%d", ErrPairNotFound, pair)
	}

	// rightmost candle with timestamp <= when
	n := sort.Search(len(series), func(i int) bool {
		return series[i].Timestamp.After(when)
	})
	if n == 0 {
		return 0, 0, &CandleSampleUnavailableError{PairID: pair, When: when, Tolerance: tolerance}
	}

	candle := &series[n-1]
	distance := when.Sub(candle.Timestamp)
	if distance > tolerance {
		return 0, 0, &CandleSampleUnavailableError{PairID: pair, When: when, Tolerance: tolerance}
	}
	return candle.Close, distance, nil
}

// PairIDs returns all pair ids present, ascending.
func (u *GroupedCandleUniverse) PairIDs() []domain.PairID {
	return u.ids
}
