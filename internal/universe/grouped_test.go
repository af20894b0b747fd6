package universe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricefeed/internal/domain"
)

// monthlyUniverse builds a single-pair universe with four monthly candles.
func monthlyUniverse(t *testing.T) *GroupedCandleUniverse {
	t.Helper()

	candles := []domain.Candle{
		domain.GenerateSyntheticCandle(1, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), 100.10),
		domain.GenerateSyntheticCandle(1, time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), 100.50),
		domain.GenerateSyntheticCandle(1, time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), 101.10),
		domain.GenerateSyntheticCandle(1, time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC), 101.80),
	}

	u, err := NewGroupedCandleUniverse(candles)
	require.NoError(t, err)
	return u
}

func TestCounts(t *testing.T) {
	u := monthlyUniverse(t)
	assert.Equal(t, 1, u.GetPairCount())
	assert.Equal(t, 4, u.GetCandleCount())
	assert.Equal(t, []domain.PairID{1}, u.PairIDs())
}

func TestNewGroupedCandleUniverse_SortsUnorderedInput(t *testing.T) {
	candles := []domain.Candle{
		domain.GenerateSyntheticCandle(1, time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), 3),
		domain.GenerateSyntheticCandle(1, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), 1),
		domain.GenerateSyntheticCandle(1, time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), 2),
	}

	u, err := NewGroupedCandleUniverse(candles)
	require.NoError(t, err)

	series, err := u.GetCandlesByPair(1)
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, 1.0, series[0].Close)
	assert.Equal(t, 2.0, series[1].Close)
	assert.Equal(t, 3.0, series[2].Close)
}

func TestNewGroupedCandleUniverse_DuplicateTimestampFails(t *testing.T) {
	ts := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := []domain.Candle{
		domain.GenerateSyntheticCandle(1, ts, 100),
		domain.GenerateSyntheticCandle(1, ts, 101),
	}

	_, err := NewGroupedCandleUniverse(candles)
	assert.ErrorIs(t, err, ErrDuplicateCandle)
}

func TestGetCandlesByPair_UnknownPair(t *testing.T) {
	u := monthlyUniverse(t)
	_, err := u.GetCandlesByPair(99)
	assert.ErrorIs(t, err, ErrPairNotFound)
}

func TestGetPriceWithTolerance_ExactHit(t *testing.T) {
	u := monthlyUniverse(t)

	price, distance, err := u.GetPriceWithTolerance(1, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), 0)
	require.NoError(t, err)
	assert.Equal(t, 100.10, price)
	assert.Equal(t, time.Duration(0), distance)
}

func TestGetPriceWithTolerance_ExactHitWideTolerance(t *testing.T) {
	u := monthlyUniverse(t)

	price, distance, err := u.GetPriceWithTolerance(1, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 100.10, price)
	assert.Equal(t, time.Duration(0), distance)
}

func TestGetPriceWithTolerance_StaleBeyondTolerance(t *testing.T) {
	u := monthlyUniverse(t)

	// nearest candle is four days back, one day of staleness allowed
	_, _, err := u.GetPriceWithTolerance(1, time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC), 24*time.Hour)

	var unavailable *CandleSampleUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, domain.PairID(1), unavailable.PairID)
	assert.Equal(t, 24*time.Hour, unavailable.Tolerance)
}

func TestGetPriceWithTolerance_TightToleranceMisses(t *testing.T) {
	u := monthlyUniverse(t)

	_, _, err := u.GetPriceWithTolerance(1, time.Date(2020, 1, 1, 0, 5, 0, 0, time.UTC), time.Minute)

	var unavailable *CandleSampleUnavailableError
	assert.ErrorAs(t, err, &unavailable)
}

func TestGetPriceWithTolerance_BoundaryInclusive(t *testing.T) {
	u := monthlyUniverse(t)

	// distance exactly equal to the tolerance still resolves
	price, distance, err := u.GetPriceWithTolerance(1, time.Date(2020, 1, 1, 0, 5, 0, 0, time.UTC), 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 100.10, price)
	assert.Equal(t, 5*time.Minute, distance)
}

func TestGetPriceWithTolerance_LaterCandleWins(t *testing.T) {
	u := monthlyUniverse(t)

	price, distance, err := u.GetPriceWithTolerance(1, time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 100.50, price)
	assert.Equal(t, time.Duration(0), distance)

	price, distance, err = u.GetPriceWithTolerance(1, time.Date(2020, 2, 1, 0, 5, 0, 0, time.UTC), 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 100.50, price)
	assert.Equal(t, 5*time.Minute, distance)
}

func TestGetPriceWithTolerance_BeforeFirstCandle(t *testing.T) {
	u := monthlyUniverse(t)

	_, _, err := u.GetPriceWithTolerance(1, time.Date(2019, 12, 31, 0, 0, 0, 0, time.UTC), 365*24*time.Hour)

	var unavailable *CandleSampleUnavailableError
	assert.ErrorAs(t, err, &unavailable)
}

func TestGetPriceWithTolerance_UnknownPair(t *testing.T) {
	u := monthlyUniverse(t)
	_, _, err := u.GetPriceWithTolerance(42, time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), time.Hour)
	assert.ErrorIs(t, err, ErrPairNotFound)
}

func TestGetSinglePairData_ExcludesCurrentByDefault(t *testing.T) {
	u := monthlyUniverse(t)

	// a bar stamped at the query instant is not yet knowable
	rows, err := u.GetSinglePairData(time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 100.50, rows[len(rows)-1].Close)
}

func TestGetSinglePairData_AllowCurrent(t *testing.T) {
	u := monthlyUniverse(t)

	rows, err := u.GetSinglePairData(time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC), true)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, 101.80, rows[len(rows)-1].Close)

	rows, err = u.GetSinglePairData(time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 101.10, rows[len(rows)-1].Close)
}

func TestGetSinglePairData_MultiPairIsAmbiguous(t *testing.T) {
	ts := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	u, err := NewGroupedCandleUniverse([]domain.Candle{
		domain.GenerateSyntheticCandle(1, ts, 100),
		domain.GenerateSyntheticCandle(2, ts, 200),
	})
	require.NoError(t, err)

	_, err = u.GetSinglePairData(ts, false)
	assert.ErrorIs(t, err, ErrAmbiguousPair)
}

func TestGetSinglePairData_BeforeAllRows(t *testing.T) {
	u := monthlyUniverse(t)

	rows, err := u.GetSinglePairData(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
