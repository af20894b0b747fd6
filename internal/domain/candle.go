package domain

import "time"

// PairID identifies one tradable pair. Opaque integer, assigned upstream.
type PairID int64

// Candle is one OHLCV observation for one pair at one bucket boundary.
// Timestamp is the bucket start, UTC, aligned to the feed timeframe.
// Invariant: Low <= Open,Close <= High.
type Candle struct {
	PairID    PairID    `json:"pair_id"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`

	// Extension columns for chain-native feeds
	ExchangeRate float64 `json:"exchange_rate,omitempty"`
	Buys         int64   `json:"buys,omitempty"`
	Sells        int64   `json:"sells,omitempty"`
	StartBlock   uint64  `json:"start_block,omitempty"`
	EndBlock     uint64  `json:"end_block,omitempty"`
}

// CandleColumns is the canonical column order for any tabular
// representation of candles (CSV export, ClickHouse insert, API payload).
var CandleColumns = []string{
	"pair_id",
	"timestamp",
	"open",
	"high",
	"low",
	"close",
	"volume",
	"exchange_rate",
	"buys",
	"sells",
	"start_block",
	"end_block",
}

// GenerateSyntheticCandle builds a flat candle where every price field is
// the given price. Test data helper.
func GenerateSyntheticCandle(pair PairID, ts time.Time, price float64) Candle {
	return Candle{
		PairID:    pair,
		Timestamp: ts,
		Open:      price,
		High:      price,
		Low:       price,
		Close:     price,
		Volume:    price * 10,
		Buys:      1,
		Sells:     1,
	}
}
