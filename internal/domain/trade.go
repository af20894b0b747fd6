package domain

import "time"

// Trade is one raw trade as delivered by the upstream ingestion
// collaborator. Amount is signed: positive = buy, negative = sell.
type Trade struct {
	PairID       PairID    `json:"pair_id"`
	Timestamp    time.Time `json:"timestamp"`
	Price        float64   `json:"price"`
	Amount       float64   `json:"amount"`
	ExchangeRate float64   `json:"exchange_rate,omitempty"`
	BlockNumber  uint64    `json:"block_number,omitempty"`
}

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Side derives the trade direction from the sign of Amount.
func (t *Trade) Side() Side {
	if t.Amount < 0 {
		return SideSell
	}
	return SideBuy
}

// TradeColumns is the canonical column order for a trade table.
var TradeColumns = []string{
	"pair_id",
	"timestamp",
	"price",
	"amount",
	"exchange_rate",
	"block_number",
}

// TradeDelta describes one update cycle from the trade source.
//
// StartTS is the earliest instant whose downstream candles may have
// changed: every already-emitted candle with timestamp >= StartTS is
// stale and must be recomputed from Trades. StartTS may move backward
// across cycles only to express a correction (chain reorg, late trade).
// Cycle values observed by a single CandleFeed must be non-decreasing.
type TradeDelta struct {
	Cycle   int64     `json:"cycle"`
	StartTS time.Time `json:"start_ts"`
	Trades  []Trade   `json:"trades"`
}
