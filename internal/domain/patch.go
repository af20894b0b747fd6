package domain

import "time"

// CandlePatch is the fan-out unit published after a delta: the candles
// recomputed for one pair in one cycle. Subscribers replace any bars
// they hold at the same timestamps.
type CandlePatch struct {
	Topic       string    `json:"topic"` // example: "pair:42"
	PairID      PairID    `json:"pair_id"`
	Cycle       int64     `json:"cycle"`
	GeneratedAt time.Time `json:"ts"`
	Candles     []Candle  `json:"candles"`
}
