package domain

import (
	"errors"
	"time"
)

var ErrInvalidTimeframe = errors.New("timeframe duration must be positive")

// Timeframe describes one aggregation bucket width: a duration plus an
// optional sub-bucket offset. Stateless and immutable; used purely as a
// parameter to bucketing.
type Timeframe struct {
	Duration time.Duration `json:"duration" yaml:"duration"`
	Offset   time.Duration `json:"offset,omitempty" yaml:"offset"`
}

func NewTimeframe(duration, offset time.Duration) (Timeframe, error) {
	if duration <= 0 {
		return Timeframe{}, ErrInvalidTimeframe
	}
	return Timeframe{Duration: duration, Offset: offset}, nil
}

// BucketStart returns the start of the bucket the instant falls into:
// floor((instant - offset) / duration) * duration + offset.
func (tf Timeframe) BucketStart(instant time.Time) time.Time {
	shifted := instant.UnixNano() - int64(tf.Offset)
	d := int64(tf.Duration)

	q := shifted / d
	if shifted < 0 && shifted%d != 0 {
		q-- // floor, not truncate, for pre-epoch instants
	}

	return time.Unix(0, q*d+int64(tf.Offset)).UTC()
}
