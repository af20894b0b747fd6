package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimeframe_RejectsNonPositiveDuration(t *testing.T) {
	_, err := NewTimeframe(0, 0)
	assert.ErrorIs(t, err, ErrInvalidTimeframe)

	_, err = NewTimeframe(-time.Minute, 0)
	assert.ErrorIs(t, err, ErrInvalidTimeframe)
}

func TestBucketStart_MinuteAlignment(t *testing.T) {
	tf, err := NewTimeframe(time.Minute, 0)
	require.NoError(t, err)

	instant := time.Date(2020, 1, 1, 10, 30, 45, 123, time.UTC)
	want := time.Date(2020, 1, 1, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, want, tf.BucketStart(instant))
}

func TestBucketStart_ExactBoundaryIsItsOwnBucket(t *testing.T) {
	tf, err := NewTimeframe(time.Hour, 0)
	require.NoError(t, err)

	boundary := time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, boundary, tf.BucketStart(boundary))
}

func TestBucketStart_WithOffset(t *testing.T) {
	tf, err := NewTimeframe(time.Minute, 30*time.Second)
	require.NoError(t, err)

	// buckets run :30 to :30, so 10:00:29 belongs to the 09:59:30 bucket
	instant := time.Date(2020, 1, 1, 10, 0, 29, 0, time.UTC)
	want := time.Date(2020, 1, 1, 9, 59, 30, 0, time.UTC)
	assert.Equal(t, want, tf.BucketStart(instant))

	instant = time.Date(2020, 1, 1, 10, 0, 31, 0, time.UTC)
	want = time.Date(2020, 1, 1, 10, 0, 30, 0, time.UTC)
	assert.Equal(t, want, tf.BucketStart(instant))
}

func TestBucketStart_PreEpochFloors(t *testing.T) {
	tf, err := NewTimeframe(time.Minute, 0)
	require.NoError(t, err)

	instant := time.Date(1969, 12, 31, 23, 59, 30, 0, time.UTC)
	want := time.Date(1969, 12, 31, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, want, tf.BucketStart(instant))
}

func TestBucketStart_FourHourBuckets(t *testing.T) {
	tf, err := NewTimeframe(4*time.Hour, 0)
	require.NoError(t, err)

	instant := time.Date(2021, 6, 15, 7, 59, 59, 0, time.UTC)
	want := time.Date(2021, 6, 15, 4, 0, 0, 0, time.UTC)
	assert.Equal(t, want, tf.BucketStart(instant))
}
