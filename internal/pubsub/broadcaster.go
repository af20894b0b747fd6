package pubsub

import "context"

// Broadcaster fans recomputed-candle patches out to subscribers.
type Broadcaster interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Health(ctx context.Context) error
}
