// Package ingest subscribes to the upstream trade-delta stream and hands
// each delta to the feed service. The core never touches the transport:
// this is the boundary where the TradeDelta contract enters the process.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"gitlab.com/nevasik7/alerting/logger"

	"pricefeed/internal/domain"
)

// DeltaHandler is implemented by the feed service.
type DeltaHandler interface {
	ProcessDelta(ctx context.Context, delta domain.TradeDelta) error
}

type Consumer struct {
	log     logger.Logger
	nc      *nats.Conn
	subject string
	handler DeltaHandler

	sub *nats.Subscription
}

func NewConsumer(log logger.Logger, nc *nats.Conn, subject string, handler DeltaHandler) (*Consumer, error) {
	if nc == nil {
		return nil, errors.New("nats connection is required")
	}
	if subject == "" {
		return nil, errors.New("ingest subject is required")
	}
	if handler == nil {
		return nil, errors.New("delta handler is required")
	}
	return &Consumer{
		log:     log,
		nc:      nc,
		subject: subject,
		handler: handler,
	}, nil
}

// Start subscribes and processes deltas until Stop. Deltas arrive on one
// subscription, so the apply sequence is naturally serialized - the feed
// never sees interleaved writers.
func (c *Consumer) Start(ctx context.Context) error {
	sub, err := c.nc.Subscribe(c.subject, func(msg *nats.Msg) {
		var delta domain.TradeDelta
		if err := json.Unmarshal(msg.Data, &delta); err != nil {
			c.log.Errorf("Malformed trade delta on %s: %v", c.subject, err)
			return
		}

		if err := c.handler.ProcessDelta(ctx, delta); err != nil {
			c.log.Errorf("Failed to process delta cycle=%d: %v", delta.Cycle, err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", c.subject, err)
	}

	c.sub = sub
	c.log.Infof("Ingest consumer subscribed to %s", c.subject)
	return nil
}

func (c *Consumer) Stop() error {
	if c.sub == nil {
		return nil
	}
	return c.sub.Unsubscribe()
}
