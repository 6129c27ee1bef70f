// Package event publishes delivery state transitions over redis pub/sub,
// one channel per recipient.
package event

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/wjayesh/mahilo/core"
)

var tracer = otel.Tracer("event")

type publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) core.EventPublisher {
	return &publisher{rdb}
}

func ChannelFor(recipient string) string {
	return "mahilo:events:" + recipient
}

func (p *publisher) Publish(ctx context.Context, event core.Event) error {
	ctx, span := tracer.Start(ctx, "Event.Publisher.Publish")
	defer span.End()

	blob, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		return err
	}

	err = p.rdb.Publish(ctx, ChannelFor(event.Recipient), blob).Err()
	if err != nil {
		span.RecordError(err)
		return err
	}

	return nil
}
