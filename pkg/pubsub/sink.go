package pubsub

import (
	"context"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/sonaskin/storefront-backend/pkg/outbox"
	"github.com/sonaskin/storefront-backend/pkg/outbox/registry"
)

const SinkName = registry.SinkPubSub

type publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) publishResult
	ResumePublish(orderingKey string)
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

// Sink publishes the stored envelope as the message body with routing attributes.
type Sink struct {
	pub     publisher
	ordered bool
}

func NewSink(p *pubsub.Publisher) (*Sink, error) {
	if p == nil {
		return nil, errors.New("pubsub sink: nil publisher")
	}
	return &Sink{pub: gcpPublisher{p}, ordered: p.EnableMessageOrdering}, nil
}

func (s *Sink) Name() string { return SinkName }

// Deliver blocks until the server acks. With ordering on, a failed key is
// resumed so the next attempt is not rejected outright.
func (s *Sink) Deliver(ctx context.Context, d outbox.Delivery) error {
	msg := &pubsub.Message{
		Data: d.Raw,
		Attributes: map[string]string{
			"event_id":       d.EventID.String(),
			"event_type":     string(d.EventType),
			"aggregate_type": string(d.AggregateType),
			"aggregate_id":   d.AggregateID.String(),
			"occurred_at":    d.Envelope.OccurredAt.UTC().Format(time.RFC3339Nano),
		},
	}
	if s.ordered {
		msg.OrderingKey = d.AggregateID.String()
	}

	_, err := s.pub.Publish(ctx, msg).Get(ctx)
	if err == nil {
		return nil
	}
	if msg.OrderingKey != "" {
		s.pub.ResumePublish(msg.OrderingKey)
	}
	switch status.Code(err) {
	case codes.NotFound, codes.PermissionDenied, codes.InvalidArgument:
		return registry.NewNonRetryableError(fmt.Errorf("publish %s: %w", d.EventID, err))
	}
	return err
}

type gcpPublisher struct {
	*pubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *pubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}
