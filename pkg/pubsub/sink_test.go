package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/sonaskin/storefront-backend/pkg/enums"
	"github.com/sonaskin/storefront-backend/pkg/outbox"
	"github.com/sonaskin/storefront-backend/pkg/outbox/registry"
)

type recordingPublisher struct {
	msgs    []*gcppubsub.Message
	err     error
	resumed []string
}

func (p *recordingPublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	p.msgs = append(p.msgs, msg)
	return ackResult{err: p.err}
}

func (p *recordingPublisher) ResumePublish(key string) { p.resumed = append(p.resumed, key) }

type ackResult struct{ err error }

func (r ackResult) Get(context.Context) (string, error) { return "server-id", r.err }

func orderDelivery() outbox.Delivery {
	return outbox.Delivery{
		EventID:       uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Envelope:      outbox.PayloadEnvelope{OccurredAt: time.Date(2025, 3, 1, 8, 2, 3, 0, time.FixedZone("ICT", 7*3600))},
		Raw:           json.RawMessage(`{"version":1}`),
	}
}

func TestSinkPublishesEnvelopeWithAttributes(t *testing.T) {
	pub := &recordingPublisher{}
	sink := &Sink{pub: pub, ordered: true}
	d := orderDelivery()

	require.NoError(t, sink.Deliver(context.Background(), d))
	require.Len(t, pub.msgs, 1)
	msg := pub.msgs[0]
	assert.JSONEq(t, `{"version":1}`, string(msg.Data))
	assert.Equal(t, "order_created", msg.Attributes["event_type"])
	assert.Equal(t, d.EventID.String(), msg.Attributes["event_id"])
	assert.Equal(t, "2025-03-01T01:02:03Z", msg.Attributes["occurred_at"])
	assert.Equal(t, d.AggregateID.String(), msg.OrderingKey)
	assert.Equal(t, "pubsub", sink.Name())
}

func TestSinkUnorderedLeavesKeyEmpty(t *testing.T) {
	pub := &recordingPublisher{}
	require.NoError(t, (&Sink{pub: pub}).Deliver(context.Background(), orderDelivery()))
	assert.Empty(t, pub.msgs[0].OrderingKey)
}

func TestSinkResumesKeyAfterFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("unavailable")}
	d := orderDelivery()
	err := (&Sink{pub: pub, ordered: true}).Deliver(context.Background(), d)
	assert.EqualError(t, err, "unavailable")
	assert.False(t, registry.IsNonRetryable(err))
	assert.Equal(t, []string{d.AggregateID.String()}, pub.resumed)
}

func TestSinkMissingTopicIsPermanent(t *testing.T) {
	pub := &recordingPublisher{err: status.Error(codes.NotFound, "topic gone")}
	err := (&Sink{pub: pub}).Deliver(context.Background(), orderDelivery())
	assert.True(t, registry.IsNonRetryable(err))
	assert.Empty(t, pub.resumed)
}

func TestNewSinkRequiresPublisher(t *testing.T) {
	_, err := NewSink(nil)
	assert.Error(t, err)
}

func TestTopicResourceName(t *testing.T) {
	assert.Equal(t, "projects/p1/topics/orders", topicResourceName("p1", " orders "))
	assert.Equal(t, "projects/x/topics/y", topicResourceName("p1", "projects/x/topics/y"))
	assert.Empty(t, topicResourceName("", "orders"))
	assert.Empty(t, topicResourceName("p1", ""))
}
