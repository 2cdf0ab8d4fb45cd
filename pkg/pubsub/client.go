package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/sonaskin/storefront-backend/pkg/config"
	"github.com/sonaskin/storefront-backend/pkg/gcp"
	"github.com/sonaskin/storefront-backend/pkg/logger"
)

// Client owns the Pub/Sub connection used by the outbox relay.
type Client struct {
	conn    *pubsub.Client
	orders  string
	ordered bool
}

// NewClient connects and refuses to start when the orders topic is missing;
// topics are provisioned outside the service.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	orders := topicResourceName(gcpCfg.ProjectID, cfg.OrdersTopic)
	if orders == "" {
		return nil, errors.New("pubsub: STOREFRONT_GCP_PROJECT_ID and STOREFRONT_PUBSUB_ORDERS_TOPIC are required")
	}
	conn, err := pubsub.NewClient(ctx, strings.TrimSpace(gcpCfg.ProjectID), gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("pubsub: connect: %w", err)
	}
	c := &Client{conn: conn, orders: orders, ordered: cfg.Ordered}
	if err := c.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", orders), "pubsub ready")
	}
	return c, nil
}

// Ping looks the orders topic up through the admin API.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.conn == nil {
		return errors.New("pubsub: no connection")
	}
	_, err := c.conn.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.orders})
	switch {
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("pubsub: topic %s does not exist", c.orders)
	case err != nil:
		return fmt.Errorf("pubsub: get topic %s: %w", c.orders, err)
	}
	return nil
}

// OrdersPublisher publishes order lifecycle events, ordered by key when configured.
func (c *Client) OrdersPublisher() *pubsub.Publisher {
	if c == nil || c.conn == nil {
		return nil
	}
	p := c.conn.Publisher(c.orders)
	p.EnableMessageOrdering = c.ordered
	return p
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// topicResourceName accepts a short topic id or a full resource name.
func topicResourceName(projectID, topic string) string {
	topic = strings.TrimSpace(topic)
	if strings.HasPrefix(topic, "projects/") && strings.Contains(topic, "/topics/") {
		return topic
	}
	projectID = strings.TrimSpace(projectID)
	if topic == "" || projectID == "" {
		return ""
	}
	return "projects/" + projectID + "/topics/" + topic
}
