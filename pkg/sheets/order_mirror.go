package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sonaskin/storefront-backend/pkg/outbox"
	"github.com/sonaskin/storefront-backend/pkg/outbox/payloads"
	"github.com/sonaskin/storefront-backend/pkg/outbox/registry"
)

const mirrorTimestampLayout = "02/01/2006 15:04"

type appender interface {
	Append(ctx context.Context, rng string, rows [][]any) error
}

// OrderMirror appends one spreadsheet row per created order.
type OrderMirror struct {
	client appender
	rng    string
	loc    *time.Location
}

func NewOrderMirror(client appender, rng string, loc *time.Location) (*OrderMirror, error) {
	if client == nil {
		return nil, errors.New("sheets client is required")
	}
	if strings.TrimSpace(rng) == "" {
		return nil, errors.New("sheets range is required")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &OrderMirror{client: client, rng: rng, loc: loc}, nil
}

func (m *OrderMirror) Name() string { return registry.SinkSheets }

func (m *OrderMirror) Deliver(ctx context.Context, d outbox.Delivery) error {
	event, ok := d.Payload.(*payloads.OrderCreatedEvent)
	if !ok {
		return registry.NewNonRetryableError(fmt.Errorf("sheets mirror cannot handle %s", d.EventType))
	}
	err := m.client.Append(ctx, m.rng, [][]any{m.row(event)})
	if err != nil && IsPermanent(err) {
		return registry.NewNonRetryableError(err)
	}
	return err
}

func (m *OrderMirror) row(e *payloads.OrderCreatedEvent) []any {
	return []any{
		e.OrderNumber,
		time.Unix(e.CreatedAt, 0).In(m.loc).Format(mirrorTimestampLayout),
		e.CustomerName,
		// leading apostrophe keeps the zero in Vietnamese phone numbers
		"'" + e.CustomerPhone,
		e.CustomerEmail,
		e.Address,
		itemsSummary(e.Items),
		e.Total,
		string(e.PaymentMethod),
		string(e.Status),
		e.Notes,
		e.OrderID.String(),
	}
}

func itemsSummary(items []payloads.OrderLine) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s x%d", item.Name, item.Quantity))
	}
	return strings.Join(parts, "; ")
}
