package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/marketplace-management/internal/model"
)

type stubChannel struct {
	exchange string
	key      string
	msgs     []amqp.Publishing
	err      error
	closed   bool
}

func (c *stubChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.exchange = exchange
	c.key = key
	c.msgs = append(c.msgs, msg)
	return c.err
}

func (c *stubChannel) Close() error {
	c.closed = true
	return nil
}

func testOrder() (model.Order, []model.OrderItem) {
	order := model.Order{
		ID:            "7f1c2a9e-0000-4000-8000-000000000001",
		CustomerID:    "user-1",
		PaymentMethod: "pix",
		TotalCents:    6590,
		PointsEarned:  100,
		CreatedAt:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	items := []model.OrderItem{{
		OrderID:        order.ID,
		ProductID:      "prod-1",
		Quantity:       2,
		UnitPriceCents: 2500,
		SubtotalCents:  5000,
	}}
	return order, items
}

func TestPublishOrderPlaced(t *testing.T) {
	ch := &stubChannel{}
	p := newPublisher(ch, "orders.placed", nil)

	order, items := testOrder()
	require.NoError(t, p.PublishOrderPlaced(context.Background(), order, items))

	require.Len(t, ch.msgs, 1)
	assert.Equal(t, "", ch.exchange)
	assert.Equal(t, "orders.placed", ch.key)

	msg := ch.msgs[0]
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, order.ID, msg.MessageId)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Body, &body))
	assert.Equal(t, EventOrderPlaced, body["event"])
	assert.Equal(t, "65.9", body["total"])
	assert.Equal(t, float64(100), body["pointsEarned"])

	lines := body["items"].([]any)
	require.Len(t, lines, 1)
	assert.Equal(t, "25", lines[0].(map[string]any)["unitPrice"])

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestPublishOrderPlaced_Error(t *testing.T) {
	ch := &stubChannel{err: errors.New("channel closed")}
	p := newPublisher(ch, "orders.placed", nil)

	order, items := testOrder()
	err := p.PublishOrderPlaced(context.Background(), order, items)
	assert.ErrorIs(t, err, ch.err)
}
