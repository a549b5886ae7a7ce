// Package events публикует события о заказах в RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-management/internal/model"
)

// EventOrderPlaced: тип события об оформленном заказе.
const EventOrderPlaced = "order.placed"

const publishTimeout = 5 * time.Second

// OrderPlaced: тело сообщения об оформленном заказе.
type OrderPlaced struct {
	Event         string          `json:"event"`
	OrderID       string          `json:"orderId"`
	CustomerID    string          `json:"customerId"`
	Total         decimal.Decimal `json:"total"`
	PointsEarned  int64           `json:"pointsEarned"`
	PaymentMethod string          `json:"paymentMethod"`
	Items         []OrderLine     `json:"items"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// OrderLine: позиция заказа в сообщении.
type OrderLine struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// NewOrderPlaced строит сообщение по заказу и его позициям.
func NewOrderPlaced(order model.Order, items []model.OrderItem) OrderPlaced {
	msg := OrderPlaced{
		Event:         EventOrderPlaced,
		OrderID:       order.ID,
		CustomerID:    order.CustomerID,
		Total:         decimal.New(order.TotalCents, -2),
		PointsEarned:  order.PointsEarned,
		PaymentMethod: order.PaymentMethod,
		Items:         make([]OrderLine, 0, len(items)),
		CreatedAt:     order.CreatedAt,
	}
	for _, it := range items {
		msg.Items = append(msg.Items, OrderLine{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: decimal.New(it.UnitPriceCents, -2),
			Subtotal:  decimal.New(it.SubtotalCents, -2),
		})
	}
	return msg
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher публикует события в очередь по умолчанию (exchange "").
type Publisher struct {
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     channel
	queue  string
	logger *zap.Logger
}

// NewPublisher подключается к брокеру и объявляет долговечную очередь.
func NewPublisher(url, queue string, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	p := newPublisher(ch, queue, logger)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, queue string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{ch: ch, queue: queue, logger: logger}
}

// PublishOrderPlaced отправляет событие об оформленном заказе.
func (p *Publisher) PublishOrderPlaced(ctx context.Context, order model.Order, items []model.OrderItem) error {
	body, err := json.Marshal(NewOrderPlaced(order, items))
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	// amqp.Channel не допускает параллельную публикацию.
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    order.ID,
			Type:         EventOrderPlaced,
			Timestamp:    time.Now(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("publish order %s: %w", order.ID, err)
	}

	p.logger.Debug("order event published", zap.String("orderID", order.ID), zap.String("queue", p.queue))
	return nil
}

// Close закрывает канал и соединение.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			firstErr = err
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
