package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"restaurant-service/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultNotificationExchange is the fanout exchange dashboards bind to
const DefaultNotificationExchange = "notifications_fanout"

// Channel is the subset of an AMQP channel the publisher uses
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// NotificationPublisher fans stock alerts out over RabbitMQ on one long-lived channel.
// The exchange is declared when a channel is opened; a channel that fails a publish is
// dropped and reopened on the next call.
type NotificationPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	open     func() (Channel, error)
	ch       Channel
	exchange string
}

// NotificationMessage is the fanout payload
type NotificationMessage struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	Kind            string    `json:"kind"`
	Title           string    `json:"title"`
	Message         string    `json:"message"`
	InventoryItemID string    `json:"inventory_item_id"`
	Timestamp       time.Time `json:"timestamp"`
}

// DialNotificationPublisher connects to RabbitMQ and declares the exchange
func DialNotificationPublisher(url, exchange string) (*NotificationPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	p := newNotificationPublisher(func() (Channel, error) {
		return conn.Channel()
	}, exchange)
	p.conn = conn

	p.mu.Lock()
	_, err = p.channelLocked()
	p.mu.Unlock()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return p, nil
}

func newNotificationPublisher(open func() (Channel, error), exchange string) *NotificationPublisher {
	if exchange == "" {
		exchange = DefaultNotificationExchange
	}
	return &NotificationPublisher{open: open, exchange: exchange}
}

func (p *NotificationPublisher) channelLocked() (Channel, error) {
	if p.ch != nil {
		return p.ch, nil
	}

	ch, err := p.open()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	p.ch = ch
	return ch, nil
}

// PublishNotification publishes a notification to the fanout exchange
func (p *NotificationPublisher) PublishNotification(ctx context.Context, n *models.Notification) error {
	body, err := json.Marshal(NotificationMessage{
		ID:              n.ID,
		Type:            string(n.Type),
		Kind:            string(n.Kind),
		Title:           n.Title,
		Message:         n.Message,
		InventoryItemID: n.InventoryItemID,
		Timestamp:       n.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channelLocked()
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, p.exchange, "", false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    n.ID,
		Timestamp:    n.CreatedAt,
		Body:         body,
	})
	if err != nil {
		ch.Close()
		p.ch = nil
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

// Close closes the channel and the RabbitMQ connection
func (p *NotificationPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn.Close()
	}
	return nil
}
