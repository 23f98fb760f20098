package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"restaurant-service/internal/models"
	"restaurant-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func orderKey(orderID string) string {
	return fmt.Sprintf("order-%s", orderID)
}

// PublishOrderCreated publishes OrderCreated event
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderConfirmRequested publishes OrderConfirmRequested event
func (ep *EventPublisher) PublishOrderConfirmRequested(ctx context.Context, event *models.OrderConfirmRequestedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderConfirmed publishes OrderConfirmed event
func (ep *EventPublisher) PublishOrderConfirmed(ctx context.Context, event *models.OrderConfirmedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderStatusChanged publishes OrderStatusChanged event
func (ep *EventPublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishStockAlert publishes StockAlert event keyed by inventory item
func (ep *EventPublisher) PublishStockAlert(ctx context.Context, event *models.StockAlertEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("inventory-%s", event.InventoryItemID), event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onConfirmRequested func(context.Context, *models.OrderConfirmRequestedEvent) error
	logger             *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnConfirmRequested registers a handler for OrderConfirmRequested events
func (eh *EventHandler) OnConfirmRequested(handler func(context.Context, *models.OrderConfirmRequestedEvent) error) {
	eh.onConfirmRequested = handler
}

// HandleMessage routes messages to appropriate handlers. Undecodable messages are logged and skipped.
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	if t := headerValue(msg, HeaderEventType); t != "" && t != models.EventTypeOrderConfirmRequested {
		return nil
	}

	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		eh.logger.Error("Skipping undecodable message", zap.String("key", string(msg.Key)), zap.Error(err))
		return nil
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeOrderConfirmRequested:
		if eh.onConfirmRequested != nil {
			var event models.OrderConfirmRequestedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				eh.logger.Error("Skipping malformed OrderConfirmRequested event", zap.Error(err))
				return nil
			}
			return eh.onConfirmRequested(ctx, &event)
		}
	}

	return nil
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
