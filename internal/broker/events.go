package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Ishanth288/victure-sub004/internal/models"
	"github.com/Ishanth288/victure-sub004/internal/util"

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

// PublishBillCreated publishes BillCreated event
func (ep *EventPublisher) PublishBillCreated(ctx context.Context, event *models.BillCreatedEvent) error {
	key := fmt.Sprintf("bill-%d", event.BillID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishBillCompensated publishes BillCompensated event
func (ep *EventPublisher) PublishBillCompensated(ctx context.Context, event *models.BillCompensatedEvent) error {
	key := fmt.Sprintf("reservation-%s", event.ReservationToken)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishReturnProcessed publishes ReturnProcessed event
func (ep *EventPublisher) PublishReturnProcessed(ctx context.Context, event *models.ReturnProcessedEvent) error {
	key := fmt.Sprintf("return-%d", event.ReturnID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishReturnReversed publishes ReturnReversed event
func (ep *EventPublisher) PublishReturnReversed(ctx context.Context, event *models.ReturnReversedEvent) error {
	key := fmt.Sprintf("return-%d", event.ReturnID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishItemDeleted publishes ItemDeleted event
func (ep *EventPublisher) PublishItemDeleted(ctx context.Context, event *models.ItemDeletedEvent) error {
	key := fmt.Sprintf("item-%d", event.InventoryItemID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishLowStock publishes LowStock event
func (ep *EventPublisher) PublishLowStock(ctx context.Context, event *models.LowStockEvent) error {
	key := fmt.Sprintf("item-%d", event.InventoryItemID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onLowStock func(context.Context, *models.LowStockEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnLowStock registers a handler for LowStock events
func (eh *EventHandler) OnLowStock(handler func(context.Context, *models.LowStockEvent) error) {
	eh.onLowStock = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	util.GetLogger().Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeLowStock:
		if eh.onLowStock != nil {
			var event models.LowStockEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal LowStock event: %w", err)
			}
			return eh.onLowStock(ctx, &event)
		}

	default:
		// Other event types are consumed by downstream services.
	}

	return nil
}
