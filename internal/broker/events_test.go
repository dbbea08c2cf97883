package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Ishanth288/victure-sub004/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleMessageRoutesLowStock(t *testing.T) {
	handler := NewEventHandler()

	var received *models.LowStockEvent
	handler.OnLowStock(func(ctx context.Context, event *models.LowStockEvent) error {
		received = event
		return nil
	})

	event := models.LowStockEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypeLowStock,
			Timestamp: time.Now(),
		},
		InventoryItemID: 42,
		QuantityOnHand:  3,
		ReorderPoint:    10,
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	err = handler.HandleMessage(context.Background(), kafka.Message{Value: payload})
	require.NoError(t, err)
	require.NotNil(t, received)
	assert.Equal(t, int64(42), received.InventoryItemID)
	assert.Equal(t, 3, received.QuantityOnHand)
}

func TestHandleMessageIgnoresOtherEventTypes(t *testing.T) {
	handler := NewEventHandler()
	handler.OnLowStock(func(ctx context.Context, event *models.LowStockEvent) error {
		t.Fatal("low stock handler should not fire")
		return nil
	})

	payload, err := json.Marshal(models.BaseEvent{
		EventID:   "evt-2",
		EventType: models.EventTypeBillCreated,
	})
	require.NoError(t, err)

	assert.NoError(t, handler.HandleMessage(context.Background(), kafka.Message{Value: payload}))
}

func TestHandleMessageRejectsMalformedPayload(t *testing.T) {
	handler := NewEventHandler()
	err := handler.HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)
}
