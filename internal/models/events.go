package models

import "time"

// Event types
const (
	EventTypeBillCreated     = "BILL_CREATED"
	EventTypeBillCompensated = "BILL_COMPENSATED"
	EventTypeReturnProcessed = "RETURN_PROCESSED"
	EventTypeReturnReversed  = "RETURN_REVERSED"
	EventTypeItemDeleted     = "ITEM_DELETED"
	EventTypeLowStock        = "LOW_STOCK"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// BillLineData represents bill line data in events
type BillLineData struct {
	InventoryItemID int64 `json:"inventory_item_id"`
	Quantity        int   `json:"quantity"`
	UnitPrice       int64 `json:"unit_price"`
}

// BillCreatedEvent published when a bill is persisted
type BillCreatedEvent struct {
	BaseEvent
	BillID      int64          `json:"bill_id"`
	BillNumber  string         `json:"bill_number"`
	ActorID     string         `json:"actor_id"`
	TotalAmount int64          `json:"total_amount"`
	Lines       []BillLineData `json:"lines"`
}

// BillCompensatedEvent published when a failed bill write forced a
// compensating restock of reserved lines
type BillCompensatedEvent struct {
	BaseEvent
	ReservationToken string         `json:"reservation_token"`
	Lines            []BillLineData `json:"lines"`
	Reason           string         `json:"reason"`
}

// ReturnProcessedEvent published when a return is recorded
type ReturnProcessedEvent struct {
	BaseEvent
	ReturnID     int64  `json:"return_id"`
	BillItemID   int64  `json:"bill_item_id"`
	Quantity     int    `json:"quantity"`
	RefundAmount int64  `json:"refund_amount"`
	Disposition  string `json:"disposition"`
	ActorID      string `json:"actor_id"`
}

// ReturnReversedEvent published when a logged return is reversed within its
// reversal window
type ReturnReversedEvent struct {
	BaseEvent
	ReturnID   int64  `json:"return_id"`
	LogEntryID int64  `json:"log_entry_id"`
	ActorID    string `json:"actor_id"`
}

// ItemDeletedEvent published when an unreferenced inventory item is deleted
type ItemDeletedEvent struct {
	BaseEvent
	InventoryItemID int64  `json:"inventory_item_id"`
	LogEntryID      int64  `json:"log_entry_id"`
	ActorID         string `json:"actor_id"`
}

// LowStockEvent published when a reservation drops an item to or below its
// reorder point
type LowStockEvent struct {
	BaseEvent
	InventoryItemID int64 `json:"inventory_item_id"`
	QuantityOnHand  int   `json:"quantity_on_hand"`
	ReorderPoint    int   `json:"reorder_point"`
}
