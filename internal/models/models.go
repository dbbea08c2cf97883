package models

import "time"

// InventoryItem represents a stocked pharmacy product. Quantity is mutated
// only through the inventory ledger.
type InventoryItem struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Quantity     int       `db:"quantity" json:"quantity"`
	UnitCost     int64     `db:"unit_cost" json:"unit_cost"`
	SellingPrice int64     `db:"selling_price" json:"selling_price"`
	ReorderPoint int       `db:"reorder_point" json:"reorder_point"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Bill represents a completed sale. All monetary amounts are in cents.
// Immutable once completed except for return annotations on its items.
type Bill struct {
	ID             int64     `db:"id" json:"id"`
	BillNumber     string    `db:"bill_number" json:"bill_number"`
	PrescriptionID *int64    `db:"prescription_id" json:"prescription_id,omitempty"`
	Subtotal       int64     `db:"subtotal" json:"subtotal"`
	GSTAmount      int64     `db:"gst_amount" json:"gst_amount"`
	GSTPercentage  float64   `db:"gst_percentage" json:"gst_percentage"`
	DiscountAmount int64     `db:"discount_amount" json:"discount_amount"`
	TotalAmount    int64     `db:"total_amount" json:"total_amount"`
	Status         string    `db:"status" json:"status"`
	PaymentMode    string    `db:"payment_mode" json:"payment_mode"`
	ActorID        string    `db:"actor_id" json:"actor_id"`
	IdempotencyKey string    `db:"idempotency_key" json:"idempotency_key,omitempty"`
	BillDate       time.Time `db:"bill_date" json:"bill_date"`
}

// BillItem is a single sale line. ReturnQuantity only ever grows.
type BillItem struct {
	ID              int64 `db:"id" json:"id"`
	BillID          int64 `db:"bill_id" json:"bill_id"`
	InventoryItemID int64 `db:"inventory_item_id" json:"inventory_item_id"`
	Quantity        int   `db:"quantity" json:"quantity"`
	UnitPrice       int64 `db:"unit_price" json:"unit_price"`
	TotalPrice      int64 `db:"total_price" json:"total_price"`
	ReturnQuantity  int   `db:"return_quantity" json:"return_quantity"`
}

// Return records a processed return against a bill item. Refunds are
// quantity x unit price; GST and discount are not proportionally adjusted.
type Return struct {
	ID             int64     `db:"id" json:"id"`
	BillItemID     int64     `db:"bill_item_id" json:"bill_item_id"`
	Quantity       int       `db:"quantity" json:"quantity"`
	Reason         string    `db:"reason" json:"reason"`
	RefundAmount   int64     `db:"refund_amount" json:"refund_amount"`
	Disposition    string    `db:"disposition" json:"disposition"`
	Reversed       bool      `db:"reversed" json:"reversed"`
	IdempotencyKey string    `db:"idempotency_key" json:"idempotency_key,omitempty"`
	ActorID        string    `db:"actor_id" json:"actor_id"`
	ReturnDate     time.Time `db:"return_date" json:"return_date"`
}

// DeletionLogEntry is one append-only audit record. Entries are never
// updated or deleted; a reversal is a new compensating entry.
type DeletionLogEntry struct {
	ID               int64      `db:"id" json:"id"`
	EntityType       string     `db:"entity_type" json:"entity_type"`
	EntityID         int64      `db:"entity_id" json:"entity_id"`
	EntitySnapshot   []byte     `db:"entity_snapshot" json:"entity_snapshot,omitempty"`
	DeletionType     string     `db:"deletion_type" json:"deletion_type"`
	IsReversible     bool       `db:"is_reversible" json:"is_reversible"`
	ReversalDeadline *time.Time `db:"reversal_deadline" json:"reversal_deadline,omitempty"`
	ActorID          string     `db:"actor_id" json:"actor_id"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

// ReorderSuggestion is recorded when a reservation drops an item to or
// below its reorder point.
type ReorderSuggestion struct {
	ID              int64     `db:"id" json:"id"`
	InventoryItemID int64     `db:"inventory_item_id" json:"inventory_item_id"`
	QuantityOnHand  int       `db:"quantity_on_hand" json:"quantity_on_hand"`
	ReorderPoint    int       `db:"reorder_point" json:"reorder_point"`
	SuggestedAt     time.Time `db:"suggested_at" json:"suggested_at"`
}

// StockLine is one requested decrement within a reservation.
type StockLine struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

// StockShortage describes one item that could not satisfy a reservation.
type StockShortage struct {
	ItemID    int64 `json:"item_id"`
	Available int   `json:"available"`
	Requested int   `json:"requested"`
}

// Bill statuses
const (
	BillStatusCompleted = "COMPLETED"
	BillStatusVoid      = "VOID"
)

// Return dispositions
const (
	DispositionRestocked = "RESTOCKED"
	DispositionDisposed  = "DISPOSED"
)

// Audited entity types
const (
	EntityTypeInventoryItem = "inventory_item"
	EntityTypeReturn        = "return"
)

// Deletion log entry types
const (
	DeletionTypeItemDelete     = "ITEM_DELETE"
	DeletionTypeReturn         = "RETURN"
	DeletionTypeReturnReversal = "RETURN_REVERSAL"
)

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
