package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Ishanth288/victure-sub004/internal/broker"
	"github.com/Ishanth288/victure-sub004/internal/models"
	"github.com/Ishanth288/victure-sub004/internal/store"
	"github.com/Ishanth288/victure-sub004/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BillingEngine turns a cart into a persisted bill with all-or-nothing
// stock reservation. A failed bill write after a successful reservation is
// always compensated by restocking every reserved line.
type BillingEngine struct {
	store               *store.Store
	ledger              *InventoryLedger
	eventPublisher      *broker.EventPublisher
	defaultGSTPercent   float64
	compensationRetries int
	logger              *zap.Logger
}

// NewBillingEngine creates a new billing engine
func NewBillingEngine(
	st *store.Store,
	ledger *InventoryLedger,
	eventPublisher *broker.EventPublisher,
	defaultGSTPercent float64,
	compensationRetries int,
) *BillingEngine {
	if compensationRetries < 1 {
		compensationRetries = 1
	}
	return &BillingEngine{
		store:               st,
		ledger:              ledger,
		eventPublisher:      eventPublisher,
		defaultGSTPercent:   defaultGSTPercent,
		compensationRetries: compensationRetries,
		logger:              util.GetLogger(),
	}
}

// CartLine is one requested sale line. A zero unit price falls back to the
// item's selling price.
type CartLine struct {
	ItemID    int64 `json:"item_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
	UnitPrice int64 `json:"unit_price"`
}

// CreateBillRequest represents a request to create a bill. Amounts in cents.
type CreateBillRequest struct {
	Cart           []CartLine `json:"cart" binding:"required,min=1"`
	PrescriptionID *int64     `json:"prescription_id,omitempty"`
	DiscountAmount int64      `json:"discount_amount"`
	GSTPercentage  float64    `json:"gst_percentage"`
	PaymentMode    string     `json:"payment_mode"`
	ActorID        string     `json:"actor_id"`
	IdempotencyKey string     `json:"idempotency_key,omitempty"`
}

// CreateBill reserves stock for the whole cart atomically, then persists the
// bill and its items in one write. Nothing is persisted when reservation
// fails; the reservation is compensated when persistence fails.
func (be *BillingEngine) CreateBill(ctx context.Context, req *CreateBillRequest) (*models.Bill, error) {
	ctx, span := util.StartSpan(ctx, "BillingEngine.CreateBill")
	defer span.End()

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	existing, err := be.store.GetBillByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, &models.PersistenceError{Op: "idempotency lookup", Err: err}
	}
	if existing != nil {
		be.logger.Info("Duplicate bill request detected",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Int64("bill_id", existing.ID))
		return existing, nil
	}

	if err := validateBillRequest(req); err != nil {
		util.BillsFailedTotal.WithLabelValues("invalid_request").Inc()
		return nil, err
	}
	if req.GSTPercentage == 0 {
		req.GSTPercentage = be.defaultGSTPercent
	}
	if req.PaymentMode == "" {
		req.PaymentMode = "CASH"
	}

	items, err := be.loadCartItems(ctx, req.Cart)
	if err != nil {
		util.BillsFailedTotal.WithLabelValues("invalid_items").Inc()
		return nil, err
	}

	billItems := make([]models.BillItem, 0, len(req.Cart))
	stockLines := make([]models.StockLine, 0, len(req.Cart))
	for _, line := range req.Cart {
		unitPrice := line.UnitPrice
		if unitPrice == 0 {
			unitPrice = items[line.ItemID].SellingPrice
		}
		billItems = append(billItems, models.BillItem{
			InventoryItemID: line.ItemID,
			Quantity:        line.Quantity,
			UnitPrice:       unitPrice,
			TotalPrice:      unitPrice * int64(line.Quantity),
		})
		stockLines = append(stockLines, models.StockLine{ItemID: line.ItemID, Quantity: line.Quantity})
	}

	subtotal, gstAmount, totalAmount := computeBillTotals(billItems, req.GSTPercentage, req.DiscountAmount)
	if totalAmount < 0 {
		util.BillsFailedTotal.WithLabelValues("invalid_request").Inc()
		return nil, &models.ValidationError{Field: "discount_amount", Reason: "exceeds subtotal plus GST"}
	}

	token, err := be.ledger.ReserveStock(ctx, stockLines)
	if err != nil {
		util.BillsFailedTotal.WithLabelValues("reservation_failed").Inc()
		return nil, err
	}

	bill := &models.Bill{
		BillNumber:     generateBillNumber(),
		PrescriptionID: req.PrescriptionID,
		Subtotal:       subtotal,
		GSTAmount:      gstAmount,
		GSTPercentage:  req.GSTPercentage,
		DiscountAmount: req.DiscountAmount,
		TotalAmount:    totalAmount,
		Status:         models.BillStatusCompleted,
		PaymentMode:    req.PaymentMode,
		ActorID:        req.ActorID,
		IdempotencyKey: req.IdempotencyKey,
	}

	if err := be.store.CreateBillTx(ctx, bill, billItems); err != nil {
		be.compensateReservation(token, stockLines, err.Error())

		if store.IsUniqueViolation(err) {
			if dup, lookupErr := be.store.GetBillByIdempotencyKey(ctx, req.IdempotencyKey); lookupErr == nil && dup != nil {
				be.logger.Info("Concurrent duplicate bill request, returning existing bill",
					zap.String("idempotency_key", req.IdempotencyKey),
					zap.Int64("bill_id", dup.ID))
				return dup, nil
			}
		}

		util.BillsFailedTotal.WithLabelValues("db_error").Inc()
		return nil, &models.PersistenceError{Op: "bill write", Err: err}
	}

	util.BillsCreatedTotal.Inc()
	be.logger.Info("Bill created",
		zap.Int64("bill_id", bill.ID),
		zap.String("bill_number", bill.BillNumber),
		zap.Int64("total_amount", bill.TotalAmount))

	lines := make([]models.BillLineData, 0, len(billItems))
	for _, item := range billItems {
		lines = append(lines, models.BillLineData{
			InventoryItemID: item.InventoryItemID,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
		})
	}
	event := &models.BillCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBillCreated,
			Timestamp: time.Now(),
		},
		BillID:      bill.ID,
		BillNumber:  bill.BillNumber,
		ActorID:     bill.ActorID,
		TotalAmount: bill.TotalAmount,
		Lines:       lines,
	}
	if pubErr := be.eventPublisher.PublishBillCreated(ctx, event); pubErr != nil {
		be.logger.Error("Failed to publish BillCreated event", zap.Error(pubErr))
	}

	return bill, nil
}

// compensateReservation restocks every reserved line after a failed bill
// write. Runs on a fresh context: compensation is mandatory even when the
// caller has gone away.
func (be *BillingEngine) compensateReservation(token string, lines []models.StockLine, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, line := range lines {
		var err error
		for attempt := 1; attempt <= be.compensationRetries; attempt++ {
			if err = be.ledger.Restock(ctx, line.ItemID, line.Quantity); err == nil {
				util.RestockCompensationsTotal.Inc()
				break
			}
			be.logger.Warn("Compensating restock failed, retrying",
				zap.String("reservation_token", token),
				zap.Int64("item_id", line.ItemID),
				zap.Int("attempt", attempt),
				zap.Error(err))
			if attempt < be.compensationRetries {
				if sleepErr := sleepCtx(ctx, backoffDelay(attempt)); sleepErr != nil {
					break
				}
			}
		}
		if err != nil {
			util.CompensationFailuresTotal.Inc()
			be.logger.Error("Compensating restock exhausted retries",
				zap.String("reservation_token", token),
				zap.Int64("item_id", line.ItemID),
				zap.Int("quantity", line.Quantity),
				zap.Error(err))
		}
	}

	eventLines := make([]models.BillLineData, 0, len(lines))
	for _, line := range lines {
		eventLines = append(eventLines, models.BillLineData{
			InventoryItemID: line.ItemID,
			Quantity:        line.Quantity,
		})
	}
	event := &models.BillCompensatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBillCompensated,
			Timestamp: time.Now(),
		},
		ReservationToken: token,
		Lines:            eventLines,
		Reason:           reason,
	}
	if pubErr := be.eventPublisher.PublishBillCompensated(ctx, event); pubErr != nil {
		be.logger.Error("Failed to publish BillCompensated event", zap.Error(pubErr))
	}
}

// GetBill retrieves a bill and its items
func (be *BillingEngine) GetBill(ctx context.Context, billID int64) (*models.Bill, []models.BillItem, error) {
	bill, err := be.store.GetBillByID(ctx, billID)
	if err != nil {
		return nil, nil, err
	}

	items, err := be.store.GetBillItemsByBillID(ctx, billID)
	if err != nil {
		return nil, nil, err
	}

	return bill, items, nil
}

// ListBillsByPrescription retrieves bills attached to a prescription
func (be *BillingEngine) ListBillsByPrescription(ctx context.Context, prescriptionID int64) ([]models.Bill, error) {
	return be.store.ListBillsByPrescription(ctx, prescriptionID)
}

func (be *BillingEngine) loadCartItems(ctx context.Context, cart []CartLine) (map[int64]*models.InventoryItem, error) {
	ids := make([]int64, len(cart))
	for i, line := range cart {
		ids[i] = line.ItemID
	}

	items, err := be.store.GetItemsByIDs(ctx, ids)
	if err != nil {
		return nil, &models.PersistenceError{Op: "item lookup", Err: err}
	}

	itemMap := make(map[int64]*models.InventoryItem, len(items))
	for i := range items {
		itemMap[items[i].ID] = &items[i]
	}
	for _, line := range cart {
		if _, ok := itemMap[line.ItemID]; !ok {
			return nil, &models.NotFoundError{Entity: "inventory item", ID: line.ItemID}
		}
	}
	return itemMap, nil
}

func validateBillRequest(req *CreateBillRequest) error {
	if len(req.Cart) == 0 {
		return &models.ValidationError{Field: "cart", Reason: "at least one line is required"}
	}
	for _, line := range req.Cart {
		if line.Quantity < 1 {
			return &models.ValidationError{Field: "quantity", Reason: "must be at least 1"}
		}
		if line.UnitPrice < 0 {
			return &models.ValidationError{Field: "unit_price", Reason: "must not be negative"}
		}
	}
	if req.DiscountAmount < 0 {
		return &models.ValidationError{Field: "discount_amount", Reason: "must not be negative"}
	}
	if req.GSTPercentage < 0 || req.GSTPercentage > 100 {
		return &models.ValidationError{Field: "gst_percentage", Reason: "must be between 0 and 100"}
	}
	return nil
}

// computeBillTotals derives subtotal, GST, and total in cents. Each field is
// rounded half-up independently so every stored amount can be re-derived
// from the others.
func computeBillTotals(items []models.BillItem, gstPercentage float64, discountAmount int64) (subtotal, gstAmount, totalAmount int64) {
	for _, item := range items {
		subtotal += item.TotalPrice
	}
	basisPoints := int64(math.Round(gstPercentage * 100))
	gstAmount = roundHalfUp(subtotal*basisPoints, 10000)
	totalAmount = subtotal + gstAmount - discountAmount
	return subtotal, gstAmount, totalAmount
}

// roundHalfUp divides numer by denom rounding half away from zero.
// Amounts here are never negative.
func roundHalfUp(numer, denom int64) int64 {
	return (numer + denom/2) / denom
}

// generateBillNumber builds a collision-resistant bill number: date for
// human readability, uuid-derived suffix for uniqueness under concurrency.
func generateBillNumber() string {
	suffix := strings.ToUpper(uuid.New().String()[:8])
	return fmt.Sprintf("INV-%s-%s", time.Now().Format("20060102"), suffix)
}
