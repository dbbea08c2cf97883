package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/Ishanth288/victure-sub004/internal/broker"
	"github.com/Ishanth288/victure-sub004/internal/models"
	"github.com/Ishanth288/victure-sub004/internal/redisclient"
	"github.com/Ishanth288/victure-sub004/internal/store"
	"github.com/Ishanth288/victure-sub004/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const itemCacheTTL = 30 * time.Second

// InventoryLedger owns per-item stock counts. Every quantity mutation goes
// through it; reservation is all-or-nothing across the requested lines.
type InventoryLedger struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	maxAttempts    int
	reserveTimeout time.Duration
	logger         *zap.Logger
}

// NewInventoryLedger creates a new inventory ledger
func NewInventoryLedger(
	st *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	maxAttempts int,
	reserveTimeout time.Duration,
) *InventoryLedger {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &InventoryLedger{
		store:          st,
		redis:          redis,
		eventPublisher: eventPublisher,
		maxAttempts:    maxAttempts,
		reserveTimeout: reserveTimeout,
		logger:         util.GetLogger(),
	}
}

// ReserveStock atomically checks and decrements stock for every line. If any
// line lacks quantity, no line is decremented and the error names every
// insufficient item. Transient conflicts are retried with jittered backoff
// before surfacing; the returned token identifies the reservation in logs,
// events, and compensation.
func (il *InventoryLedger) ReserveStock(ctx context.Context, lines []models.StockLine) (string, error) {
	ctx, span := util.StartSpan(ctx, "InventoryLedger.ReserveStock")
	defer span.End()

	start := time.Now()
	defer func() {
		util.StockReserveLatency.Observe(time.Since(start).Seconds())
	}()

	if len(lines) == 0 {
		return "", &models.ValidationError{Field: "lines", Reason: "at least one stock line is required"}
	}
	for _, line := range lines {
		if line.Quantity < 1 {
			return "", &models.ValidationError{Field: "quantity", Reason: "must be at least 1"}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, il.reserveTimeout)
	defer cancel()

	var lowStock []models.ReorderSuggestion
	var err error
	for attempt := 1; attempt <= il.maxAttempts; attempt++ {
		lowStock, err = il.store.ReserveStockTx(ctx, lines)
		if err == nil {
			break
		}

		if store.IsTransient(err) || errors.Is(err, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				util.StockReservationsFailedTotal.WithLabelValues("conflict").Inc()
				return "", &models.TransientConflictError{Attempts: attempt}
			}
			il.logger.Warn("Stock reservation conflict, retrying",
				zap.Int("attempt", attempt),
				zap.Error(err))
			if attempt < il.maxAttempts {
				if sleepErr := sleepCtx(ctx, backoffDelay(attempt)); sleepErr != nil {
					util.StockReservationsFailedTotal.WithLabelValues("conflict").Inc()
					return "", &models.TransientConflictError{Attempts: attempt}
				}
			}
			continue
		}

		var insufficient *models.InsufficientStockError
		if errors.As(err, &insufficient) {
			util.StockReservationsFailedTotal.WithLabelValues("insufficient_stock").Inc()
		} else {
			util.StockReservationsFailedTotal.WithLabelValues("error").Inc()
		}
		return "", err
	}
	if err != nil {
		util.StockReservationsFailedTotal.WithLabelValues("conflict").Inc()
		return "", &models.TransientConflictError{Attempts: il.maxAttempts}
	}

	token := uuid.New().String()

	for _, line := range lines {
		if cacheErr := il.redis.InvalidateItem(ctx, line.ItemID); cacheErr != nil {
			il.logger.Warn("Failed to invalidate item cache",
				zap.Int64("item_id", line.ItemID),
				zap.Error(cacheErr))
		}
	}

	for _, alert := range lowStock {
		event := &models.LowStockEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeLowStock,
				Timestamp: time.Now(),
			},
			InventoryItemID: alert.InventoryItemID,
			QuantityOnHand:  alert.QuantityOnHand,
			ReorderPoint:    alert.ReorderPoint,
		}
		if pubErr := il.eventPublisher.PublishLowStock(ctx, event); pubErr != nil {
			il.logger.Error("Failed to publish LowStock event",
				zap.Int64("item_id", alert.InventoryItemID),
				zap.Error(pubErr))
		}
	}

	il.logger.Info("Stock reserved",
		zap.String("reservation_token", token),
		zap.Int("lines", len(lines)))
	return token, nil
}

// Restock increments an item's quantity. Used by the return processor for
// restock dispositions and by the billing engine's compensation path.
func (il *InventoryLedger) Restock(ctx context.Context, itemID int64, quantity int) error {
	ctx, span := util.StartSpan(ctx, "InventoryLedger.Restock")
	defer span.End()

	if quantity < 1 {
		return &models.ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}

	if err := il.store.Restock(ctx, itemID, quantity); err != nil {
		return err
	}

	if cacheErr := il.redis.InvalidateItem(ctx, itemID); cacheErr != nil {
		il.logger.Warn("Failed to invalidate item cache",
			zap.Int64("item_id", itemID),
			zap.Error(cacheErr))
	}
	return nil
}

// DeleteItem deletes an inventory item unless a bill item still references
// it. A successful delete writes exactly one non-reversible audit entry.
func (il *InventoryLedger) DeleteItem(ctx context.Context, itemID int64, actorID string) error {
	ctx, span := util.StartSpan(ctx, "InventoryLedger.DeleteItem")
	defer span.End()

	entry, err := il.store.DeleteItemTx(ctx, itemID, actorID)
	if err != nil {
		var refErr *models.ReferentialIntegrityError
		if errors.As(err, &refErr) {
			util.ItemDeletionsRefusedTotal.Inc()
		}
		return err
	}

	util.ItemsDeletedTotal.Inc()

	if cacheErr := il.redis.InvalidateItem(ctx, itemID); cacheErr != nil {
		il.logger.Warn("Failed to invalidate item cache",
			zap.Int64("item_id", itemID),
			zap.Error(cacheErr))
	}

	event := &models.ItemDeletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeItemDeleted,
			Timestamp: time.Now(),
		},
		InventoryItemID: itemID,
		LogEntryID:      entry.ID,
		ActorID:         actorID,
	}
	if pubErr := il.eventPublisher.PublishItemDeleted(ctx, event); pubErr != nil {
		il.logger.Error("Failed to publish ItemDeleted event", zap.Error(pubErr))
	}

	il.logger.Info("Inventory item deleted",
		zap.Int64("item_id", itemID),
		zap.Int64("log_entry_id", entry.ID),
		zap.String("actor_id", actorID))
	return nil
}

// GetItem retrieves an item, serving reads through the cache
func (il *InventoryLedger) GetItem(ctx context.Context, itemID int64) (*models.InventoryItem, error) {
	cached, err := il.redis.GetCachedItem(ctx, itemID)
	if err != nil {
		il.logger.Warn("Item cache read failed", zap.Int64("item_id", itemID), zap.Error(err))
	}
	if cached != nil {
		return cached, nil
	}

	item, err := il.store.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if cacheErr := il.redis.CacheItem(ctx, item, itemCacheTTL); cacheErr != nil {
		il.logger.Warn("Failed to cache item", zap.Int64("item_id", itemID), zap.Error(cacheErr))
	}
	return item, nil
}

// ListItems retrieves all inventory items
func (il *InventoryLedger) ListItems(ctx context.Context) ([]models.InventoryItem, error) {
	return il.store.ListItems(ctx)
}

// HandleLowStock records a reorder suggestion for a low-stock event,
// exactly once per event.
func (il *InventoryLedger) HandleLowStock(ctx context.Context, event *models.LowStockEvent) error {
	ctx, span := util.StartSpan(ctx, "InventoryLedger.HandleLowStock")
	defer span.End()

	processed, err := il.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		il.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	sug := &models.ReorderSuggestion{
		InventoryItemID: event.InventoryItemID,
		QuantityOnHand:  event.QuantityOnHand,
		ReorderPoint:    event.ReorderPoint,
	}
	if err := il.store.InsertReorderSuggestion(ctx, sug); err != nil {
		return err
	}

	util.ReorderSuggestionsTotal.Inc()

	if err := il.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		il.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	il.logger.Info("Reorder suggestion recorded",
		zap.Int64("item_id", event.InventoryItemID),
		zap.Int("quantity_on_hand", event.QuantityOnHand))
	return nil
}

// ListReorderSuggestions retrieves open reorder suggestions
func (il *InventoryLedger) ListReorderSuggestions(ctx context.Context) ([]models.ReorderSuggestion, error) {
	return il.store.ListReorderSuggestions(ctx)
}

// backoffDelay grows linearly with a random jitter so colliding retries
// spread out.
func backoffDelay(attempt int) time.Duration {
	base := time.Duration(attempt) * 100 * time.Millisecond
	jitter := time.Duration(rand.Intn(50)) * time.Millisecond
	return base + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
