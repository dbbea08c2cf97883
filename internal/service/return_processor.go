package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Ishanth288/victure-sub004/internal/broker"
	"github.com/Ishanth288/victure-sub004/internal/models"
	"github.com/Ishanth288/victure-sub004/internal/redisclient"
	"github.com/Ishanth288/victure-sub004/internal/store"
	"github.com/Ishanth288/victure-sub004/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const idempotencyCacheTTL = 24 * time.Hour

// ReturnProcessor handles partial and full returns against persisted bill
// items. Every processed return is a reversible, logged action.
type ReturnProcessor struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	reversalWindow time.Duration
	logger         *zap.Logger
}

// NewReturnProcessor creates a new return processor
func NewReturnProcessor(
	st *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	reversalWindowDays int,
) *ReturnProcessor {
	if reversalWindowDays < 1 {
		reversalWindowDays = 7
	}
	return &ReturnProcessor{
		store:          st,
		redis:          redis,
		eventPublisher: eventPublisher,
		reversalWindow: time.Duration(reversalWindowDays) * 24 * time.Hour,
		logger:         util.GetLogger(),
	}
}

// ProcessReturnRequest represents a request to return units of a bill item
type ProcessReturnRequest struct {
	BillItemID     int64  `json:"bill_item_id" binding:"required"`
	Quantity       int    `json:"quantity" binding:"required,min=1"`
	Reason         string `json:"reason"`
	Disposition    string `json:"disposition" binding:"required"`
	ActorID        string `json:"actor_id"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// ProcessReturn validates the requested quantity against the bill item's
// remaining returnable quantity, records the return and its reversible audit
// entry in one transaction, and restocks the units when disposition asks for
// it. Re-invoking with the same idempotency key returns the original Return
// without repeating any side effect.
func (rp *ReturnProcessor) ProcessReturn(ctx context.Context, req *ProcessReturnRequest) (*models.Return, error) {
	ctx, span := util.StartSpan(ctx, "ReturnProcessor.ProcessReturn")
	defer span.End()

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}
	req.Disposition = strings.ToUpper(req.Disposition)

	if cachedID, ok, err := rp.redis.GetIdempotencyKey(ctx, "return", req.IdempotencyKey); err == nil && ok {
		if existing, lookupErr := rp.store.GetReturnByID(ctx, cachedID); lookupErr == nil {
			return existing, nil
		}
	}

	existing, err := rp.store.GetReturnByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, &models.PersistenceError{Op: "idempotency lookup", Err: err}
	}
	if existing != nil {
		rp.logger.Info("Duplicate return request detected",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Int64("return_id", existing.ID))
		rp.cacheIdempotencyKey(ctx, req.IdempotencyKey, existing.ID)
		return existing, nil
	}

	if req.Disposition != models.DispositionRestocked && req.Disposition != models.DispositionDisposed {
		util.ReturnsFailedTotal.WithLabelValues("invalid_request").Inc()
		return nil, &models.ValidationError{Field: "disposition", Reason: "must be RESTOCKED or DISPOSED"}
	}

	billItem, err := rp.store.GetBillItemByID(ctx, req.BillItemID)
	if err != nil {
		util.ReturnsFailedTotal.WithLabelValues("not_found").Inc()
		return nil, err
	}

	if err := validateReturnQuantity(billItem, req.Quantity); err != nil {
		util.ReturnsFailedTotal.WithLabelValues("invalid_quantity").Inc()
		return nil, err
	}

	deadline := time.Now().Add(rp.reversalWindow)
	ret := &models.Return{
		BillItemID:     req.BillItemID,
		Quantity:       req.Quantity,
		Reason:         req.Reason,
		RefundAmount:   refundAmount(req.Quantity, billItem.UnitPrice),
		Disposition:    req.Disposition,
		IdempotencyKey: req.IdempotencyKey,
		ActorID:        req.ActorID,
	}
	entry := &models.DeletionLogEntry{
		DeletionType:     models.DeletionTypeReturn,
		IsReversible:     true,
		ReversalDeadline: &deadline,
		ActorID:          req.ActorID,
	}

	restock := req.Disposition == models.DispositionRestocked
	if err := rp.store.CreateReturnTx(ctx, ret, restock, entry); err != nil {
		if store.IsUniqueViolation(err) {
			if dup, lookupErr := rp.store.GetReturnByIdempotencyKey(ctx, req.IdempotencyKey); lookupErr == nil && dup != nil {
				rp.logger.Info("Concurrent duplicate return request, returning existing return",
					zap.String("idempotency_key", req.IdempotencyKey),
					zap.Int64("return_id", dup.ID))
				return dup, nil
			}
		}
		if errors.Is(err, store.ErrReturnQuantityConflict) {
			util.ReturnsFailedTotal.WithLabelValues("invalid_quantity").Inc()
			if current, lookupErr := rp.store.GetBillItemByID(ctx, req.BillItemID); lookupErr == nil {
				return nil, &models.InvalidReturnQuantityError{
					Requested:  req.Quantity,
					MaxAllowed: current.Quantity - current.ReturnQuantity,
				}
			}
			return nil, &models.InvalidReturnQuantityError{Requested: req.Quantity}
		}
		util.ReturnsFailedTotal.WithLabelValues("db_error").Inc()
		return nil, &models.PersistenceError{Op: "return write", Err: err}
	}

	util.ReturnsProcessedTotal.Inc()
	rp.cacheIdempotencyKey(ctx, req.IdempotencyKey, ret.ID)

	if restock {
		if cacheErr := rp.redis.InvalidateItem(ctx, billItem.InventoryItemID); cacheErr != nil {
			rp.logger.Warn("Failed to invalidate item cache",
				zap.Int64("item_id", billItem.InventoryItemID),
				zap.Error(cacheErr))
		}
	}

	rp.logger.Info("Return processed",
		zap.Int64("return_id", ret.ID),
		zap.Int64("bill_item_id", ret.BillItemID),
		zap.Int("quantity", ret.Quantity),
		zap.Int64("refund_amount", ret.RefundAmount),
		zap.String("disposition", ret.Disposition))

	event := &models.ReturnProcessedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeReturnProcessed,
			Timestamp: time.Now(),
		},
		ReturnID:     ret.ID,
		BillItemID:   ret.BillItemID,
		Quantity:     ret.Quantity,
		RefundAmount: ret.RefundAmount,
		Disposition:  ret.Disposition,
		ActorID:      ret.ActorID,
	}
	if pubErr := rp.eventPublisher.PublishReturnProcessed(ctx, event); pubErr != nil {
		rp.logger.Error("Failed to publish ReturnProcessed event", zap.Error(pubErr))
	}

	return ret, nil
}

// GetReturn retrieves a return by ID
func (rp *ReturnProcessor) GetReturn(ctx context.Context, id int64) (*models.Return, error) {
	return rp.store.GetReturnByID(ctx, id)
}

func (rp *ReturnProcessor) cacheIdempotencyKey(ctx context.Context, key string, returnID int64) {
	if err := rp.redis.SetIdempotencyKey(ctx, "return", key, returnID, idempotencyCacheTTL); err != nil {
		rp.logger.Warn("Failed to cache idempotency key",
			zap.String("idempotency_key", key),
			zap.Error(err))
	}
}

// validateReturnQuantity enforces qty <= quantity - returnQuantity.
func validateReturnQuantity(billItem *models.BillItem, quantity int) error {
	maxAllowed := billItem.Quantity - billItem.ReturnQuantity
	if quantity < 1 || quantity > maxAllowed {
		return &models.InvalidReturnQuantityError{Requested: quantity, MaxAllowed: maxAllowed}
	}
	return nil
}

// refundAmount is quantity x unit price. GST and discount already applied to
// the bill are deliberately not adjusted.
func refundAmount(quantity int, unitPrice int64) int64 {
	return int64(quantity) * unitPrice
}
