package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Ishanth288/victure-sub004/internal/broker"
	"github.com/Ishanth288/victure-sub004/internal/models"
	"github.com/Ishanth288/victure-sub004/internal/redisclient"
	"github.com/Ishanth288/victure-sub004/internal/store"
	"github.com/Ishanth288/victure-sub004/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DeletionAuditLog fronts the append-only audit trail. Entries are written
// once and never mutated; reversing a logged action appends a new
// compensating entry.
type DeletionAuditLog struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewDeletionAuditLog creates a new audit log service
func NewDeletionAuditLog(
	st *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
) *DeletionAuditLog {
	return &DeletionAuditLog{
		store:          st,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// Append writes one audit entry and returns its assigned ID
func (al *DeletionAuditLog) Append(ctx context.Context, entry *models.DeletionLogEntry) (int64, error) {
	if err := al.store.AppendDeletionLog(ctx, entry); err != nil {
		return 0, &models.PersistenceError{Op: "audit append", Err: err}
	}
	return entry.ID, nil
}

// GetEntry retrieves one audit entry
func (al *DeletionAuditLog) GetEntry(ctx context.Context, entryID int64) (*models.DeletionLogEntry, error) {
	return al.store.GetDeletionLogEntry(ctx, entryID)
}

// QueryByEntity lists audit entries for one entity
func (al *DeletionAuditLog) QueryByEntity(ctx context.Context, entityType string, entityID int64) ([]models.DeletionLogEntry, error) {
	return al.store.QueryDeletionLogByEntity(ctx, entityType, entityID)
}

// QueryByTimeRange lists audit entries within a time window
func (al *DeletionAuditLog) QueryByTimeRange(ctx context.Context, from, to time.Time) ([]models.DeletionLogEntry, error) {
	return al.store.QueryDeletionLogByTimeRange(ctx, from, to)
}

// Reverse undoes a reversible logged action while its reversal window is
// open. The compensating action runs in one transaction together with a new
// audit entry; the original entry is never touched.
func (al *DeletionAuditLog) Reverse(ctx context.Context, entryID int64, actorID string) error {
	ctx, span := util.StartSpan(ctx, "DeletionAuditLog.Reverse")
	defer span.End()

	entry, err := al.store.GetDeletionLogEntry(ctx, entryID)
	if err != nil {
		util.AuditReversalsFailedTotal.WithLabelValues("not_found").Inc()
		return err
	}

	if err := reversalOpen(entry, time.Now()); err != nil {
		util.AuditReversalsFailedTotal.WithLabelValues("window_closed").Inc()
		return err
	}

	switch entry.DeletionType {
	case models.DeletionTypeReturn:
		return al.reverseReturn(ctx, entry, actorID)
	default:
		util.AuditReversalsFailedTotal.WithLabelValues("unsupported").Inc()
		return &models.NotReversibleError{EntryID: entry.ID, Reason: "unsupported entry type " + entry.DeletionType}
	}
}

func (al *DeletionAuditLog) reverseReturn(ctx context.Context, entry *models.DeletionLogEntry, actorID string) error {
	ret, err := al.store.GetReturnByID(ctx, entry.EntityID)
	if err != nil {
		util.AuditReversalsFailedTotal.WithLabelValues("not_found").Inc()
		return err
	}
	if ret.Reversed {
		util.AuditReversalsFailedTotal.WithLabelValues("already_reversed").Inc()
		return &models.NotReversibleError{EntryID: entry.ID, Reason: "return already reversed"}
	}

	snapshot, err := json.Marshal(ret)
	if err != nil {
		return err
	}
	reversalEntry := &models.DeletionLogEntry{
		DeletionType:   models.DeletionTypeReturnReversal,
		IsReversible:   false,
		ActorID:        actorID,
		EntitySnapshot: snapshot,
	}

	if err := al.store.ReverseReturnTx(ctx, ret, reversalEntry); err != nil {
		if errors.Is(err, store.ErrAlreadyReversed) {
			util.AuditReversalsFailedTotal.WithLabelValues("already_reversed").Inc()
			return &models.NotReversibleError{EntryID: entry.ID, Reason: "return already reversed"}
		}
		var insufficient *models.InsufficientStockError
		if errors.As(err, &insufficient) {
			util.AuditReversalsFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return err
		}
		util.AuditReversalsFailedTotal.WithLabelValues("db_error").Inc()
		return &models.PersistenceError{Op: "return reversal", Err: err}
	}

	util.AuditReversalsTotal.Inc()

	if billItem, lookupErr := al.store.GetBillItemByID(ctx, ret.BillItemID); lookupErr == nil {
		if cacheErr := al.redis.InvalidateItem(ctx, billItem.InventoryItemID); cacheErr != nil {
			al.logger.Warn("Failed to invalidate item cache",
				zap.Int64("item_id", billItem.InventoryItemID),
				zap.Error(cacheErr))
		}
	}

	al.logger.Info("Return reversed",
		zap.Int64("return_id", ret.ID),
		zap.Int64("log_entry_id", entry.ID),
		zap.Int64("reversal_entry_id", reversalEntry.ID),
		zap.String("actor_id", actorID))

	event := &models.ReturnReversedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeReturnReversed,
			Timestamp: time.Now(),
		},
		ReturnID:   ret.ID,
		LogEntryID: reversalEntry.ID,
		ActorID:    actorID,
	}
	if pubErr := al.eventPublisher.PublishReturnReversed(ctx, event); pubErr != nil {
		al.logger.Error("Failed to publish ReturnReversed event", zap.Error(pubErr))
	}

	return nil
}

// reversalOpen checks that an entry is reversible and its window has not
// closed at the given instant.
func reversalOpen(entry *models.DeletionLogEntry, now time.Time) error {
	if !entry.IsReversible {
		return &models.NotReversibleError{EntryID: entry.ID, Reason: "entry is not reversible"}
	}
	if entry.ReversalDeadline != nil && now.After(*entry.ReversalDeadline) {
		return &models.ExpiredReversalWindowError{EntryID: entry.ID, Deadline: *entry.ReversalDeadline}
	}
	return nil
}
