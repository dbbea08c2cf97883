package models

import (
	"fmt"
	"strings"
	"time"
)

// InsufficientStockError reports every line of a reservation that could not
// be satisfied, not just the first one.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, len(e.Shortages))
	for i, s := range e.Shortages {
		parts[i] = fmt.Sprintf("item %d: requested %d, available %d", s.ItemID, s.Requested, s.Available)
	}
	return fmt.Sprintf("insufficient stock for %d item(s): %s", len(e.Shortages), strings.Join(parts, "; "))
}

// ReferentialIntegrityError refuses deletion of an inventory item that is
// still referenced by a persisted bill item.
type ReferentialIntegrityError struct {
	ItemID int64
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("inventory item %d is referenced by existing bill items and cannot be deleted", e.ItemID)
}

// InvalidReturnQuantityError is returned when a return exceeds the remaining
// returnable quantity of a bill item.
type InvalidReturnQuantityError struct {
	Requested  int
	MaxAllowed int
}

func (e *InvalidReturnQuantityError) Error() string {
	return fmt.Sprintf("invalid return quantity: requested %d, max allowed %d", e.Requested, e.MaxAllowed)
}

// ExpiredReversalWindowError is permanent once the deadline has passed.
type ExpiredReversalWindowError struct {
	EntryID  int64
	Deadline time.Time
}

func (e *ExpiredReversalWindowError) Error() string {
	return fmt.Sprintf("reversal window for log entry %d expired at %s", e.EntryID, e.Deadline.Format(time.RFC3339))
}

// NotReversibleError covers entries that were never reversible or were
// already reversed.
type NotReversibleError struct {
	EntryID int64
	Reason  string
}

func (e *NotReversibleError) Error() string {
	return fmt.Sprintf("log entry %d is not reversible: %s", e.EntryID, e.Reason)
}

// TransientConflictError signals concurrency contention; the whole operation
// may be retried by the caller.
type TransientConflictError struct {
	Attempts int
}

func (e *TransientConflictError) Error() string {
	return fmt.Sprintf("transient conflict: gave up after %d attempt(s)", e.Attempts)
}

// NotFoundError identifies a missing entity by type and ID.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ValidationError rejects malformed caller input before any side effect.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PersistenceError wraps an infrastructure fault during a write or read.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
