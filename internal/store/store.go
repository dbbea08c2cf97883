package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Ishanth288/victure-sub004/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Sentinel errors for races the service layer maps to typed errors.
var (
	ErrReturnQuantityConflict = errors.New("return quantity guard rejected update")
	ErrAlreadyReversed        = errors.New("return already reversed")
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// IsTransient reports whether err is a serialization failure or deadlock
// that is safe to retry as a whole operation.
func IsTransient(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

// IsUniqueViolation reports whether err is a unique-constraint violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// GetItemByID retrieves an inventory item by ID
func (s *Store) GetItemByID(ctx context.Context, id int64) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := s.db.GetContext(ctx, &item, "SELECT * FROM inventory_items WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "inventory item", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetItemsByIDs retrieves multiple inventory items by IDs
func (s *Store) GetItemsByIDs(ctx context.Context, ids []int64) ([]models.InventoryItem, error) {
	if len(ids) == 0 {
		return []models.InventoryItem{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM inventory_items WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var items []models.InventoryItem
	err = s.db.SelectContext(ctx, &items, query, args...)
	return items, err
}

// ListItems retrieves all inventory items
func (s *Store) ListItems(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := s.db.SelectContext(ctx, &items, "SELECT * FROM inventory_items ORDER BY id")
	return items, err
}

// ReserveStockTx checks and decrements stock for every line as a single
// transaction: all rows are locked and validated before any decrement is
// written (two-phase, validate-all then commit-all). Rows are locked in
// ascending item-ID order so concurrent multi-item carts cannot deadlock.
// Returns the lines that dropped to or below their reorder point.
func (s *Store) ReserveStockTx(ctx context.Context, lines []models.StockLine) ([]models.ReorderSuggestion, error) {
	merged := MergeStockLines(lines)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	type lockedRow struct {
		line         models.StockLine
		available    int
		reorderPoint int
	}

	locked := make([]lockedRow, 0, len(merged))
	var shortages []models.StockShortage

	for _, line := range merged {
		var row struct {
			Quantity     int `db:"quantity"`
			ReorderPoint int `db:"reorder_point"`
		}
		err := tx.GetContext(ctx, &row,
			"SELECT quantity, reorder_point FROM inventory_items WHERE id = $1 FOR UPDATE", line.ItemID)
		if err == sql.ErrNoRows {
			return nil, &models.NotFoundError{Entity: "inventory item", ID: line.ItemID}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to lock inventory row %d: %w", line.ItemID, err)
		}

		if row.Quantity < line.Quantity {
			shortages = append(shortages, models.StockShortage{
				ItemID:    line.ItemID,
				Available: row.Quantity,
				Requested: line.Quantity,
			})
			continue
		}
		locked = append(locked, lockedRow{line: line, available: row.Quantity, reorderPoint: row.ReorderPoint})
	}

	if len(shortages) > 0 {
		return nil, &models.InsufficientStockError{Shortages: shortages}
	}

	var lowStock []models.ReorderSuggestion
	for _, lr := range locked {
		_, err := tx.ExecContext(ctx,
			"UPDATE inventory_items SET quantity = quantity - $1, updated_at = NOW() WHERE id = $2",
			lr.line.Quantity, lr.line.ItemID)
		if err != nil {
			return nil, fmt.Errorf("failed to decrement stock for item %d: %w", lr.line.ItemID, err)
		}

		remaining := lr.available - lr.line.Quantity
		if remaining <= lr.reorderPoint {
			lowStock = append(lowStock, models.ReorderSuggestion{
				InventoryItemID: lr.line.ItemID,
				QuantityOnHand:  remaining,
				ReorderPoint:    lr.reorderPoint,
			})
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return lowStock, nil
}

// Restock increments an item's quantity
func (s *Store) Restock(ctx context.Context, itemID int64, quantity int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE inventory_items SET quantity = quantity + $1, updated_at = NOW() WHERE id = $2",
		quantity, itemID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &models.NotFoundError{Entity: "inventory item", ID: itemID}
	}
	return nil
}

// DeleteItemTx deletes an inventory item and writes its non-reversible audit
// entry in one transaction. The delete is refused while any bill item still
// references the row.
func (s *Store) DeleteItemTx(ctx context.Context, itemID int64, actorID string) (*models.DeletionLogEntry, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var item models.InventoryItem
	err = tx.GetContext(ctx, &item, "SELECT * FROM inventory_items WHERE id = $1 FOR UPDATE", itemID)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "inventory item", ID: itemID}
	}
	if err != nil {
		return nil, err
	}

	var referenced bool
	err = tx.GetContext(ctx, &referenced,
		"SELECT EXISTS(SELECT 1 FROM bill_items WHERE inventory_item_id = $1)", itemID)
	if err != nil {
		return nil, err
	}
	if referenced {
		return nil, &models.ReferentialIntegrityError{ItemID: itemID}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM inventory_items WHERE id = $1", itemID); err != nil {
		return nil, fmt.Errorf("failed to delete inventory item %d: %w", itemID, err)
	}

	snapshot, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot inventory item %d: %w", itemID, err)
	}

	entry := &models.DeletionLogEntry{
		EntityType:     models.EntityTypeInventoryItem,
		EntityID:       itemID,
		EntitySnapshot: snapshot,
		DeletionType:   models.DeletionTypeItemDelete,
		IsReversible:   false,
		ActorID:        actorID,
	}
	if err := appendDeletionLogTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

// MergeStockLines sums duplicate item IDs and sorts lines by ascending
// item ID, the lock acquisition order used by ReserveStockTx.
func MergeStockLines(lines []models.StockLine) []models.StockLine {
	byItem := make(map[int64]int, len(lines))
	for _, line := range lines {
		byItem[line.ItemID] += line.Quantity
	}

	merged := make([]models.StockLine, 0, len(byItem))
	for id, qty := range byItem {
		merged = append(merged, models.StockLine{ItemID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ItemID < merged[j].ItemID })
	return merged
}
