package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Ishanth288/victure-sub004/internal/models"
)

// CreateReturnTx records a return in one transaction: the bill item's
// return_quantity is bumped under a guard that re-checks the remaining
// returnable quantity, the return row and its reversible audit entry are
// inserted, and restocked units are credited back to inventory.
// ErrReturnQuantityConflict is returned when a concurrent return consumed
// the remaining quantity between validation and commit.
func (s *Store) CreateReturnTx(ctx context.Context, ret *models.Return, restock bool, entry *models.DeletionLogEntry) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE bill_items
		 SET return_quantity = return_quantity + $1
		 WHERE id = $2 AND return_quantity + $1 <= quantity`,
		ret.Quantity, ret.BillItemID)
	if err != nil {
		return fmt.Errorf("failed to annotate bill item %d: %w", ret.BillItemID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrReturnQuantityConflict
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO returns (bill_item_id, quantity, reason, refund_amount, disposition,
			idempotency_key, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, return_date`,
		ret.BillItemID, ret.Quantity, ret.Reason, ret.RefundAmount, ret.Disposition,
		ret.IdempotencyKey, ret.ActorID).Scan(&ret.ID, &ret.ReturnDate)
	if err != nil {
		return err
	}

	if restock {
		var itemID int64
		err = tx.GetContext(ctx, &itemID,
			"SELECT inventory_item_id FROM bill_items WHERE id = $1", ret.BillItemID)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE inventory_items SET quantity = quantity + $1, updated_at = NOW() WHERE id = $2",
			ret.Quantity, itemID)
		if err != nil {
			return fmt.Errorf("failed to restock item %d: %w", itemID, err)
		}
	}

	snapshot, err := json.Marshal(ret)
	if err != nil {
		return fmt.Errorf("failed to snapshot return %d: %w", ret.ID, err)
	}

	entry.EntityType = models.EntityTypeReturn
	entry.EntityID = ret.ID
	entry.EntitySnapshot = snapshot
	if err := appendDeletionLogTx(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

// GetReturnByID retrieves a return by ID
func (s *Store) GetReturnByID(ctx context.Context, id int64) (*models.Return, error) {
	var ret models.Return
	err := s.db.GetContext(ctx, &ret, "SELECT * FROM returns WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "return", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// GetReturnByIdempotencyKey retrieves a return by idempotency key, nil when absent
func (s *Store) GetReturnByIdempotencyKey(ctx context.Context, key string) (*models.Return, error) {
	var ret models.Return
	err := s.db.GetContext(ctx, &ret, "SELECT * FROM returns WHERE idempotency_key = $1", key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// ReverseReturnTx undoes a restocked return in one transaction: restocked
// units are debited back out of inventory, the return row is marked
// reversed exactly once, and the compensating audit entry is appended. The
// original log entry is never touched.
func (s *Store) ReverseReturnTx(ctx context.Context, ret *models.Return, entry *models.DeletionLogEntry) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if ret.Disposition == models.DispositionRestocked {
		var itemID int64
		err = tx.GetContext(ctx, &itemID,
			"SELECT inventory_item_id FROM bill_items WHERE id = $1", ret.BillItemID)
		if err != nil {
			return err
		}

		var available int
		err = tx.GetContext(ctx, &available,
			"SELECT quantity FROM inventory_items WHERE id = $1 FOR UPDATE", itemID)
		if err == sql.ErrNoRows {
			return &models.NotFoundError{Entity: "inventory item", ID: itemID}
		}
		if err != nil {
			return err
		}
		if available < ret.Quantity {
			return &models.InsufficientStockError{Shortages: []models.StockShortage{{
				ItemID:    itemID,
				Available: available,
				Requested: ret.Quantity,
			}}}
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE inventory_items SET quantity = quantity - $1, updated_at = NOW() WHERE id = $2",
			ret.Quantity, itemID)
		if err != nil {
			return fmt.Errorf("failed to re-debit item %d: %w", itemID, err)
		}
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE returns SET reversed = TRUE WHERE id = $1 AND reversed = FALSE", ret.ID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAlreadyReversed
	}

	entry.EntityType = models.EntityTypeReturn
	entry.EntityID = ret.ID
	if err := appendDeletionLogTx(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}
