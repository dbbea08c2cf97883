package store

import (
	"context"
	"database/sql"

	"github.com/Ishanth288/victure-sub004/internal/models"
)

// CreateBillTx persists a bill and all of its items in one transaction.
// Nothing is written if any insert fails.
func (s *Store) CreateBillTx(ctx context.Context, bill *models.Bill, items []models.BillItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO bills (bill_number, prescription_id, subtotal, gst_amount, gst_percentage,
			discount_amount, total_amount, status, payment_mode, actor_id, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, bill_date`

	err = tx.QueryRowxContext(ctx, query,
		bill.BillNumber, bill.PrescriptionID, bill.Subtotal, bill.GSTAmount, bill.GSTPercentage,
		bill.DiscountAmount, bill.TotalAmount, bill.Status, bill.PaymentMode, bill.ActorID,
		bill.IdempotencyKey).Scan(&bill.ID, &bill.BillDate)
	if err != nil {
		return err
	}

	itemQuery := `
		INSERT INTO bill_items (bill_id, inventory_item_id, quantity, unit_price, total_price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	for i := range items {
		items[i].BillID = bill.ID
		err = tx.QueryRowxContext(ctx, itemQuery,
			items[i].BillID, items[i].InventoryItemID, items[i].Quantity,
			items[i].UnitPrice, items[i].TotalPrice).Scan(&items[i].ID)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetBillByID retrieves a bill by ID
func (s *Store) GetBillByID(ctx context.Context, id int64) (*models.Bill, error) {
	var bill models.Bill
	err := s.db.GetContext(ctx, &bill, "SELECT * FROM bills WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "bill", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

// GetBillByIdempotencyKey retrieves a bill by idempotency key, nil when absent
func (s *Store) GetBillByIdempotencyKey(ctx context.Context, key string) (*models.Bill, error) {
	var bill models.Bill
	err := s.db.GetContext(ctx, &bill, "SELECT * FROM bills WHERE idempotency_key = $1", key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

// GetBillItemsByBillID retrieves all items for a bill
func (s *Store) GetBillItemsByBillID(ctx context.Context, billID int64) ([]models.BillItem, error) {
	var items []models.BillItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM bill_items WHERE bill_id = $1 ORDER BY id", billID)
	return items, err
}

// GetBillItemByID retrieves a single bill item
func (s *Store) GetBillItemByID(ctx context.Context, id int64) (*models.BillItem, error) {
	var item models.BillItem
	err := s.db.GetContext(ctx, &item, "SELECT * FROM bill_items WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "bill item", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListBillsByPrescription retrieves bills attached to a prescription
func (s *Store) ListBillsByPrescription(ctx context.Context, prescriptionID int64) ([]models.Bill, error) {
	var bills []models.Bill
	err := s.db.SelectContext(ctx, &bills,
		"SELECT * FROM bills WHERE prescription_id = $1 ORDER BY bill_date DESC", prescriptionID)
	return bills, err
}
