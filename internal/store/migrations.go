package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Migrate creates the schema. The deletion_log trigger enforces append-only
// semantics at the schema level rather than by convention.
func Migrate(db *sqlx.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS inventory_items (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			quantity INT NOT NULL DEFAULT 0 CHECK (quantity >= 0),
			unit_cost BIGINT NOT NULL DEFAULT 0,
			selling_price BIGINT NOT NULL DEFAULT 0,
			reorder_point INT NOT NULL DEFAULT 10,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS bills (
			id BIGSERIAL PRIMARY KEY,
			bill_number TEXT NOT NULL UNIQUE,
			prescription_id BIGINT,
			subtotal BIGINT NOT NULL,
			gst_amount BIGINT NOT NULL,
			gst_percentage DOUBLE PRECISION NOT NULL,
			discount_amount BIGINT NOT NULL DEFAULT 0,
			total_amount BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'COMPLETED',
			payment_mode TEXT NOT NULL DEFAULT 'CASH',
			actor_id TEXT NOT NULL,
			idempotency_key TEXT UNIQUE,
			bill_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS bill_items (
			id BIGSERIAL PRIMARY KEY,
			bill_id BIGINT NOT NULL REFERENCES bills(id),
			inventory_item_id BIGINT NOT NULL REFERENCES inventory_items(id),
			quantity INT NOT NULL CHECK (quantity > 0),
			unit_price BIGINT NOT NULL,
			total_price BIGINT NOT NULL,
			return_quantity INT NOT NULL DEFAULT 0
				CHECK (return_quantity >= 0 AND return_quantity <= quantity)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bill_items_inventory_item
			ON bill_items (inventory_item_id)`,
		`CREATE TABLE IF NOT EXISTS returns (
			id BIGSERIAL PRIMARY KEY,
			bill_item_id BIGINT NOT NULL REFERENCES bill_items(id),
			quantity INT NOT NULL CHECK (quantity > 0),
			reason TEXT NOT NULL DEFAULT '',
			refund_amount BIGINT NOT NULL,
			disposition TEXT NOT NULL CHECK (disposition IN ('RESTOCKED', 'DISPOSED')),
			reversed BOOLEAN NOT NULL DEFAULT FALSE,
			idempotency_key TEXT NOT NULL UNIQUE,
			actor_id TEXT NOT NULL,
			return_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS deletion_log (
			id BIGSERIAL PRIMARY KEY,
			entity_type TEXT NOT NULL,
			entity_id BIGINT NOT NULL,
			entity_snapshot JSONB,
			deletion_type TEXT NOT NULL,
			is_reversible BOOLEAN NOT NULL DEFAULT FALSE,
			reversal_deadline TIMESTAMPTZ,
			actor_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deletion_log_entity
			ON deletion_log (entity_type, entity_id)`,
		`CREATE OR REPLACE FUNCTION deletion_log_immutable() RETURNS trigger AS $$
		BEGIN
			RAISE EXCEPTION 'deletion_log entries are append-only';
		END;
		$$ LANGUAGE plpgsql`,
		`DROP TRIGGER IF EXISTS trg_deletion_log_immutable ON deletion_log`,
		`CREATE TRIGGER trg_deletion_log_immutable
			BEFORE UPDATE OR DELETE ON deletion_log
			FOR EACH ROW EXECUTE FUNCTION deletion_log_immutable()`,
		`CREATE TABLE IF NOT EXISTS reorder_suggestions (
			id BIGSERIAL PRIMARY KEY,
			inventory_item_id BIGINT NOT NULL UNIQUE,
			quantity_on_hand INT NOT NULL,
			reorder_point INT NOT NULL,
			suggested_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS processed_events (
			event_id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
