package store

import (
	"context"

	"github.com/Ishanth288/victure-sub004/internal/models"
)

// InsertReorderSuggestion records a low-stock suggestion. At most one open
// suggestion exists per item; repeats are absorbed.
func (s *Store) InsertReorderSuggestion(ctx context.Context, sug *models.ReorderSuggestion) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reorder_suggestions (inventory_item_id, quantity_on_hand, reorder_point)
		VALUES ($1, $2, $3)
		ON CONFLICT (inventory_item_id) DO UPDATE
		SET quantity_on_hand = EXCLUDED.quantity_on_hand,
		    reorder_point = EXCLUDED.reorder_point,
		    suggested_at = NOW()`,
		sug.InventoryItemID, sug.QuantityOnHand, sug.ReorderPoint)
	return err
}

// ListReorderSuggestions retrieves open reorder suggestions
func (s *Store) ListReorderSuggestions(ctx context.Context) ([]models.ReorderSuggestion, error) {
	var sugs []models.ReorderSuggestion
	err := s.db.SelectContext(ctx, &sugs,
		"SELECT * FROM reorder_suggestions ORDER BY suggested_at DESC")
	return sugs, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
