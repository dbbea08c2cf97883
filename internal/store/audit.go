package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/Ishanth288/victure-sub004/internal/models"

	"github.com/jmoiron/sqlx"
)

const deletionLogInsert = `
	INSERT INTO deletion_log (entity_type, entity_id, entity_snapshot, deletion_type,
		is_reversible, reversal_deadline, actor_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id, created_at`

// appendDeletionLogTx writes an audit entry inside an existing transaction so
// the entry commits or rolls back with the action it documents.
func appendDeletionLogTx(ctx context.Context, tx *sqlx.Tx, entry *models.DeletionLogEntry) error {
	return tx.QueryRowxContext(ctx, deletionLogInsert,
		entry.EntityType, entry.EntityID, entry.EntitySnapshot, entry.DeletionType,
		entry.IsReversible, entry.ReversalDeadline, entry.ActorID).
		Scan(&entry.ID, &entry.CreatedAt)
}

// AppendDeletionLog writes a standalone audit entry. The table's trigger
// rejects updates and deletes, so entries are immutable once written.
func (s *Store) AppendDeletionLog(ctx context.Context, entry *models.DeletionLogEntry) error {
	return s.db.QueryRowxContext(ctx, deletionLogInsert,
		entry.EntityType, entry.EntityID, entry.EntitySnapshot, entry.DeletionType,
		entry.IsReversible, entry.ReversalDeadline, entry.ActorID).
		Scan(&entry.ID, &entry.CreatedAt)
}

// GetDeletionLogEntry retrieves one audit entry by ID
func (s *Store) GetDeletionLogEntry(ctx context.Context, id int64) (*models.DeletionLogEntry, error) {
	var entry models.DeletionLogEntry
	err := s.db.GetContext(ctx, &entry, "SELECT * FROM deletion_log WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "deletion log entry", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// QueryDeletionLogByEntity lists audit entries for one entity, newest first
func (s *Store) QueryDeletionLogByEntity(ctx context.Context, entityType string, entityID int64) ([]models.DeletionLogEntry, error) {
	var entries []models.DeletionLogEntry
	err := s.db.SelectContext(ctx, &entries,
		"SELECT * FROM deletion_log WHERE entity_type = $1 AND entity_id = $2 ORDER BY created_at DESC",
		entityType, entityID)
	return entries, err
}

// QueryDeletionLogByTimeRange lists audit entries within [from, to], newest first
func (s *Store) QueryDeletionLogByTimeRange(ctx context.Context, from, to time.Time) ([]models.DeletionLogEntry, error) {
	var entries []models.DeletionLogEntry
	err := s.db.SelectContext(ctx, &entries,
		"SELECT * FROM deletion_log WHERE created_at >= $1 AND created_at <= $2 ORDER BY created_at DESC",
		from, to)
	return entries, err
}
