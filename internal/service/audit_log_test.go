package service

import (
	"testing"
	"time"

	"github.com/Ishanth288/victure-sub004/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReversalWindow(t *testing.T) {
	processedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	deadline := processedAt.Add(7 * 24 * time.Hour)

	entry := &models.DeletionLogEntry{
		ID:               42,
		DeletionType:     models.DeletionTypeReturn,
		IsReversible:     true,
		ReversalDeadline: &deadline,
	}

	// reversible six days in
	assert.NoError(t, reversalOpen(entry, processedAt.Add(6*24*time.Hour)))

	// expired eight days in
	err := reversalOpen(entry, processedAt.Add(8*24*time.Hour))
	var expiredErr *models.ExpiredReversalWindowError
	require.ErrorAs(t, err, &expiredErr)
	assert.Equal(t, int64(42), expiredErr.EntryID)
	assert.Equal(t, deadline, expiredErr.Deadline)
}

func TestReversalWindowClosesAfterDeadline(t *testing.T) {
	deadline := time.Now().Add(-time.Minute)
	entry := &models.DeletionLogEntry{
		ID:               7,
		IsReversible:     true,
		ReversalDeadline: &deadline,
	}

	var expiredErr *models.ExpiredReversalWindowError
	assert.ErrorAs(t, reversalOpen(entry, time.Now()), &expiredErr)
}

func TestNonReversibleEntry(t *testing.T) {
	entry := &models.DeletionLogEntry{
		ID:           9,
		DeletionType: models.DeletionTypeItemDelete,
		IsReversible: false,
	}

	err := reversalOpen(entry, time.Now())
	var notReversible *models.NotReversibleError
	require.ErrorAs(t, err, &notReversible)
	assert.Equal(t, int64(9), notReversible.EntryID)
}
