package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsufficientStockErrorNamesEveryItem(t *testing.T) {
	err := &InsufficientStockError{Shortages: []StockShortage{
		{ItemID: 3, Available: 2, Requested: 5},
		{ItemID: 9, Available: 0, Requested: 1},
	}}

	msg := err.Error()
	assert.Contains(t, msg, "item 3: requested 5, available 2")
	assert.Contains(t, msg, "item 9: requested 1, available 0")
	assert.Contains(t, msg, "2 item(s)")
}

func TestTypedErrorsMatchThroughWrapping(t *testing.T) {
	base := &ReferentialIntegrityError{ItemID: 12}
	wrapped := fmt.Errorf("delete refused: %w", base)

	var refErr *ReferentialIntegrityError
	require.ErrorAs(t, wrapped, &refErr)
	assert.Equal(t, int64(12), refErr.ItemID)
}

func TestPersistenceErrorUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := &PersistenceError{Op: "bill write", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "bill write")
}

func TestExpiredReversalWindowErrorMessage(t *testing.T) {
	deadline := time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC)
	err := &ExpiredReversalWindowError{EntryID: 5, Deadline: deadline}

	assert.Contains(t, err.Error(), "entry 5")
	assert.Contains(t, err.Error(), "2024-03-08T12:00:00Z")
}

func TestInvalidReturnQuantityErrorMessage(t *testing.T) {
	err := &InvalidReturnQuantityError{Requested: 7, MaxAllowed: 6}
	assert.Equal(t, "invalid return quantity: requested 7, max allowed 6", err.Error())
}
