package service

import (
	"testing"

	"github.com/Ishanth288/victure-sub004/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefundAmount(t *testing.T) {
	// refund is quantity x unit price; GST and discount stay untouched
	assert.Equal(t, int64(3000), refundAmount(3, 1000))
	assert.Equal(t, int64(500), refundAmount(1, 500))
}

func TestValidateReturnQuantityBoundary(t *testing.T) {
	billItem := &models.BillItem{Quantity: 10, ReturnQuantity: 4}

	// exactly the remaining returnable quantity succeeds
	assert.NoError(t, validateReturnQuantity(billItem, 6))

	// one more than that fails with the structured detail
	err := validateReturnQuantity(billItem, 7)
	var invalidErr *models.InvalidReturnQuantityError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, 7, invalidErr.Requested)
	assert.Equal(t, 6, invalidErr.MaxAllowed)
}

func TestValidateReturnQuantityFullyReturned(t *testing.T) {
	billItem := &models.BillItem{Quantity: 5, ReturnQuantity: 5}

	err := validateReturnQuantity(billItem, 1)
	var invalidErr *models.InvalidReturnQuantityError
	require.ErrorAs(t, err, &invalidErr)
	assert.Zero(t, invalidErr.MaxAllowed)
}

func TestValidateReturnQuantityRejectsNonPositive(t *testing.T) {
	billItem := &models.BillItem{Quantity: 5}

	var invalidErr *models.InvalidReturnQuantityError
	assert.ErrorAs(t, validateReturnQuantity(billItem, 0), &invalidErr)
	assert.ErrorAs(t, validateReturnQuantity(billItem, -3), &invalidErr)
}
