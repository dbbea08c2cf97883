package service

import (
	"regexp"
	"testing"

	"github.com/Ishanth288/victure-sub004/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestComputeBillTotals(t *testing.T) {
	// cart: 2 x 10.00 + 1 x 5.00, GST 12%, no discount
	items := []models.BillItem{
		{Quantity: 2, UnitPrice: 1000, TotalPrice: 2000},
		{Quantity: 1, UnitPrice: 500, TotalPrice: 500},
	}

	subtotal, gst, total := computeBillTotals(items, 12, 0)

	assert.Equal(t, int64(2500), subtotal)
	assert.Equal(t, int64(300), gst)
	assert.Equal(t, int64(2800), total)
}

func TestComputeBillTotalsRoundsHalfUp(t *testing.T) {
	// 1.25 at 18% GST is 22.5 cents, rounded up to 23
	items := []models.BillItem{
		{Quantity: 1, UnitPrice: 125, TotalPrice: 125},
	}

	subtotal, gst, total := computeBillTotals(items, 18, 0)

	assert.Equal(t, int64(125), subtotal)
	assert.Equal(t, int64(23), gst)
	assert.Equal(t, int64(148), total)
}

func TestComputeBillTotalsAppliesDiscount(t *testing.T) {
	items := []models.BillItem{
		{Quantity: 3, UnitPrice: 400, TotalPrice: 1200},
	}

	subtotal, gst, total := computeBillTotals(items, 5, 100)

	assert.Equal(t, int64(1200), subtotal)
	assert.Equal(t, int64(60), gst)
	assert.Equal(t, int64(1160), total)
	// each field re-derivable from the others
	assert.Equal(t, total, subtotal+gst-100)
}

func TestComputeBillTotalsZeroGST(t *testing.T) {
	items := []models.BillItem{
		{Quantity: 1, UnitPrice: 999, TotalPrice: 999},
	}

	subtotal, gst, total := computeBillTotals(items, 0, 0)

	assert.Equal(t, int64(999), subtotal)
	assert.Zero(t, gst)
	assert.Equal(t, int64(999), total)
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, int64(3), roundHalfUp(25, 10))  // 2.5 -> 3
	assert.Equal(t, int64(2), roundHalfUp(24, 10))  // 2.4 -> 2
	assert.Equal(t, int64(3), roundHalfUp(26, 10))  // 2.6 -> 3
	assert.Equal(t, int64(0), roundHalfUp(0, 100))  // 0 -> 0
	assert.Equal(t, int64(1), roundHalfUp(50, 100)) // 0.5 -> 1
}

func TestGenerateBillNumberFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^INV-\d{8}-[0-9A-F]{8}$`)

	number := generateBillNumber()
	assert.Regexp(t, pattern, number)
}

func TestGenerateBillNumberCollisionResistant(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 10000; i++ {
		number := generateBillNumber()
		assert.False(t, seen[number], "duplicate bill number %s", number)
		seen[number] = true
	}
}

func TestValidateBillRequest(t *testing.T) {
	valid := &CreateBillRequest{
		Cart:          []CartLine{{ItemID: 1, Quantity: 2, UnitPrice: 1000}},
		GSTPercentage: 12,
	}
	assert.NoError(t, validateBillRequest(valid))

	cases := []struct {
		name string
		req  *CreateBillRequest
	}{
		{"empty cart", &CreateBillRequest{}},
		{"zero quantity", &CreateBillRequest{Cart: []CartLine{{ItemID: 1, Quantity: 0}}}},
		{"negative unit price", &CreateBillRequest{Cart: []CartLine{{ItemID: 1, Quantity: 1, UnitPrice: -5}}}},
		{"negative discount", &CreateBillRequest{
			Cart:           []CartLine{{ItemID: 1, Quantity: 1}},
			DiscountAmount: -1,
		}},
		{"gst over 100", &CreateBillRequest{
			Cart:          []CartLine{{ItemID: 1, Quantity: 1}},
			GSTPercentage: 101,
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateBillRequest(tc.req)
			var validationErr *models.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}
