package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeTotal(t *testing.T) {
	tests := []struct {
		name                         string
		subtotal, discount, shipping float64
		want                         float64
	}{
		{"plain", 100, 10, 15, 105},
		{"no discount", 50, 0, 5, 55},
		{"discount exceeds subtotal", 10, 50, 0, 0},
		{"all zero", 0, 0, 0, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ComputeTotal(tc.subtotal, tc.discount, tc.shipping))
		})
	}
}

func TestFromDraft(t *testing.T) {
	fixedTime := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("derives total and starts at created", func(t *testing.T) {
		o := FromDraft(Draft{
			Items:         []Item{{ProductID: "p1", Title: "Widget", UnitPrice: 100, Quantity: 1}},
			Subtotal:      100,
			Discount:      10,
			ShippingPrice: 15,
		}, fixedTime)

		assert.NotEmpty(t, o.ID)
		assert.Equal(t, StatusCreated, o.Status)
		assert.Equal(t, 105.0, o.Total)
		assert.Len(t, o.StatusHistory, 1)
		assert.Equal(t, StatusCreated, o.StatusHistory[0].Status)
		assert.Equal(t, fixedTime, o.CreatedAt)
	})

	t.Run("explicit total overrides derivation", func(t *testing.T) {
		override := 99.0
		o := FromDraft(Draft{
			Items:    []Item{{ProductID: "p1", Title: "Widget", UnitPrice: 100, Quantity: 1}},
			Subtotal: 100,
			Total:    &override,
		}, fixedTime)

		assert.Equal(t, 99.0, o.Total)
	})

	t.Run("settled payment starts at paid", func(t *testing.T) {
		o := FromDraft(Draft{
			Items:    []Item{{ProductID: "p1", Title: "Widget", UnitPrice: 10, Quantity: 2}},
			Subtotal: 20,
			Payment:  &Payment{Method: "pix", Status: PaymentPaid},
		}, fixedTime)

		assert.Equal(t, StatusPaid, o.Status)
		assert.Len(t, o.StatusHistory, 2)
		assert.Equal(t, StatusCreated, o.StatusHistory[0].Status)
		assert.Equal(t, StatusPaid, o.StatusHistory[1].Status)
	})

	t.Run("keeps provided id", func(t *testing.T) {
		o := FromDraft(Draft{
			ID:       "ORD-FIXED",
			Items:    []Item{{ProductID: "p1", Title: "Widget", UnitPrice: 10, Quantity: 1}},
			Subtotal: 10,
		}, fixedTime)
		assert.Equal(t, "ORD-FIXED", o.ID)
	})
}

func TestReturnRequestOpen(t *testing.T) {
	assert.False(t, (*ReturnRequest)(nil).Open())
	assert.True(t, (&ReturnRequest{Status: ReturnUnderReview}).Open())
	assert.True(t, (&ReturnRequest{Status: ReturnApproved}).Open())
	assert.False(t, (&ReturnRequest{Status: ReturnRejected}).Open())
	assert.False(t, (&ReturnRequest{Status: ReturnCompleted}).Open())
}
