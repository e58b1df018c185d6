package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/plugaishop/ordercore/internal/kvstore"
	"github.com/plugaishop/ordercore/internal/order"
)

func TestForStatusChange(t *testing.T) {
	now := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)

	n := ForStatusChange("ORD-1", order.StatusCreated, order.StatusPaymentPending, now)

	assert.Equal(t, TypeOrderStatus, n.Type)
	assert.Equal(t, "ORD-1", n.OrderID)
	assert.Equal(t, "Order ORD-1: Payment pending", n.Title)
	assert.Equal(t, "Waiting for payment confirmation. Status changed from Created to Payment pending.", n.Body)
	assert.Equal(t, now, n.CreatedAt)
	assert.False(t, n.Read)
	assert.NotEmpty(t, n.ID)
}

func TestBuilders(t *testing.T) {
	now := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("return requested names the protocol", func(t *testing.T) {
		req := order.ReturnRequest{Protocol: "RET-AB12CD34", Type: order.ReturnRefund}
		n := ForReturnRequested("ORD-1", req, now)
		assert.Equal(t, TypeReturn, n.Type)
		assert.Contains(t, n.Body, "refund")
		assert.Contains(t, n.Body, "RET-AB12CD34")
	})

	t.Run("logistics event includes the location when set", func(t *testing.T) {
		ev := order.LogisticsEvent{Type: order.LogisticsInTransit, Title: "Package in transit", Location: "Curitiba, PR"}
		n := ForLogisticsEvent("ORD-1", ev, now)
		assert.Equal(t, TypeTracking, n.Type)
		assert.Equal(t, "Package in transit (Curitiba, PR)", n.Body)

		ev.Location = ""
		n = ForLogisticsEvent("ORD-1", ev, now)
		assert.Equal(t, "Package in transit", n.Body)
	})

	t.Run("invoice issued names the number", func(t *testing.T) {
		n := ForInvoiceIssued("ORD-1", order.Invoice{Status: order.InvoiceIssued, Number: "123456789"}, now)
		assert.Equal(t, TypeInvoice, n.Type)
		assert.Contains(t, n.Body, "123456789")
	})

	t.Run("ids are unique per notification", func(t *testing.T) {
		a := ForOrderPlaced("ORD-1", now)
		b := ForOrderPlaced("ORD-1", now)
		assert.NotEqual(t, a.ID, b.ID)
	})
}

func TestNormalize(t *testing.T) {
	now := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("rejects records without an id", func(t *testing.T) {
		_, ok := Normalize([]byte(`{"title": "orphan"}`), now)
		assert.False(t, ok)
	})

	t.Run("repairs type, title and timestamp", func(t *testing.T) {
		n, ok := Normalize([]byte(`{"id": "NTF-1", "type": "sms", "created_at": "not a date"}`), now)
		assert.True(t, ok)
		assert.Equal(t, TypeGeneric, n.Type)
		assert.Equal(t, "Update", n.Title)
		assert.Equal(t, now, n.CreatedAt)
	})

	t.Run("keeps valid records untouched", func(t *testing.T) {
		n, ok := Normalize([]byte(`{"id": "NTF-1", "type": "tracking", "order_id": "ORD-1", "title": "Shipment update", "body": "On its way.", "read": true, "created_at": "2023-01-01T10:00:00Z"}`), now)
		assert.True(t, ok)
		assert.Equal(t, TypeTracking, n.Type)
		assert.Equal(t, "ORD-1", n.OrderID)
		assert.True(t, n.Read)
		assert.Equal(t, time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC), n.CreatedAt)
	})
}

func TestGuard(t *testing.T) {
	newGuard := func(t *testing.T) *Guard {
		t.Helper()
		return NewGuard(kvstore.New(t.TempDir()))
	}

	t.Run("first transition is always news", func(t *testing.T) {
		g := newGuard(t)
		assert.True(t, g.ShouldNotify("ORD-1", order.StatusPaymentPending))
	})

	t.Run("recorded status is suppressed until it changes", func(t *testing.T) {
		g := newGuard(t)

		g.Record("ORD-1", order.StatusPaymentPending)

		assert.False(t, g.ShouldNotify("ORD-1", order.StatusPaymentPending))
		assert.True(t, g.ShouldNotify("ORD-1", order.StatusPaid))
		assert.True(t, g.ShouldNotify("ORD-2", order.StatusPaymentPending))
	})

	t.Run("reset reopens the guard", func(t *testing.T) {
		g := newGuard(t)
		g.Record("ORD-1", order.StatusPaid)

		g.Reset()

		assert.True(t, g.ShouldNotify("ORD-1", order.StatusPaid))
	})
}
