package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugaishop/ordercore/internal/analytics"
	"github.com/plugaishop/ordercore/internal/bus"
	"github.com/plugaishop/ordercore/internal/engine"
	"github.com/plugaishop/ordercore/internal/kvstore"
	"github.com/plugaishop/ordercore/internal/notification"
	"github.com/plugaishop/ordercore/internal/order"
	"github.com/plugaishop/ordercore/internal/storage"
)

// newTestHandler wires a real engine over a temp-dir store, so handler
// tests exercise the whole stack below the transport.
func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	kv := kvstore.New(t.TempDir())
	eng := engine.New(
		storage.NewOrderStore(kv),
		storage.NewNotificationStore(kv),
		notification.NewGuard(kv),
		bus.New(),
		analytics.NewConsoleSink(),
	)
	return New(eng).setupRoutes()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody *strings.Reader
	if body == "" {
		reqBody = strings.NewReader("")
	} else {
		reqBody = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reqBody)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeOrder(t *testing.T, rec *httptest.ResponseRecorder) order.Order {
	t.Helper()
	var o order.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &o))
	return o
}

const placeBody = `{
	"id": "ORD-1",
	"items": [{"product_id": "p1", "title": "Ceramic mug", "unit_price": 100, "quantity": 1}],
	"subtotal": 100,
	"discount": 10,
	"shipping_price": 15
}`

func TestOrderEndpoints(t *testing.T) {
	t.Run("place then list and fetch", func(t *testing.T) {
		h := newTestHandler(t)

		rec := do(t, h, http.MethodPost, "/orders", placeBody)
		require.Equal(t, http.StatusCreated, rec.Code)
		placed := decodeOrder(t, rec)
		assert.Equal(t, "ORD-1", placed.ID)
		assert.Equal(t, 105.0, placed.Total)
		assert.Equal(t, order.StatusCreated, placed.Status)

		rec = do(t, h, http.MethodGet, "/orders", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var orders []order.Order
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
		require.Len(t, orders, 1)

		rec = do(t, h, http.MethodGet, "/orders/ORD-1", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		rec = do(t, h, http.MethodGet, "/orders/ORD-404", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("rejects an empty order", func(t *testing.T) {
		h := newTestHandler(t)
		rec := do(t, h, http.MethodPost, "/orders", `{"items": []}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		h := newTestHandler(t)
		rec := do(t, h, http.MethodPost, "/orders", `{not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("advance and cancel", func(t *testing.T) {
		h := newTestHandler(t)
		do(t, h, http.MethodPost, "/orders", placeBody)

		rec := do(t, h, http.MethodPost, "/orders/ORD-1/advance", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, order.StatusPaymentPending, decodeOrder(t, rec).Status)

		rec = do(t, h, http.MethodPost, "/orders/ORD-1/cancel", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, order.StatusCanceled, decodeOrder(t, rec).Status)
	})

	t.Run("clear", func(t *testing.T) {
		h := newTestHandler(t)
		do(t, h, http.MethodPost, "/orders", placeBody)

		rec := do(t, h, http.MethodDelete, "/orders", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = do(t, h, http.MethodGet, "/orders/ORD-1", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestReviewEndpoint(t *testing.T) {
	h := newTestHandler(t)
	do(t, h, http.MethodPost, "/orders", placeBody)

	rec := do(t, h, http.MethodPost, "/orders/ORD-1/review", `{"stars": 4, "comment": "solid"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	o := decodeOrder(t, rec)
	require.NotNil(t, o.Review)
	assert.Equal(t, 4, o.Review.Stars)
}

func TestReturnEndpoints(t *testing.T) {
	h := newTestHandler(t)
	do(t, h, http.MethodPost, "/orders", placeBody)

	rec := do(t, h, http.MethodPost, "/orders/ORD-1/return", `{"type": "refund", "reason": "wrong item delivered"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	o := decodeOrder(t, rec)
	require.NotNil(t, o.ReturnRequest)
	assert.Equal(t, order.ReturnUnderReview, o.ReturnRequest.Status)

	// A second open request conflicts.
	rec = do(t, h, http.MethodPost, "/orders/ORD-1/return", `{"type": "exchange"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/orders/ORD-1/return/attachments", `{"uri": "file:///photo.jpg", "name": "photo"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	o = decodeOrder(t, rec)
	require.Len(t, o.ReturnRequest.Attachments, 1)

	rec = do(t, h, http.MethodPost, "/orders/ORD-1/return/attachments", `{"name": "no uri"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/orders/ORD-1/return/status", `{"status": "approved"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, order.ReturnApproved, decodeOrder(t, rec).ReturnRequest.Status)

	rec = do(t, h, http.MethodPost, "/orders/ORD-404/return", `{"type": "refund"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogisticsEndpoints(t *testing.T) {
	h := newTestHandler(t)
	do(t, h, http.MethodPost, "/orders", placeBody)

	rec := do(t, h, http.MethodPost, "/orders/ORD-1/logistics", `{"type": "posted", "title": "Package posted", "location": "São Paulo, SP"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	o := decodeOrder(t, rec)
	require.Len(t, o.LogisticsEvents, 1)
	assert.Equal(t, order.LogisticsPosted, o.LogisticsEvents[0].Type)

	rec = do(t, h, http.MethodPut, "/orders/ORD-1/tracking", `{"code": "BR123456789XX"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BR123456789XX", decodeOrder(t, rec).TrackingCode)

	rec = do(t, h, http.MethodDelete, "/orders/ORD-1/logistics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeOrder(t, rec).LogisticsEvents)
}

func TestInvoiceEndpoints(t *testing.T) {
	h := newTestHandler(t)
	do(t, h, http.MethodPost, "/orders", placeBody)

	rec := do(t, h, http.MethodPost, "/orders/ORD-1/invoice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	o := decodeOrder(t, rec)
	require.NotNil(t, o.Invoice)
	assert.Equal(t, order.InvoiceIssued, o.Invoice.Status)

	rec = do(t, h, http.MethodDelete, "/orders/ORD-1/invoice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, order.InvoiceAwaitingIssuance, decodeOrder(t, rec).Invoice.Status)
}

func TestNotificationEndpoints(t *testing.T) {
	h := newTestHandler(t)
	do(t, h, http.MethodPost, "/orders", placeBody)

	rec := do(t, h, http.MethodGet, "/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var inbox []notification.Notification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inbox))
	require.Len(t, inbox, 1)

	rec = do(t, h, http.MethodGet, "/notifications/unread-count", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var count map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &count))
	assert.Equal(t, 1, count["unread"])

	rec = do(t, h, http.MethodPost, "/notifications/"+inbox[0].ID+"/read", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodPost, "/notifications/NTF-404/read", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/notifications/read-all", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodDelete, "/notifications", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}
