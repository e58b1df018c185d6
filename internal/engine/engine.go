package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/plugaishop/ordercore/internal/analytics"
	"github.com/plugaishop/ordercore/internal/bus"
	"github.com/plugaishop/ordercore/internal/metrics"
	"github.com/plugaishop/ordercore/internal/notification"
	"github.com/plugaishop/ordercore/internal/order"
	"github.com/plugaishop/ordercore/internal/storage"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrEmptyOrder           = errors.New("order has no items")
	ErrReturnAlreadyOpen    = errors.New("return request already open")
	ErrNoReturnRequest      = errors.New("no return request for order")
	ErrInvalidReturnType    = errors.New("invalid return type")
)

// Engine ties the order collection, the notification inbox, the dedup
// guard, the change bus and the analytics sink together. Every mutation
// follows the same sequence: read collection, modify, write collection,
// best-effort notification, bus signal, fire-and-forget analytics.
// Notification and analytics failures never roll back the mutation.
type Engine struct {
	orders        *storage.OrderStore
	notifications *storage.NotificationStore
	guard         *notification.Guard
	bus           *bus.Bus
	sink          analytics.Sink
	policy        *order.AutoProgress

	timeNow func() time.Time
}

func New(
	orders *storage.OrderStore,
	notifications *storage.NotificationStore,
	guard *notification.Guard,
	changeBus *bus.Bus,
	sink analytics.Sink,
) *Engine {
	return &Engine{
		orders:        orders,
		notifications: notifications,
		guard:         guard,
		bus:           changeBus,
		sink:          sink,
		policy:        order.NewAutoProgress(),
		timeNow:       time.Now,
	}
}

// Orders returns every order, normalized, newest first.
func (e *Engine) Orders(_ context.Context) []order.Order {
	return e.orders.List()
}

// Order returns one order by id.
func (e *Engine) Order(_ context.Context, id string) (*order.Order, error) {
	o := e.orders.GetByID(id)
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// PlaceOrder promotes a checkout draft into a tracked order.
func (e *Engine) PlaceOrder(ctx context.Context, d order.Draft) (*order.Order, error) {
	if len(d.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	o := order.FromDraft(d, e.timeNow())
	return e.AddOrder(ctx, o)
}

// AddOrder stores a fully-formed order coming from the promotion step.
// A record with the same id is replaced.
func (e *Engine) AddOrder(ctx context.Context, o order.Order) (*order.Order, error) {
	now := e.timeNow()
	if len(o.StatusHistory) == 0 {
		o.StatusHistory = []order.HistoryEntry{{Status: o.Status, ChangedAt: o.CreatedAt}}
	}
	e.orders.Add(o)
	metrics.OrdersCreatedTotal.Inc()

	e.emit(notification.ForOrderPlaced(o.ID, now))
	e.guard.Record(o.ID, o.Status)
	e.bus.Publish()
	e.track(ctx, "order_placed", o.ID, map[string]string{"status": string(o.Status)})
	return &o, nil
}

// ClearOrders drops the whole collection. Debug and test affordance.
func (e *Engine) ClearOrders(ctx context.Context) {
	e.orders.Clear()
	e.guard.Reset()
	e.bus.Publish()
	e.track(ctx, "orders_cleared", "", nil)
}

// AdvanceOrder moves an order one step forward in the fulfillment flow,
// bypassing the auto-progress cooldown. Terminal orders are returned
// unchanged.
func (e *Engine) AdvanceOrder(ctx context.Context, id string) (*order.Order, error) {
	now := e.timeNow()
	var from, to order.Status
	updated := e.orders.Update(id, func(o *order.Order) {
		from = o.Status
		*o = order.Advance(*o, now)
		to = o.Status
	})
	if updated == nil {
		return nil, ErrOrderNotFound
	}
	if to != from {
		metrics.StatusAdvancesTotal.WithLabelValues("manual").Inc()
		e.notifyStatusChange(updated.ID, from, to, now)
		e.bus.Publish()
		e.track(ctx, "order_status_advanced", id, map[string]string{
			"from": string(from), "to": string(to), "trigger": "manual",
		})
	}
	return updated, nil
}

// CancelOrder moves an order to the terminal Canceled state.
func (e *Engine) CancelOrder(ctx context.Context, id string) (*order.Order, error) {
	now := e.timeNow()
	var from, to order.Status
	updated := e.orders.Update(id, func(o *order.Order) {
		from = o.Status
		*o = order.Cancel(*o, now)
		to = o.Status
	})
	if updated == nil {
		return nil, ErrOrderNotFound
	}
	if to != from {
		e.notifyStatusChange(updated.ID, from, to, now)
		e.bus.Publish()
		e.track(ctx, "order_canceled", id, map[string]string{"from": string(from)})
	}
	return updated, nil
}

// AutoProgressPass inspects every order once and advances the eligible
// ones that are outside their cooldown window. Returns the number of
// orders advanced.
func (e *Engine) AutoProgressPass(ctx context.Context) int {
	orders := e.orders.List()
	if len(orders) == 0 {
		return 0
	}

	type change struct {
		id       string
		from, to order.Status
	}
	var changes []change
	for i := range orders {
		from := orders[i].Status
		advanced, ok := e.policy.Inspect(orders[i])
		if !ok {
			continue
		}
		orders[i] = advanced
		changes = append(changes, change{id: advanced.ID, from: from, to: advanced.Status})
	}
	if len(changes) == 0 {
		return 0
	}

	e.orders.Set(orders)
	now := e.timeNow()
	for _, c := range changes {
		metrics.StatusAdvancesTotal.WithLabelValues("auto").Inc()
		e.notifyStatusChange(c.id, c.from, c.to, now)
		e.track(ctx, "order_status_advanced", c.id, map[string]string{
			"from": string(c.from), "to": string(c.to), "trigger": "auto",
		})
	}
	e.bus.Publish()
	return len(changes)
}

// SetReview records a 1-5 star review on an order. Re-submission
// overwrites the previous review.
func (e *Engine) SetReview(ctx context.Context, id string, stars int, comment string) (*order.Order, error) {
	now := e.timeNow()
	if stars < 1 {
		stars = 1
	}
	if stars > 5 {
		stars = 5
	}
	updated := e.orders.Update(id, func(o *order.Order) {
		o.Review = &order.Review{Stars: stars, Comment: comment, UpdatedAt: now}
	})
	if updated == nil {
		return nil, ErrOrderNotFound
	}
	e.emit(notification.ForReview(id, now))
	e.bus.Publish()
	e.track(ctx, "review_submitted", id, map[string]string{"stars": fmt.Sprint(stars)})
	return updated, nil
}

// CreateReturnRequest opens an exchange or refund request. At most one
// request may be open per order; a second attempt while one is open is
// rejected.
func (e *Engine) CreateReturnRequest(ctx context.Context, id string, typ order.ReturnType, reason string) (*order.Order, error) {
	if typ != order.ReturnExchange && typ != order.ReturnRefund {
		return nil, ErrInvalidReturnType
	}

	existing := e.orders.GetByID(id)
	if existing == nil {
		return nil, ErrOrderNotFound
	}
	if existing.ReturnRequest.Open() {
		return nil, ErrReturnAlreadyOpen
	}

	now := e.timeNow()
	req := order.ReturnRequest{
		Protocol:    order.NewID("RET"),
		Type:        typ,
		Reason:      reason,
		Status:      order.ReturnUnderReview,
		CreatedAt:   now,
		Attachments: []order.ReturnAttachment{},
	}
	updated := e.orders.Update(id, func(o *order.Order) {
		o.ReturnRequest = &req
	})
	if updated == nil {
		return nil, ErrOrderNotFound
	}
	metrics.ReturnsRequestedTotal.Inc()
	e.emit(notification.ForReturnRequested(id, req, now))
	e.bus.Publish()
	e.track(ctx, "return_requested", id, map[string]string{
		"type": string(typ), "protocol": req.Protocol,
	})
	return updated, nil
}

// AddReturnAttachment appends an attachment to an open return request,
// newest first.
func (e *Engine) AddReturnAttachment(ctx context.Context, id, uri, name string) (*order.Order, error) {
	existing := e.orders.GetByID(id)
	if existing == nil {
		return nil, ErrOrderNotFound
	}
	if !existing.ReturnRequest.Open() {
		return nil, ErrNoReturnRequest
	}

	now := e.timeNow()
	att := order.ReturnAttachment{URI: uri, Name: name, AddedAt: now}
	updated := e.orders.Update(id, func(o *order.Order) {
		if o.ReturnRequest == nil {
			return
		}
		o.ReturnRequest.Attachments = append(
			[]order.ReturnAttachment{att}, o.ReturnRequest.Attachments...)
	})
	if updated == nil {
		return nil, ErrOrderNotFound
	}
	e.bus.Publish()
	e.track(ctx, "return_attachment_added", id, nil)
	return updated, nil
}

// UpdateReturnStatus moves a return request through its review states.
func (e *Engine) UpdateReturnStatus(ctx context.Context, id string, status order.ReturnStatus) (*order.Order, error) {
	switch status {
	case order.ReturnUnderReview, order.ReturnApproved, order.ReturnRejected, order.ReturnCompleted:
	default:
		return nil, fmt.Errorf("unknown return status %q", status)
	}

	existing := e.orders.GetByID(id)
	if existing == nil {
		return nil, ErrOrderNotFound
	}
	if existing.ReturnRequest == nil {
		return nil, ErrNoReturnRequest
	}

	now := e.timeNow()
	updated := e.orders.Update(id, func(o *order.Order) {
		if o.ReturnRequest != nil {
			o.ReturnRequest.Status = status
		}
	})
	if updated == nil {
		return nil, ErrOrderNotFound
	}
	e.emit(notification.ForReturnStatus(id, status, now))
	e.bus.Publish()
	e.track(ctx, "return_status_updated", id, map[string]string{"status": string(status)})
	return updated, nil
}

// AddLogisticsEvent prepends a carrier milestone to the shipment log.
func (e *Engine) AddLogisticsEvent(ctx context.Context, id string, typ order.LogisticsEventType, title, description, location string) (*order.Order, error) {
	now := e.timeNow()
	if title == "" {
		title = "Shipment update"
	}
	ev := order.LogisticsEvent{
		ID:          order.NewID("TRK"),
		Type:        typ,
		Title:       title,
		Description: description,
		Location:    location,
		CreatedAt:   now,
	}
	updated := e.orders.Update(id, func(o *order.Order) {
		o.LogisticsEvents = append([]order.LogisticsEvent{ev}, o.LogisticsEvents...)
	})
	if updated == nil {
		return nil, ErrOrderNotFound
	}
	e.emit(notification.ForLogisticsEvent(id, ev, now))
	e.bus.Publish()
	e.track(ctx, "logistics_event_added", id, map[string]string{"type": string(typ)})
	return updated, nil
}

// ClearLogisticsEvents empties the shipment log. Debug and test
// affordance.
func (e *Engine) ClearLogisticsEvents(ctx context.Context, id string) (*order.Order, error) {
	updated := e.orders.Update(id, func(o *order.Order) {
		o.LogisticsEvents = []order.LogisticsEvent{}
	})
	if updated == nil {
		return nil, ErrOrderNotFound
	}
	e.bus.Publish()
	e.track(ctx, "logistics_events_cleared", id, nil)
	return updated, nil
}

// SetTrackingCode stores the carrier tracking identifier, independent
// of the shipment event log.
func (e *Engine) SetTrackingCode(ctx context.Context, id, code string) (*order.Order, error) {
	now := e.timeNow()
	code = strings.TrimSpace(code)
	updated := e.orders.Update(id, func(o *order.Order) {
		o.TrackingCode = code
	})
	if updated == nil {
		return nil, ErrOrderNotFound
	}
	if code != "" {
		e.emit(notification.ForTrackingCode(id, code, now))
	}
	e.bus.Publish()
	e.track(ctx, "tracking_code_set", id, nil)
	return updated, nil
}

// IssueInvoice fabricates a local invoice document for the order.
func (e *Engine) IssueInvoice(ctx context.Context, id string) (*order.Order, error) {
	now := e.timeNow()
	inv := order.Invoice{
		Status:      order.InvoiceIssued,
		IssuedAt:    &now,
		Number:      fmt.Sprintf("%09d", rand.Intn(1_000_000_000)),
		Series:      "1",
		AccessKey:   randomDigits(44),
		DocumentURL: "https://example.com/danfe.pdf",
	}
	updated := e.orders.Update(id, func(o *order.Order) {
		o.Invoice = &inv
	})
	if updated == nil {
		return nil, ErrOrderNotFound
	}
	e.emit(notification.ForInvoiceIssued(id, inv, now))
	e.bus.Publish()
	e.track(ctx, "invoice_issued", id, map[string]string{"number": inv.Number})
	return updated, nil
}

// ClearInvoice resets the invoice to awaiting issuance.
func (e *Engine) ClearInvoice(ctx context.Context, id string) (*order.Order, error) {
	updated := e.orders.Update(id, func(o *order.Order) {
		o.Invoice = &order.Invoice{Status: order.InvoiceAwaitingIssuance}
	})
	if updated == nil {
		return nil, ErrOrderNotFound
	}
	e.bus.Publish()
	e.track(ctx, "invoice_cleared", id, nil)
	return updated, nil
}

// Notifications returns the inbox, newest first.
func (e *Engine) Notifications(_ context.Context) []notification.Notification {
	return e.notifications.List()
}

func (e *Engine) MarkNotificationRead(_ context.Context, id string) error {
	if !e.notifications.MarkRead(id) {
		return ErrNotificationNotFound
	}
	e.bus.Publish()
	return nil
}

func (e *Engine) MarkAllNotificationsRead(_ context.Context) {
	e.notifications.MarkAllRead()
	e.bus.Publish()
}

func (e *Engine) UnreadNotifications(_ context.Context) int {
	return e.notifications.UnreadCount()
}

func (e *Engine) ClearNotifications(_ context.Context) {
	e.notifications.Clear()
	e.bus.Publish()
}

// notifyStatusChange emits a status notification unless the guard saw
// this status already.
func (e *Engine) notifyStatusChange(orderID string, from, to order.Status, now time.Time) {
	if !e.guard.ShouldNotify(orderID, to) {
		metrics.NotificationsSuppressedTotal.Inc()
		return
	}
	e.emit(notification.ForStatusChange(orderID, from, to, now))
	e.guard.Record(orderID, to)
}

func (e *Engine) emit(n notification.Notification) {
	e.notifications.Add(n)
	metrics.NotificationsEmittedTotal.Inc()
}

// track sends an analytics event. The sink is a side effect: errors and
// panics are swallowed so they can never affect the state change that
// triggered them.
func (e *Engine) track(ctx context.Context, name, orderID string, fields map[string]string) {
	defer func() {
		if r := recover(); r != nil {
			zap.S().Warnw("analytics sink panicked", "event", name, "panic", r)
		}
	}()
	ev := analytics.Event{Name: name, OrderID: orderID, At: e.timeNow(), Fields: fields}
	if err := e.sink.Track(ctx, ev); err != nil {
		zap.S().Debugw("analytics event dropped", "event", name, "error", err)
	}
}

func randomDigits(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(byte('0' + rand.Intn(10)))
	}
	return b.String()
}
