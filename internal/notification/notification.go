package notification

import (
	"fmt"
	"time"

	"github.com/plugaishop/ordercore/internal/order"
)

type Type string

const (
	TypeOrderStatus Type = "order_status"
	TypeInvoice     Type = "invoice"
	TypeTracking    Type = "tracking"
	TypeReturn      Type = "return"
	TypeReview      Type = "review"
	TypeGeneric     Type = "generic"
)

// Notification is a short-lived user-facing record shown in the in-app
// inbox. Read state is flipped by explicit mark-read calls.
type Notification struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Type      Type      `json:"type"`
	OrderID   string    `json:"order_id,omitempty"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
}

func newNotification(t Type, orderID, title, body string, now time.Time) Notification {
	return Notification{
		ID:        order.NewID("NTF"),
		CreatedAt: now,
		Type:      t,
		OrderID:   orderID,
		Title:     title,
		Body:      body,
	}
}

func statusBody(s order.Status) string {
	switch s {
	case order.StatusPaymentPending:
		return "Waiting for payment confirmation."
	case order.StatusPaid:
		return "Payment approved."
	case order.StatusProcessing:
		return "Your order is being prepared."
	case order.StatusShipped:
		return "Your order is on its way."
	case order.StatusDelivered:
		return "Your order has been delivered."
	case order.StatusCanceled:
		return "Your order has been canceled."
	default:
		return "Your order has been confirmed."
	}
}

// ForStatusChange summarizes a status transition for the inbox.
func ForStatusChange(orderID string, from, to order.Status, now time.Time) Notification {
	title := fmt.Sprintf("Order %s: %s", orderID, to.Label())
	body := fmt.Sprintf("%s Status changed from %s to %s.", statusBody(to), from.Label(), to.Label())
	return newNotification(TypeOrderStatus, orderID, title, body, now)
}

func ForOrderPlaced(orderID string, now time.Time) Notification {
	return newNotification(TypeOrderStatus, orderID,
		"Order confirmed",
		"Your order was registered. Track it under Orders.",
		now)
}

func ForReview(orderID string, now time.Time) Notification {
	return newNotification(TypeReview, orderID,
		"Review received",
		"Thanks for rating your purchase.",
		now)
}

func ForReturnRequested(orderID string, req order.ReturnRequest, now time.Time) Notification {
	kind := "exchange"
	if req.Type == order.ReturnRefund {
		kind = "refund"
	}
	return newNotification(TypeReturn, orderID,
		"Return request registered",
		fmt.Sprintf("Your %s request was opened under protocol %s.", kind, req.Protocol),
		now)
}

func ForReturnStatus(orderID string, status order.ReturnStatus, now time.Time) Notification {
	var body string
	switch status {
	case order.ReturnApproved:
		body = "Your return request was approved."
	case order.ReturnRejected:
		body = "Your return request was rejected."
	case order.ReturnCompleted:
		body = "Your return request was completed."
	default:
		body = "Your return request is under review."
	}
	return newNotification(TypeReturn, orderID, "Return request updated", body, now)
}

func ForLogisticsEvent(orderID string, ev order.LogisticsEvent, now time.Time) Notification {
	body := ev.Title
	if ev.Location != "" {
		body = fmt.Sprintf("%s (%s)", ev.Title, ev.Location)
	}
	return newNotification(TypeTracking, orderID, "Shipment update", body, now)
}

func ForTrackingCode(orderID, code string, now time.Time) Notification {
	return newNotification(TypeTracking, orderID,
		"Tracking code updated",
		fmt.Sprintf("Follow your shipment with code %s.", code),
		now)
}

func ForInvoiceIssued(orderID string, inv order.Invoice, now time.Time) Notification {
	return newNotification(TypeInvoice, orderID,
		"Invoice issued",
		fmt.Sprintf("Invoice %s is available on your order page.", inv.Number),
		now)
}
