package order

import "time"

type Status string

const (
	StatusCreated        Status = "created"
	StatusPaymentPending Status = "payment_pending"
	StatusPaid           Status = "paid"
	StatusProcessing     Status = "processing"
	StatusShipped        Status = "shipped"
	StatusDelivered      Status = "delivered"
	StatusCanceled       Status = "canceled"
)

// flow is the forward-only fulfillment sequence. Canceled sits outside
// of it and is reachable only through Cancel.
var flow = []Status{
	StatusCreated,
	StatusPaymentPending,
	StatusPaid,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
}

// Index returns the position of s in the fulfillment flow, or -1 for
// Canceled and unknown values.
func (s Status) Index() int {
	for i, st := range flow {
		if st == s {
			return i
		}
	}
	return -1
}

func (s Status) Valid() bool {
	return s == StatusCanceled || s.Index() >= 0
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCanceled
}

func (s Status) Label() string {
	switch s {
	case StatusCreated:
		return "Created"
	case StatusPaymentPending:
		return "Payment pending"
	case StatusPaid:
		return "Paid"
	case StatusProcessing:
		return "Processing"
	case StatusShipped:
		return "Shipped"
	case StatusDelivered:
		return "Delivered"
	case StatusCanceled:
		return "Canceled"
	default:
		return string(s)
	}
}

// NextStatus returns the state that follows current in the flow.
// Terminal and unknown states map to themselves.
func NextStatus(current Status) Status {
	idx := current.Index()
	if idx < 0 || idx >= len(flow)-1 {
		return current
	}
	return flow[idx+1]
}

// Advance moves o one step forward in the flow and appends the matching
// history entry. Terminal orders are returned unchanged. Persistence is
// the caller's responsibility.
func Advance(o Order, now time.Time) Order {
	if o.Status.Terminal() {
		return o
	}
	next := NextStatus(o.Status)
	if next == o.Status {
		return o
	}
	o.Status = next
	o.StatusHistory = append(o.StatusHistory, HistoryEntry{Status: next, ChangedAt: now})
	return o
}

// Cancel moves o to the terminal Canceled state from any non-terminal
// state. Already-terminal orders are returned unchanged.
func Cancel(o Order, now time.Time) Order {
	if o.Status.Terminal() {
		return o
	}
	o.Status = StatusCanceled
	o.StatusHistory = append(o.StatusHistory, HistoryEntry{Status: StatusCanceled, ChangedAt: now})
	return o
}
