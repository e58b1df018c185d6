package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Item struct {
	ProductID string  `json:"product_id"`
	Title     string  `json:"title"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

type Address struct {
	Name         string `json:"name,omitempty"`
	Street       string `json:"street,omitempty"`
	Number       string `json:"number,omitempty"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Zip          string `json:"zip,omitempty"`
}

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPending PaymentStatus = "pending"
	PaymentFailed  PaymentStatus = "failed"
)

type Payment struct {
	Method string        `json:"method,omitempty"`
	Status PaymentStatus `json:"status,omitempty"`
}

type HistoryEntry struct {
	Status    Status    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
}

type Review struct {
	Stars     int       `json:"stars"`
	Comment   string    `json:"comment,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ReturnType string

const (
	ReturnExchange ReturnType = "exchange"
	ReturnRefund   ReturnType = "refund"
)

type ReturnStatus string

const (
	ReturnUnderReview ReturnStatus = "under_review"
	ReturnApproved    ReturnStatus = "approved"
	ReturnRejected    ReturnStatus = "rejected"
	ReturnCompleted   ReturnStatus = "completed"
)

type ReturnAttachment struct {
	URI     string    `json:"uri"`
	Name    string    `json:"name,omitempty"`
	AddedAt time.Time `json:"added_at"`
}

type ReturnRequest struct {
	Protocol    string             `json:"protocol"`
	Type        ReturnType         `json:"type"`
	Reason      string             `json:"reason,omitempty"`
	Status      ReturnStatus       `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	Attachments []ReturnAttachment `json:"attachments"`
}

// Open reports whether the request still blocks a new one.
func (r *ReturnRequest) Open() bool {
	if r == nil {
		return false
	}
	return r.Status == ReturnUnderReview || r.Status == ReturnApproved
}

type LogisticsEventType string

const (
	LogisticsPosted         LogisticsEventType = "posted"
	LogisticsInTransit      LogisticsEventType = "in_transit"
	LogisticsOutForDelivery LogisticsEventType = "out_for_delivery"
	LogisticsDelivered      LogisticsEventType = "delivered"
	LogisticsException      LogisticsEventType = "exception"
)

type LogisticsEvent struct {
	ID          string             `json:"id"`
	Type        LogisticsEventType `json:"type"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Location    string             `json:"location,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

type InvoiceStatus string

const (
	InvoiceAwaitingIssuance InvoiceStatus = "awaiting_issuance"
	InvoiceIssued           InvoiceStatus = "issued"
)

type Invoice struct {
	Status      InvoiceStatus `json:"status"`
	IssuedAt    *time.Time    `json:"issued_at,omitempty"`
	Number      string        `json:"number,omitempty"`
	Series      string        `json:"series,omitempty"`
	AccessKey   string        `json:"access_key,omitempty"`
	DocumentURL string        `json:"document_url,omitempty"`
}

type Order struct {
	ID            string  `json:"id"`
	Status        Status  `json:"status"`
	Items         []Item  `json:"items"`
	Subtotal      float64 `json:"subtotal"`
	Discount      float64 `json:"discount"`
	ShippingPrice float64 `json:"shipping_price"`
	Total         float64 `json:"total"`

	Address *Address `json:"address,omitempty"`
	Payment *Payment `json:"payment,omitempty"`
	Note    string   `json:"note,omitempty"`

	StatusHistory   []HistoryEntry   `json:"status_history"`
	Review          *Review          `json:"review,omitempty"`
	ReturnRequest   *ReturnRequest   `json:"return_request,omitempty"`
	LogisticsEvents []LogisticsEvent `json:"logistics_events"`
	Invoice         *Invoice         `json:"invoice,omitempty"`
	TrackingCode    string           `json:"tracking_code,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// LastAutoAdvancedAt gates the simulated status progression.
	LastAutoAdvancedAt *time.Time `json:"last_auto_advanced_at,omitempty"`
}

// ComputeTotal derives an order total from its financial parts. The
// result never goes below zero.
func ComputeTotal(subtotal, discount, shippingPrice float64) float64 {
	total := subtotal - discount + shippingPrice
	if total < 0 {
		return 0
	}
	return total
}

// NewID builds an identifier like ORD-1A2B3C4D with the given prefix.
func NewID(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(raw[:8]))
}

// Draft is the shape handed over by the checkout promotion step. The
// engine owns the record from this point on.
type Draft struct {
	ID            string
	Items         []Item
	Subtotal      float64
	Discount      float64
	ShippingPrice float64
	// Total overrides the derived total when non-nil.
	Total   *float64
	Address *Address
	Payment *Payment
	Note    string
}

// FromDraft promotes a checkout draft into a tracked order. Orders
// whose payment already settled skip straight to Paid; everything else
// starts at Created and moves forward through the flow.
func FromDraft(d Draft, now time.Time) Order {
	id := strings.TrimSpace(d.ID)
	if id == "" {
		id = NewID("ORD")
	}

	status := StatusCreated
	history := []HistoryEntry{{Status: StatusCreated, ChangedAt: now}}
	if d.Payment != nil && d.Payment.Status == PaymentPaid {
		status = StatusPaid
		history = append(history, HistoryEntry{Status: StatusPaid, ChangedAt: now})
	}

	total := ComputeTotal(d.Subtotal, d.Discount, d.ShippingPrice)
	if d.Total != nil {
		total = *d.Total
	}

	items := d.Items
	if items == nil {
		items = []Item{}
	}

	return Order{
		ID:              id,
		Status:          status,
		Items:           items,
		Subtotal:        d.Subtotal,
		Discount:        d.Discount,
		ShippingPrice:   d.ShippingPrice,
		Total:           total,
		Address:         d.Address,
		Payment:         d.Payment,
		Note:            d.Note,
		StatusHistory:   history,
		LogisticsEvents: []LogisticsEvent{},
		CreatedAt:       now,
	}
}
