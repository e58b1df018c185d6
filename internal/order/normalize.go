package order

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// The persisted schema has drifted across app versions and there is no
// migration mechanism. Every read therefore passes through a lenient
// decode stage (the flex* types below accept the shapes older versions
// wrote) followed by Normalize, which repairs what it can and rejects
// what it cannot.

// flexString decodes from a JSON string, number or null.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		*s = ""
		return nil
	}
	switch t := v.(type) {
	case string:
		*s = flexString(t)
	case float64:
		*s = flexString(strconv.FormatFloat(t, 'f', -1, 64))
	default:
		*s = ""
	}
	return nil
}

// flexFloat decodes from a JSON number, a numeric string or null;
// anything else becomes 0.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		*f = 0
		return nil
	}
	switch t := v.(type) {
	case float64:
		*f = flexFloat(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat(parsed)
	default:
		*f = 0
	}
	return nil
}

// flexTime decodes from an ISO-8601 string; invalid or missing values
// stay zero and are defaulted by Normalize.
type flexTime struct {
	time.Time
}

func (t *flexTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t.Time = time.Time{}
		return nil
	}
	t.Time = parsed
	return nil
}

type rawItem struct {
	ProductID flexString `json:"product_id"`
	Title     flexString `json:"title"`
	UnitPrice flexFloat  `json:"unit_price"`
	Quantity  flexFloat  `json:"quantity"`
}

type rawHistoryEntry struct {
	Status    flexString `json:"status"`
	ChangedAt flexTime   `json:"changed_at"`
}

type rawReview struct {
	Stars     flexFloat  `json:"stars"`
	Comment   flexString `json:"comment"`
	UpdatedAt flexTime   `json:"updated_at"`
}

type rawAttachment struct {
	URI     flexString `json:"uri"`
	Name    flexString `json:"name"`
	AddedAt flexTime   `json:"added_at"`
}

type rawReturnRequest struct {
	Protocol    flexString      `json:"protocol"`
	Type        flexString      `json:"type"`
	Reason      flexString      `json:"reason"`
	Status      flexString      `json:"status"`
	CreatedAt   flexTime        `json:"created_at"`
	Attachments []rawAttachment `json:"attachments"`
}

type rawLogisticsEvent struct {
	ID          flexString `json:"id"`
	Type        flexString `json:"type"`
	Title       flexString `json:"title"`
	Description flexString `json:"description"`
	Location    flexString `json:"location"`
	CreatedAt   flexTime   `json:"created_at"`
}

type rawInvoice struct {
	Status      flexString `json:"status"`
	IssuedAt    *flexTime  `json:"issued_at"`
	Number      flexString `json:"number"`
	Series      flexString `json:"series"`
	AccessKey   flexString `json:"access_key"`
	DocumentURL flexString `json:"document_url"`
}

type rawOrder struct {
	ID            flexString `json:"id"`
	Status        flexString `json:"status"`
	Items         []rawItem  `json:"items"`
	Subtotal      *flexFloat `json:"subtotal"`
	Discount      flexFloat  `json:"discount"`
	ShippingPrice flexFloat  `json:"shipping_price"`
	Total         *flexFloat `json:"total"`

	Address *Address   `json:"address"`
	Payment *Payment   `json:"payment"`
	Note    flexString `json:"note"`

	StatusHistory   []rawHistoryEntry   `json:"status_history"`
	Review          *rawReview          `json:"review"`
	ReturnRequest   *rawReturnRequest   `json:"return_request"`
	LogisticsEvents []rawLogisticsEvent `json:"logistics_events"`
	Invoice         *rawInvoice         `json:"invoice"`
	TrackingCode    flexString          `json:"tracking_code"`

	CreatedAt          flexTime  `json:"created_at"`
	LastAutoAdvancedAt *flexTime `json:"last_auto_advanced_at"`
}

func normalizeStatus(raw string) Status {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if s.Valid() {
		return s
	}
	return StatusCreated
}

func clampStars(v float64) int {
	stars := int(v)
	if stars < 1 {
		return 1
	}
	if stars > 5 {
		return 5
	}
	return stars
}

// Normalize decodes one persisted order record and repairs it into
// canonical shape. Records without an identifier, or that are not JSON
// objects at all, are rejected with ok=false. Missing timestamps
// default to now.
func Normalize(record json.RawMessage, now time.Time) (Order, bool) {
	var raw rawOrder
	if err := json.Unmarshal(record, &raw); err != nil {
		// Field-level type mismatches (a string where a sequence should
		// be, say) zero the offending field and the record is repaired
		// below. Anything else means the record is not an object.
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return Order{}, false
		}
	}

	id := strings.TrimSpace(string(raw.ID))
	if id == "" {
		return Order{}, false
	}

	items := make([]Item, 0, len(raw.Items))
	for _, it := range raw.Items {
		qty := int(it.Quantity)
		if qty < 1 {
			qty = 1
		}
		items = append(items, Item{
			ProductID: string(it.ProductID),
			Title:     string(it.Title),
			UnitPrice: float64(it.UnitPrice),
			Quantity:  qty,
		})
	}

	subtotal := 0.0
	if raw.Subtotal != nil {
		subtotal = float64(*raw.Subtotal)
	} else {
		for _, it := range items {
			subtotal += it.UnitPrice * float64(it.Quantity)
		}
	}

	discount := float64(raw.Discount)
	shipping := float64(raw.ShippingPrice)

	total := ComputeTotal(subtotal, discount, shipping)
	if raw.Total != nil {
		total = float64(*raw.Total)
	}

	createdAt := raw.CreatedAt.Time
	if createdAt.IsZero() {
		createdAt = now
	}

	history := make([]HistoryEntry, 0, len(raw.StatusHistory))
	for _, h := range raw.StatusHistory {
		at := h.ChangedAt.Time
		if at.IsZero() {
			at = now
		}
		history = append(history, HistoryEntry{
			Status:    normalizeStatus(string(h.Status)),
			ChangedAt: at,
		})
	}

	events := make([]LogisticsEvent, 0, len(raw.LogisticsEvents))
	for _, e := range raw.LogisticsEvents {
		id := strings.TrimSpace(string(e.ID))
		if id == "" {
			id = NewID("TRK")
		}
		at := e.CreatedAt.Time
		if at.IsZero() {
			at = now
		}
		typ := LogisticsEventType(strings.ToLower(string(e.Type)))
		switch typ {
		case LogisticsPosted, LogisticsInTransit, LogisticsOutForDelivery, LogisticsDelivered, LogisticsException:
		default:
			typ = LogisticsInTransit
		}
		title := string(e.Title)
		if title == "" {
			title = "Shipment update"
		}
		events = append(events, LogisticsEvent{
			ID:          id,
			Type:        typ,
			Title:       title,
			Description: string(e.Description),
			Location:    string(e.Location),
			CreatedAt:   at,
		})
	}

	var review *Review
	if raw.Review != nil {
		at := raw.Review.UpdatedAt.Time
		if at.IsZero() {
			at = now
		}
		review = &Review{
			Stars:     clampStars(float64(raw.Review.Stars)),
			Comment:   string(raw.Review.Comment),
			UpdatedAt: at,
		}
	}

	var retReq *ReturnRequest
	if raw.ReturnRequest != nil {
		protocol := strings.TrimSpace(string(raw.ReturnRequest.Protocol))
		if protocol == "" {
			protocol = NewID("RET")
		}
		typ := ReturnType(strings.ToLower(string(raw.ReturnRequest.Type)))
		if typ != ReturnExchange && typ != ReturnRefund {
			typ = ReturnExchange
		}
		status := ReturnStatus(strings.ToLower(string(raw.ReturnRequest.Status)))
		switch status {
		case ReturnUnderReview, ReturnApproved, ReturnRejected, ReturnCompleted:
		default:
			status = ReturnUnderReview
		}
		at := raw.ReturnRequest.CreatedAt.Time
		if at.IsZero() {
			at = now
		}
		attachments := make([]ReturnAttachment, 0, len(raw.ReturnRequest.Attachments))
		for _, a := range raw.ReturnRequest.Attachments {
			uri := strings.TrimSpace(string(a.URI))
			if uri == "" {
				continue
			}
			addedAt := a.AddedAt.Time
			if addedAt.IsZero() {
				addedAt = now
			}
			attachments = append(attachments, ReturnAttachment{
				URI:     uri,
				Name:    string(a.Name),
				AddedAt: addedAt,
			})
		}
		retReq = &ReturnRequest{
			Protocol:    protocol,
			Type:        typ,
			Reason:      string(raw.ReturnRequest.Reason),
			Status:      status,
			CreatedAt:   at,
			Attachments: attachments,
		}
	}

	var invoice *Invoice
	if raw.Invoice != nil {
		status := InvoiceStatus(strings.ToLower(string(raw.Invoice.Status)))
		if status != InvoiceIssued {
			status = InvoiceAwaitingIssuance
		}
		var issuedAt *time.Time
		if raw.Invoice.IssuedAt != nil && !raw.Invoice.IssuedAt.IsZero() {
			t := raw.Invoice.IssuedAt.Time
			issuedAt = &t
		}
		invoice = &Invoice{
			Status:      status,
			IssuedAt:    issuedAt,
			Number:      string(raw.Invoice.Number),
			Series:      string(raw.Invoice.Series),
			AccessKey:   string(raw.Invoice.AccessKey),
			DocumentURL: string(raw.Invoice.DocumentURL),
		}
	}

	var lastAuto *time.Time
	if raw.LastAutoAdvancedAt != nil && !raw.LastAutoAdvancedAt.IsZero() {
		t := raw.LastAutoAdvancedAt.Time
		lastAuto = &t
	}

	return Order{
		ID:                 id,
		Status:             normalizeStatus(string(raw.Status)),
		Items:              items,
		Subtotal:           subtotal,
		Discount:           discount,
		ShippingPrice:      shipping,
		Total:              total,
		Address:            raw.Address,
		Payment:            raw.Payment,
		Note:               string(raw.Note),
		StatusHistory:      history,
		Review:             review,
		ReturnRequest:      retReq,
		LogisticsEvents:    events,
		Invoice:            invoice,
		TrackingCode:       string(raw.TrackingCode),
		CreatedAt:          createdAt,
		LastAutoAdvancedAt: lastAuto,
	}, true
}
