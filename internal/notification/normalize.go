package notification

import (
	"encoding/json"
	"strings"
	"time"
)

type rawNotification struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Type      string `json:"type"`
	OrderID   string `json:"order_id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Read      bool   `json:"read"`
}

// Normalize repairs one persisted notification record. Records without
// an identifier are rejected.
func Normalize(record json.RawMessage, now time.Time) (Notification, bool) {
	var raw rawNotification
	if err := json.Unmarshal(record, &raw); err != nil {
		return Notification{}, false
	}

	id := strings.TrimSpace(raw.ID)
	if id == "" {
		return Notification{}, false
	}

	createdAt, err := time.Parse(time.RFC3339Nano, raw.CreatedAt)
	if err != nil {
		createdAt = now
	}

	typ := Type(strings.ToLower(raw.Type))
	switch typ {
	case TypeOrderStatus, TypeInvoice, TypeTracking, TypeReturn, TypeReview:
	default:
		typ = TypeGeneric
	}

	title := raw.Title
	if title == "" {
		title = "Update"
	}

	return Notification{
		ID:        id,
		CreatedAt: createdAt,
		Type:      typ,
		OrderID:   raw.OrderID,
		Title:     title,
		Body:      raw.Body,
		Read:      raw.Read,
	}, true
}
