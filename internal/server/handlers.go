package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/plugaishop/ordercore/internal/engine"
	"github.com/plugaishop/ordercore/internal/metrics"
	"github.com/plugaishop/ordercore/internal/order"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeEngineError(w http.ResponseWriter, op string, err error) {
	metrics.OperationErrorsTotal.WithLabelValues(op).Inc()
	switch {
	case errors.Is(err, engine.ErrOrderNotFound), errors.Is(err, engine.ErrNotificationNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrReturnAlreadyOpen):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func orderID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Orders(r.Context()))
}

type placeOrderRequest struct {
	ID            string         `json:"id"`
	Items         []order.Item   `json:"items"`
	Subtotal      float64        `json:"subtotal"`
	Discount      float64        `json:"discount"`
	ShippingPrice float64        `json:"shipping_price"`
	Total         *float64       `json:"total"`
	Address       *order.Address `json:"address"`
	Payment       *order.Payment `json:"payment"`
	Note          string         `json:"note"`
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := s.engine.PlaceOrder(r.Context(), order.Draft{
		ID:            req.ID,
		Items:         req.Items,
		Subtotal:      req.Subtotal,
		Discount:      req.Discount,
		ShippingPrice: req.ShippingPrice,
		Total:         req.Total,
		Address:       req.Address,
		Payment:       req.Payment,
		Note:          req.Note,
	})
	if err != nil {
		writeEngineError(w, "place_order", err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) handleClearOrders(w http.ResponseWriter, r *http.Request) {
	s.engine.ClearOrders(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.engine.Order(r.Context(), orderID(r))
	if err != nil {
		writeEngineError(w, "get_order", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleAdvanceOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.engine.AdvanceOrder(r.Context(), orderID(r))
	if err != nil {
		writeEngineError(w, "advance_order", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.engine.CancelOrder(r.Context(), orderID(r))
	if err != nil {
		writeEngineError(w, "cancel_order", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type reviewRequest struct {
	Stars   int    `json:"stars"`
	Comment string `json:"comment"`
}

func (s *Server) handleSetReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	o, err := s.engine.SetReview(r.Context(), orderID(r), req.Stars, req.Comment)
	if err != nil {
		writeEngineError(w, "set_review", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type returnRequest struct {
	Type   order.ReturnType `json:"type"`
	Reason string           `json:"reason"`
}

func (s *Server) handleCreateReturn(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	o, err := s.engine.CreateReturnRequest(r.Context(), orderID(r), req.Type, req.Reason)
	if err != nil {
		writeEngineError(w, "create_return", err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

type attachmentRequest struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

func (s *Server) handleAddReturnAttachment(w http.ResponseWriter, r *http.Request) {
	var req attachmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URI == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	o, err := s.engine.AddReturnAttachment(r.Context(), orderID(r), req.URI, req.Name)
	if err != nil {
		writeEngineError(w, "add_return_attachment", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type returnStatusRequest struct {
	Status order.ReturnStatus `json:"status"`
}

func (s *Server) handleUpdateReturnStatus(w http.ResponseWriter, r *http.Request) {
	var req returnStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	o, err := s.engine.UpdateReturnStatus(r.Context(), orderID(r), req.Status)
	if err != nil {
		writeEngineError(w, "update_return_status", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type logisticsEventRequest struct {
	Type        order.LogisticsEventType `json:"type"`
	Title       string                   `json:"title"`
	Description string                   `json:"description"`
	Location    string                   `json:"location"`
}

func (s *Server) handleAddLogisticsEvent(w http.ResponseWriter, r *http.Request) {
	var req logisticsEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	o, err := s.engine.AddLogisticsEvent(r.Context(), orderID(r), req.Type, req.Title, req.Description, req.Location)
	if err != nil {
		writeEngineError(w, "add_logistics_event", err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) handleClearLogisticsEvents(w http.ResponseWriter, r *http.Request) {
	o, err := s.engine.ClearLogisticsEvents(r.Context(), orderID(r))
	if err != nil {
		writeEngineError(w, "clear_logistics_events", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type trackingRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleSetTrackingCode(w http.ResponseWriter, r *http.Request) {
	var req trackingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	o, err := s.engine.SetTrackingCode(r.Context(), orderID(r), req.Code)
	if err != nil {
		writeEngineError(w, "set_tracking_code", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleIssueInvoice(w http.ResponseWriter, r *http.Request) {
	o, err := s.engine.IssueInvoice(r.Context(), orderID(r))
	if err != nil {
		writeEngineError(w, "issue_invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleClearInvoice(w http.ResponseWriter, r *http.Request) {
	o, err := s.engine.ClearInvoice(r.Context(), orderID(r))
	if err != nil {
		writeEngineError(w, "clear_invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Notifications(r.Context()))
}

func (s *Server) handleClearNotifications(w http.ResponseWriter, r *http.Request) {
	s.engine.ClearNotifications(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"unread": s.engine.UnreadNotifications(r.Context())})
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	s.engine.MarkAllNotificationsRead(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.MarkNotificationRead(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeEngineError(w, "mark_notification_read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
