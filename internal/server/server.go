package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/plugaishop/ordercore/internal/notification"
	"github.com/plugaishop/ordercore/internal/order"
)

// Engine is the order lifecycle surface the HTTP layer exposes. The
// handlers play the role the app screens play: they render state and
// forward user actions, nothing more.
type Engine interface {
	Orders(ctx context.Context) []order.Order
	Order(ctx context.Context, id string) (*order.Order, error)
	PlaceOrder(ctx context.Context, d order.Draft) (*order.Order, error)
	ClearOrders(ctx context.Context)
	AdvanceOrder(ctx context.Context, id string) (*order.Order, error)
	CancelOrder(ctx context.Context, id string) (*order.Order, error)
	SetReview(ctx context.Context, id string, stars int, comment string) (*order.Order, error)
	CreateReturnRequest(ctx context.Context, id string, typ order.ReturnType, reason string) (*order.Order, error)
	AddReturnAttachment(ctx context.Context, id, uri, name string) (*order.Order, error)
	UpdateReturnStatus(ctx context.Context, id string, status order.ReturnStatus) (*order.Order, error)
	AddLogisticsEvent(ctx context.Context, id string, typ order.LogisticsEventType, title, description, location string) (*order.Order, error)
	ClearLogisticsEvents(ctx context.Context, id string) (*order.Order, error)
	SetTrackingCode(ctx context.Context, id, code string) (*order.Order, error)
	IssueInvoice(ctx context.Context, id string) (*order.Order, error)
	ClearInvoice(ctx context.Context, id string) (*order.Order, error)
	Notifications(ctx context.Context) []notification.Notification
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context)
	UnreadNotifications(ctx context.Context) int
	ClearNotifications(ctx context.Context)
}

type Server struct {
	engine Engine
	server *http.Server
}

func New(engine Engine) *Server {
	return &Server{engine: engine}
}

func (s *Server) Run(port string) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	zap.S().Infow("server starting", "port", port)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	zap.S().Info("shutting down server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/orders", s.handleListOrders).Methods(http.MethodGet)
	r.HandleFunc("/orders", s.handlePlaceOrder).Methods(http.MethodPost)
	r.HandleFunc("/orders", s.handleClearOrders).Methods(http.MethodDelete)
	r.HandleFunc("/orders/{id}", s.handleGetOrder).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id}/advance", s.handleAdvanceOrder).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id}/cancel", s.handleCancelOrder).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id}/review", s.handleSetReview).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id}/return", s.handleCreateReturn).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id}/return/attachments", s.handleAddReturnAttachment).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id}/return/status", s.handleUpdateReturnStatus).Methods(http.MethodPut)
	r.HandleFunc("/orders/{id}/logistics", s.handleAddLogisticsEvent).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id}/logistics", s.handleClearLogisticsEvents).Methods(http.MethodDelete)
	r.HandleFunc("/orders/{id}/tracking", s.handleSetTrackingCode).Methods(http.MethodPut)
	r.HandleFunc("/orders/{id}/invoice", s.handleIssueInvoice).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id}/invoice", s.handleClearInvoice).Methods(http.MethodDelete)

	r.HandleFunc("/notifications", s.handleListNotifications).Methods(http.MethodGet)
	r.HandleFunc("/notifications", s.handleClearNotifications).Methods(http.MethodDelete)
	r.HandleFunc("/notifications/unread-count", s.handleUnreadCount).Methods(http.MethodGet)
	r.HandleFunc("/notifications/read-all", s.handleMarkAllRead).Methods(http.MethodPost)
	r.HandleFunc("/notifications/{id}/read", s.handleMarkRead).Methods(http.MethodPost)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}
