package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordercore_orders_created_total",
		Help: "Total number of orders handed to the engine.",
	})

	StatusAdvancesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordercore_status_advances_total",
		Help: "Total number of status advancements, by trigger.",
	},
		[]string{"trigger"},
	)

	NotificationsEmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordercore_notifications_emitted_total",
		Help: "Total number of notifications written to the inbox.",
	})

	NotificationsSuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordercore_notifications_suppressed_total",
		Help: "Total number of status notifications suppressed by the dedup guard.",
	})

	ReturnsRequestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordercore_returns_requested_total",
		Help: "Total number of return requests opened.",
	})

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordercore_operation_errors_total",
		Help: "Total number of errors encountered during specific operations.",
	},
		[]string{"operation"},
	)
)
