package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Total number of domain events written to Kafka",
	}, []string{"event_type", "result"})

	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrderStatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Total number of order status transitions",
	}, []string{"to"})

	OrderConfirmationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_confirmations_total",
		Help: "Order confirmation attempts by result",
	}, []string{"result"})

	OrderConfirmationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_confirmation_latency_seconds",
		Help:    "Latency of the order confirmation workflow",
		Buckets: prometheus.DefBuckets,
	})

	InventoryDeductionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_deductions_total",
		Help: "Per-ingredient deduction outcomes",
	}, []string{"outcome"})

	InventoryDecrementLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inventory_decrement_latency_seconds",
		Help:    "Latency of atomic inventory decrements",
		Buckets: prometheus.DefBuckets,
	})

	InventoryRestocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_restocks_total",
		Help: "Total number of inventory restocks and positive adjustments",
	})

	StockAlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_alerts_total",
		Help: "Low-stock and out-of-stock notifications emitted",
	}, []string{"kind"})

	NotificationPublishFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notification_publish_failed_total",
		Help: "Notifications persisted but not fanned out",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
