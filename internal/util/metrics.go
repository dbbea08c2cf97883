package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BillsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bills_created_total",
		Help: "Total number of bills created",
	})

	BillsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bills_failed_total",
		Help: "Total number of failed bill creations",
	}, []string{"reason"})

	StockReservationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_reservations_failed_total",
		Help: "Total number of failed stock reservations",
	}, []string{"reason"})

	StockReserveLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_reserve_latency_seconds",
		Help:    "Latency of stock reservation operations",
		Buckets: prometheus.DefBuckets,
	})

	RestockCompensationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "restock_compensations_total",
		Help: "Total number of compensating restocks after failed bill writes",
	})

	CompensationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compensation_failures_total",
		Help: "Total number of compensating restocks that exhausted retries",
	})

	ReturnsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "returns_processed_total",
		Help: "Total number of returns processed",
	})

	ReturnsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "returns_failed_total",
		Help: "Total number of failed return attempts",
	}, []string{"reason"})

	ItemsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_items_deleted_total",
		Help: "Total number of inventory items deleted",
	})

	ItemDeletionsRefusedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_item_deletions_refused_total",
		Help: "Total number of deletions refused by the referential guard",
	})

	AuditReversalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_reversals_total",
		Help: "Total number of audited actions reversed within their window",
	})

	AuditReversalsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_reversals_failed_total",
		Help: "Total number of failed reversal attempts",
	}, []string{"reason"})

	ReorderSuggestionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reorder_suggestions_total",
		Help: "Total number of reorder suggestions recorded",
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
