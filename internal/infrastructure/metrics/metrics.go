// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "facturard"

// Allocation results.
const (
	ResultOK        = "ok"
	ResultExhausted = "exhausted"
	ResultError     = "error"
)

// NCFAllocations counts allocation attempts by document type and result.
var NCFAllocations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ncf",
	Name:      "allocations_total",
	Help:      "Fiscal sequence allocation attempts by document type and result.",
}, []string{"document_type", "result"})

// DocumentsIssued counts committed fiscal documents.
var DocumentsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "documents",
	Name:      "issued_total",
	Help:      "Fiscal documents issued by kind and document type.",
}, []string{"kind", "document_type"})

// APIErrors counts error responses by application error code.
var APIErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "errors_total",
	Help:      "Error responses by error code.",
}, []string{"code"})

// BatchRemaining reports numbers left in active batches that are running low.
// Updated by the worker.
var BatchRemaining = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "ncf",
	Name:      "batch_remaining",
	Help:      "Numbers left in low-stock active batches.",
}, []string{"owner_id", "document_type"})

// HTTPRequestDuration observes request latency by route.
var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by method, route and status.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route", "status"})

// OutboxRelayed counts outbox messages handled by the worker.
var OutboxRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "outbox",
	Name:      "relayed_total",
	Help:      "Outbox messages processed by result.",
}, []string{"result"})

// PoolStats is what RegisterPool needs from the connection pool.
type PoolStats interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
}

// RegisterPool exposes connection pool gauges. stats is called on scrape.
func RegisterPool(reg prometheus.Registerer, stats func() PoolStats) {
	gauge := func(name, help string, value func(PoolStats) int32) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db_pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(value(stats())) })
	}
	reg.MustRegister(
		gauge("acquired_conns", "Connections currently in use.", PoolStats.AcquiredConns),
		gauge("idle_conns", "Idle connections.", PoolStats.IdleConns),
		gauge("total_conns", "Total open connections.", PoolStats.TotalConns),
	)
}
