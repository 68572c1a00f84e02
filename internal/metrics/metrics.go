package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_requests_latency_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Ledger
	MovementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_movements_total",
			Help: "Movements appended to the ledger",
		},
		[]string{"direction"}, // credit|debit
	)
	MovementsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_movements_rejected_total",
			Help: "Movements rejected before append",
		},
		[]string{"reason"},
	)

	// Saga
	TransfersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transfers_total",
			Help: "Transfers by terminal status",
		},
		[]string{"status"}, // completed|failed|compensated
	)

	// Fee compensation
	FeesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fees_total",
			Help: "Fee events handled",
		},
		[]string{"result"}, // charged|failed|skipped
	)

	IdempotentReplays = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idempotent_replays_total",
			Help: "Requests answered from a stored idempotent response",
		},
		[]string{"scope"},
	)

	// Event channel
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Events written to the event log",
		},
		[]string{"topic"},
	)
	EventsConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_consumed_total",
			Help: "Events delivered to a consumer handler",
		},
		[]string{"topic", "result"},
	)

	GatewayLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "account_gateway_request_duration_seconds",
			Help:    "Latency of calls to the account mutation gateway",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"operation", "outcome"},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)

	initOnce sync.Once
)

// Handler serves /metrics.
var Handler = promhttp.Handler

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			HTTPLatency,
			MovementsTotal,
			MovementsRejected,
			TransfersTotal,
			FeesTotal,
			IdempotentReplays,
			EventsPublished,
			EventsConsumed,
			GatewayLatency,
			WorkerQueueDepth,
		)
	})
}
