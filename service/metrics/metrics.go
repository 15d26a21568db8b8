package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// It is passed explicitly to every component that records metrics; a nil
// *Metrics is valid and records nothing.
type Metrics struct {
	// Solana RPC Metrics
	solanaRPCCallsTotal        *prometheus.CounterVec
	solanaRPCCallDuration      *prometheus.HistogramVec
	solanaRPCSignaturesPerCall *prometheus.HistogramVec
	solanaRPCFallbacks         *prometheus.CounterVec

	// Ingestion Metrics
	fetchCyclesTotal      *prometheus.CounterVec
	fetchCycleDuration    *prometheus.HistogramVec
	transactionsStored    *prometheus.CounterVec
	transactionsDropped   *prometheus.CounterVec
	transactionsRejected  *prometheus.CounterVec
	epochStartTimestamp   prometheus.Gauge
	storeTransactionsSize prometheus.Gauge

	// HTTP Metrics
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsTotal    *prometheus.CounterVec
	sseActiveConnections *prometheus.GaugeVec
	sseEventsSent        *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),
		solanaRPCSignaturesPerCall: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_signatures_per_call",
				Help:    "Number of signatures fetched per GetSignaturesForAddress call",
				Buckets: []float64{1, 10, 50, 100, 250, 500, 1000},
			},
			[]string{"endpoint"},
		),
		solanaRPCFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_encoding_fallbacks_total",
				Help: "Total number of GetTransaction calls retried with raw json encoding",
			},
			[]string{"endpoint"},
		),

		fetchCyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetch_cycles_total",
				Help: "Total number of ingestion cycles by outcome",
			},
			[]string{"wallet_address", "outcome"},
		),
		fetchCycleDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fetch_cycle_duration_seconds",
				Help:    "Duration of ingestion cycles in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"wallet_address"},
		),
		transactionsStored: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_stored_total",
				Help: "Total number of transactions written to the store",
			},
			[]string{"wallet_address"},
		),
		transactionsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_dropped_total",
				Help: "Total number of fetched transactions not stored, by reason",
			},
			[]string{"wallet_address", "reason"},
		),
		transactionsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_rejected_total",
				Help: "Total number of transactions that failed normalization, by reason",
			},
			[]string{"wallet_address", "reason"},
		),
		epochStartTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "epoch_start_timestamp_seconds",
				Help: "Estimated Unix start time of the current epoch",
			},
		),
		storeTransactionsSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "store_transactions",
				Help: "Number of transactions held in the in-memory store",
			},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
		sseActiveConnections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sse_active_connections",
				Help: "Number of active SSE connections",
			},
			[]string{"wallet_address"},
		),
		sseEventsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sse_events_sent_total",
				Help: "Total number of SSE events sent",
			},
			[]string{"wallet_address", "event_type"},
		),

		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),
	}
}

// Solana RPC metric helpers

// RecordRPCCall records a Solana RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	if m == nil {
		return
	}
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordRPCSignaturesPerCall records the number of signatures fetched.
func (m *Metrics) RecordRPCSignaturesPerCall(endpoint string, count float64) {
	if m == nil {
		return
	}
	m.solanaRPCSignaturesPerCall.WithLabelValues(endpoint).Observe(count)
}

// RecordEncodingFallback records a GetTransaction retried with raw encoding.
func (m *Metrics) RecordEncodingFallback(endpoint string) {
	if m == nil {
		return
	}
	m.solanaRPCFallbacks.WithLabelValues(endpoint).Inc()
}

// Ingestion metric helpers

// RecordFetchCycle records one ingestion cycle and its outcome.
func (m *Metrics) RecordFetchCycle(walletAddress, outcome string, duration float64) {
	if m == nil {
		return
	}
	m.fetchCyclesTotal.WithLabelValues(walletAddress, outcome).Inc()
	m.fetchCycleDuration.WithLabelValues(walletAddress).Observe(duration)
}

// RecordTransactionStored records a transaction written to the store.
func (m *Metrics) RecordTransactionStored(walletAddress string) {
	if m == nil {
		return
	}
	m.transactionsStored.WithLabelValues(walletAddress).Inc()
}

// RecordTransactionDropped records a fetched transaction that was not stored.
func (m *Metrics) RecordTransactionDropped(walletAddress, reason string) {
	if m == nil {
		return
	}
	m.transactionsDropped.WithLabelValues(walletAddress, reason).Inc()
}

// RecordTransactionRejected records a transaction that failed normalization.
func (m *Metrics) RecordTransactionRejected(walletAddress, reason string) {
	if m == nil {
		return
	}
	m.transactionsRejected.WithLabelValues(walletAddress, reason).Inc()
}

// SetEpochStart records the most recently resolved epoch start.
func (m *Metrics) SetEpochStart(unixSeconds int64) {
	if m == nil {
		return
	}
	m.epochStartTimestamp.Set(float64(unixSeconds))
}

// SetStoreSize records the number of transactions held in memory.
func (m *Metrics) SetStoreSize(n int) {
	if m == nil {
		return
	}
	m.storeTransactionsSize.Set(float64(n))
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	if m == nil {
		return
	}
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// RecordSSEConnectionChange records a change in SSE connection count.
func (m *Metrics) RecordSSEConnectionChange(walletAddress string, delta float64) {
	if m == nil {
		return
	}
	m.sseActiveConnections.WithLabelValues(walletAddress).Add(delta)
}

// RecordSSEEventSent records an SSE event being sent.
func (m *Metrics) RecordSSEEventSent(walletAddress, eventType string) {
	if m == nil {
		return
	}
	m.sseEventsSent.WithLabelValues(walletAddress, eventType).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	if m == nil {
		return
	}
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
