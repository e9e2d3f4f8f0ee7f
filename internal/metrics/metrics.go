// Package metrics holds the Prometheus collectors for the splitter service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Extraction outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeInvalid     = "invalid_input"
	OutcomeUnavailable = "unavailable"
	OutcomeMalformed   = "malformed"
	OutcomeFailed      = "failed"
)

type Registry struct {
	reg *prometheus.Registry

	RPCRequests *prometheus.CounterVec
	RPCLatency  *prometheus.HistogramVec

	ExtractionAttempts *prometheus.CounterVec
	ExtractionRetries  prometheus.Counter
	ExtractionLatency  prometheus.Histogram
	ScaleCorrections   *prometheus.CounterVec

	SessionsCreated prometheus.Counter
	SessionsPurged  prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	rpcRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billsplit_rpc_requests_total",
		Help: "RPC calls by procedure and result code.",
	}, []string{"procedure", "code"})
	rpcLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "billsplit_rpc_latency_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"procedure"})

	extractionAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billsplit_extraction_total",
		Help: "Receipt extractions by outcome.",
	}, []string{"outcome"})
	extractionRetries := prometheus.NewCounter(prometheus.CounterOpts{Name: "billsplit_extraction_retries_total"})
	extractionLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "billsplit_extraction_latency_seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
	})
	scaleCorrections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billsplit_scale_corrections_total",
		Help: "Heuristic corrections applied to extraction drafts, by rule.",
	}, []string{"rule"})

	sessionsCreated := prometheus.NewCounter(prometheus.CounterOpts{Name: "billsplit_sessions_created_total"})
	sessionsPurged := prometheus.NewCounter(prometheus.CounterOpts{Name: "billsplit_sessions_purged_total"})

	r.MustRegister(
		rpcRequests, rpcLatency,
		extractionAttempts, extractionRetries, extractionLatency, scaleCorrections,
		sessionsCreated, sessionsPurged,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{
		reg:                r,
		RPCRequests:        rpcRequests,
		RPCLatency:         rpcLatency,
		ExtractionAttempts: extractionAttempts,
		ExtractionRetries:  extractionRetries,
		ExtractionLatency:  extractionLatency,
		ScaleCorrections:   scaleCorrections,
		SessionsCreated:    sessionsCreated,
		SessionsPurged:     sessionsPurged,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
