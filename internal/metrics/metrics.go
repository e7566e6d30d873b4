package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	Ops        *prometheus.CounterVec
	OpLatency  *prometheus.HistogramVec
	Retries    *prometheus.CounterVec
	LowStock   prometheus.Counter
	Requests   *prometheus.CounterVec
	ReqLatency *prometheus.HistogramVec

	// outbox
	OutboxPending   prometheus.Gauge
	OutboxPublished prometheus.Counter
	OutboxFailures  prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shopnesty_reconcile_operations_total",
		Help: "Reconciliation operations by outcome.",
	}, []string{"op", "outcome"})
	opLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shopnesty_reconcile_operation_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shopnesty_reconcile_retries_total",
		Help: "Units of work re-run after a conflict.",
	}, []string{"op"})
	lowStock := prometheus.NewCounter(prometheus.CounterOpts{Name: "shopnesty_low_stock_alerts_total"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shopnesty_http_requests_total",
	}, []string{"method", "route", "status"})
	reqLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shopnesty_http_request_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{Name: "shopnesty_outbox_pending"})
	published := prometheus.NewCounter(prometheus.CounterOpts{Name: "shopnesty_outbox_published_total"})
	failures := prometheus.NewCounter(prometheus.CounterOpts{Name: "shopnesty_outbox_publish_failures_total"})

	r.MustRegister(ops, opLatency, retries, lowStock, requests, reqLatency, pending, published, failures,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return &Registry{
		reg:             r,
		Ops:             ops,
		OpLatency:       opLatency,
		Retries:         retries,
		LowStock:        lowStock,
		Requests:        requests,
		ReqLatency:      reqLatency,
		OutboxPending:   pending,
		OutboxPublished: published,
		OutboxFailures:  failures,
	}
}

// ObserveOp implements reconcile.Observer.
func (r *Registry) ObserveOp(op, outcome string, elapsed time.Duration) {
	r.Ops.WithLabelValues(op, outcome).Inc()
	r.OpLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveRetry implements reconcile.Observer.
func (r *Registry) ObserveRetry(op string) {
	r.Retries.WithLabelValues(op).Inc()
}

func (r *Registry) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	r.Requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.ReqLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// SetOutboxPending, AddOutboxPublished and IncOutboxFailures implement outbox.Stats.
func (r *Registry) SetOutboxPending(n int) { r.OutboxPending.Set(float64(n)) }

func (r *Registry) AddOutboxPublished(n int) { r.OutboxPublished.Add(float64(n)) }

func (r *Registry) IncOutboxFailures() { r.OutboxFailures.Inc() }
