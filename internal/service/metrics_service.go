package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// fee ledger.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	paymentTotal    *prometheus.CounterVec
	paymentAmount   *prometheus.CounterVec
	receiptFailures prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	paymentTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fee_payments_total",
		Help: "Total number of recorded fee payments",
	}, []string{"mode"})

	paymentAmount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fee_payment_amount_total",
		Help: "Cumulative rupee amount of recorded fee payments",
	}, []string{"mode"})

	receiptFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "receipt_delivery_failures_total",
		Help: "Total receipt deliveries that exhausted their retries",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, paymentTotal, paymentAmount, receiptFailures, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		paymentTotal:    paymentTotal,
		paymentAmount:   paymentAmount,
		receiptFailures: receiptFailures,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request count and latency.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordPayment counts one applied payment by mode.
func (m *MetricsService) RecordPayment(mode string, amount int64) {
	if m == nil {
		return
	}
	m.paymentTotal.WithLabelValues(mode).Inc()
	m.paymentAmount.WithLabelValues(mode).Add(float64(amount))
}

// RecordReceiptFailure counts a receipt delivery that exhausted its retries.
func (m *MetricsService) RecordReceiptFailure() {
	if m == nil {
		return
	}
	m.receiptFailures.Inc()
}
