package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ecshop"

// チェックアウト結果のラベル
const (
	CheckoutSuccess           = "success"
	CheckoutEmptyCart         = "empty_cart"
	CheckoutInvalidAddress    = "invalid_address"
	CheckoutInsufficientStock = "insufficient_stock"
	CheckoutError             = "error"
)

type Metrics struct {
	Requests          *prometheus.CounterVec
	LatencyMS         *prometheus.HistogramVec
	Checkouts         *prometheus.CounterVec
	ShippingFallbacks prometheus.Counter
	PaymentEvents     *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New は reg に collector を登録する。テストでは prometheus.NewRegistry() を渡す。
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"method", "route"}),
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout attempts by result.",
		}, []string{"result"}),
		ShippingFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shipping_quote_fallbacks_total",
			Help:      "Checkouts that used the default shipping quote.",
		}),
		PaymentEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhook_events_total",
			Help:      "Payment webhook events by type.",
		}, []string{"type"}),
		gatherer: reg,
	}

	reg.MustRegister(m.Requests, m.LatencyMS, m.Checkouts, m.ShippingFallbacks, m.PaymentEvents)
	return m
}

// 以下は nil でも呼べる（メトリクス無しでユースケースを組めるように）

func (m *Metrics) ObserveCheckout(result string) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveShippingFallback() {
	if m == nil {
		return
	}
	m.ShippingFallbacks.Inc()
}

func (m *Metrics) ObservePaymentEvent(eventType string) {
	if m == nil {
		return
	}
	m.PaymentEvents.WithLabelValues(eventType).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
