package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Invoice kinds
const (
	KindManual     = "manual"
	KindAdjustment = "adjustment"
	KindRenewal    = "renewal"
)

// Migration results
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the billing Prometheus metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	InvoicesCreatedTotal *prometheus.CounterVec
	InvoicesPaidTotal    prometheus.Counter
	PlanTransitionsTotal *prometheus.CounterVec
	MigrationsTotal      *prometheus.CounterVec
	RenewalDuration      prometheus.Histogram
	RenewalInvoices      prometheus.Gauge
	OrdersSubmittedTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all billing metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		InvoicesCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_invoices_created_total",
				Help: "Total number of invoices created",
			},
			[]string{"kind"},
		),
		InvoicesPaidTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "billing_invoices_paid_total",
				Help: "Total number of invoices marked paid",
			},
		),
		PlanTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_plan_transitions_total",
				Help: "Total number of plan state transitions",
			},
			[]string{"to"},
		),
		MigrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_migrations_total",
				Help: "Total number of plan migrations",
			},
			[]string{"result"},
		),
		RenewalDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "billing_renewal_duration_seconds",
				Help:    "Duration of renewal runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		RenewalInvoices: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "billing_renewal_invoices",
				Help: "Number of invoices created by the last renewal run",
			},
		),
		OrdersSubmittedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_orders_submitted_total",
				Help: "Total number of orders handed to the payment gateway",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		m.InvoicesCreatedTotal,
		m.InvoicesPaidTotal,
		m.PlanTransitionsTotal,
		m.MigrationsTotal,
		m.RenewalDuration,
		m.RenewalInvoices,
		m.OrdersSubmittedTotal,
	)

	return m
}

func (m *Metrics) InvoiceCreated(kind string) {
	if m == nil {
		return
	}
	m.InvoicesCreatedTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) InvoicePaid() {
	if m == nil {
		return
	}
	m.InvoicesPaidTotal.Inc()
}

func (m *Metrics) Transition(to string) {
	if m == nil {
		return
	}
	m.PlanTransitionsTotal.WithLabelValues(to).Inc()
}

func (m *Metrics) Migration(result string) {
	if m == nil {
		return
	}
	m.MigrationsTotal.WithLabelValues(result).Inc()
}

// RenewalFinished records one renewal run
func (m *Metrics) RenewalFinished(elapsed time.Duration, created int) {
	if m == nil {
		return
	}
	m.RenewalDuration.Observe(elapsed.Seconds())
	m.RenewalInvoices.Set(float64(created))
}

func (m *Metrics) OrderSubmitted(result string) {
	if m == nil {
		return
	}
	m.OrdersSubmittedTotal.WithLabelValues(result).Inc()
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, gatherer prometheus.Gatherer) {
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
