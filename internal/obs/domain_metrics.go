package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrdersTotal counts submitted orders by flow and outcome.
	OrdersTotal *prometheus.CounterVec
	// PaymentFailures counts failed charges by normalised reason.
	PaymentFailures *prometheus.CounterVec
	// PaymentsCaptured counts successful charges.
	PaymentsCaptured prometheus.Counter
	// CheckoutDuration records time from session creation to a terminal
	// state, in milliseconds.
	CheckoutDuration *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrdersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Count of order submissions by flow and result.",
		}, []string{"flow", "result"})
		PaymentFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_failures_total",
			Help:      "Count of failed charges by reason.",
		}, []string{"reason"})
		PaymentsCaptured = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_captured_total",
			Help:      "Count of successfully captured charges.",
		})
		CheckoutDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_duration_ms",
			Help:      "Time from checkout session creation to a terminal state in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000},
		}, []string{"flow"})

		mustRegisterCollector(reg, OrdersTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrdersTotal = v
			}
		})
		mustRegisterCollector(reg, PaymentFailures, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PaymentFailures = v
			}
		})
		mustRegisterCollector(reg, PaymentsCaptured, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				PaymentsCaptured = v
			}
		})
		mustRegisterCollector(reg, CheckoutDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				CheckoutDuration = v
			}
		})
	})
}

// CountOrder increments the order counter. Safe to call before metrics
// registration, as unit tests do.
func CountOrder(flow, result string) {
	if OrdersTotal != nil {
		OrdersTotal.WithLabelValues(flow, result).Inc()
	}
}

// CountPaymentFailure increments the failure counter for a reason.
func CountPaymentFailure(reason string) {
	if PaymentFailures != nil {
		PaymentFailures.WithLabelValues(reason).Inc()
	}
}

// CountPaymentCaptured increments the captured-payments counter.
func CountPaymentCaptured() {
	if PaymentsCaptured != nil {
		PaymentsCaptured.Inc()
	}
}

// ObserveCheckoutDuration records a finished checkout's wall time.
func ObserveCheckoutDuration(flow string, ms float64) {
	if CheckoutDuration != nil {
		CheckoutDuration.WithLabelValues(flow).Observe(ms)
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
