package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const namespace = "storefront"

// Metrics holds the cart, checkout and HTTP collectors. A nil *Metrics is a no-op.
type Metrics struct {
	cartOps         *prometheus.CounterVec
	checkouts       *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
	httpDuration    *prometheus.HistogramVec
	webhookEvents   *prometheus.CounterVec
	cronJobs        *prometheus.HistogramVec
}

// New registers the collectors on the provided registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	cartOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_operations_total",
		Help:      "Cart mutations by operation and outcome.",
	}, []string{"op", "outcome"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_attempts_total",
		Help:      "Checkout session requests by outcome.",
	}, []string{"outcome"})
	gatewayDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "payment_gateway_duration_seconds",
		Help:      "Latency of hosted checkout session creation.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Payment provider webhook events by type and outcome.",
	}, []string{"type", "outcome"})
	cronJobs := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cron_job_duration_seconds",
		Help:      "Scheduled job runtime by job and outcome.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job", "outcome"})
	reg.MustRegister(cartOps, checkouts, gatewayDuration, httpDuration, webhookEvents, cronJobs)
	return &Metrics{
		cartOps:         cartOps,
		checkouts:       checkouts,
		gatewayDuration: gatewayDuration,
		httpDuration:    httpDuration,
		webhookEvents:   webhookEvents,
		cronJobs:        cronJobs,
	}
}

// CartOperation counts a cart mutation labelled with its error reason.
func (m *Metrics) CartOperation(op string, err error) {
	if m == nil || m.cartOps == nil {
		return
	}
	m.cartOps.WithLabelValues(normalizeLabel(op), Outcome(err)).Inc()
}

// CheckoutAttempt counts a buildCheckout call.
func (m *Metrics) CheckoutAttempt(err error) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(Outcome(err)).Inc()
}

// ObserveGateway records how long the payment provider took.
func (m *Metrics) ObserveGateway(duration time.Duration, err error) {
	if m == nil || m.gatewayDuration == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.gatewayDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveHTTP records a served request.
func (m *Metrics) ObserveHTTP(route, method string, status int, duration time.Duration) {
	if m == nil || m.httpDuration == nil {
		return
	}
	m.httpDuration.WithLabelValues(normalizeLabel(route), method, strconv.Itoa(status)).Observe(duration.Seconds())
}

// WebhookEvent counts a processed provider event.
func (m *Metrics) WebhookEvent(eventType string, err error) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(eventType), Outcome(err)).Inc()
}

// CronJob records one scheduled job run.
func (m *Metrics) CronJob(job string, duration time.Duration, err error) {
	if m == nil || m.cronJobs == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.cronJobs.WithLabelValues(normalizeLabel(job), outcome).Observe(duration.Seconds())
}

// Outcome maps an error onto a low-cardinality label.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if typed := pkgerrors.As(err); typed != nil {
		if reason := typed.Reason(); reason != "" {
			return string(reason)
		}
		return string(typed.Code())
	}
	return "error"
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
