package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for login and registration traffic.
type Metrics struct {
	Logins            prometheus.Counter
	Registrations     prometheus.Counter
	Denials           *prometheus.CounterVec
	SeatsConsumed     prometheus.Counter
	SeatsReleased     prometheus.Counter
	OpenSessions      prometheus.Gauge
	WebhookDeliveries prometheus.Counter
	WebhookFailures   prometheus.Counter
	LoginDurationMs   prometheus.Histogram
}

// New registers and returns the collectors.
func New() *Metrics {
	return &Metrics{
		Logins: promauto.NewCounter(prometheus.CounterOpts{
			Name: "keygate_logins_total",
			Help: "Total number of successful logins",
		}),
		Registrations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "keygate_registrations_total",
			Help: "Total number of successful registrations",
		}),
		Denials: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "keygate_denials_total",
			Help: "Total number of denied login or registration attempts, by reason",
		}, []string{"reason"}),
		SeatsConsumed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "keygate_license_seats_consumed_total",
			Help: "Total number of license seats consumed",
		}),
		SeatsReleased: promauto.NewCounter(prometheus.CounterOpts{
			Name: "keygate_license_seats_released_total",
			Help: "Total number of license seats released",
		}),
		OpenSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "keygate_open_sessions",
			Help: "Current number of open sessions",
		}),
		WebhookDeliveries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "keygate_webhook_deliveries_total",
			Help: "Total number of successful webhook deliveries",
		}),
		WebhookFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "keygate_webhook_failures_total",
			Help: "Total number of failed webhook deliveries",
		}),
		LoginDurationMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "keygate_login_duration_ms",
			Help:    "Duration of login requests in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		}),
	}
}

func (m *Metrics) IncrementLogins() {
	m.Logins.Inc()
}

func (m *Metrics) IncrementRegistrations() {
	m.Registrations.Inc()
}

func (m *Metrics) IncrementDenials(reason string) {
	m.Denials.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementSeatsConsumed() {
	m.SeatsConsumed.Inc()
}

func (m *Metrics) IncrementSeatsReleased() {
	m.SeatsReleased.Inc()
}

func (m *Metrics) IncrementOpenSessions() {
	m.OpenSessions.Inc()
}

func (m *Metrics) DecrementOpenSessions(count int) {
	m.OpenSessions.Sub(float64(count))
}

func (m *Metrics) IncrementWebhookDeliveries() {
	m.WebhookDeliveries.Inc()
}

func (m *Metrics) IncrementWebhookFailures() {
	m.WebhookFailures.Inc()
}

func (m *Metrics) ObserveLoginDuration(durationMs float64) {
	m.LoginDurationMs.Observe(durationMs)
}
