package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	analyses      *prometheus.CounterVec
	eventsSent    *prometheus.CounterVec
	notifications *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
}

// New registers the collectors on reg (prometheus.DefaultRegisterer in production).
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		analyses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turtledesk_analyses_total",
				Help: "Completed analyses by resulting signal",
			},
			[]string{"signal"},
		),
		eventsSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turtledesk_events_sent_total",
				Help: "Signal events delivered to an events backend",
			},
			[]string{"backend"},
		),
		notifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turtledesk_notifications_total",
				Help: "Notification attempts by channel and result",
			},
			[]string{"channel", "result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turtledesk_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "turtledesk_last_price",
				Help: "Last analysed price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "turtledesk_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordAnalysis(signal string) {
	r.analyses.WithLabelValues(signal).Inc()
}

func (r *Recorder) RecordEventSent(backend string) {
	r.eventsSent.WithLabelValues(backend).Inc()
}

func (r *Recorder) RecordNotification(channel string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	r.notifications.WithLabelValues(channel, result).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
