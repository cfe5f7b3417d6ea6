package feed

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are kept on their own registry so several servers (tests, mostly)
// can live in one process.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	eventsIngested  *prometheus.CounterVec
	eventsServed    prometheus.Counter
	invalidEvents   prometheus.Counter
	historySize     prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feed_http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feed_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		eventsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feed_events_ingested_total",
			Help: "Events appended to the history, by classification.",
		}, []string{"kind"}),
		eventsServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_events_served_total",
			Help: "Events returned by /data.",
		}),
		invalidEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feed_events_invalid_total",
			Help: "Posted events rejected by validation.",
		}),
		historySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "feed_history_events",
			Help: "Number of events currently held.",
		}),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.eventsIngested,
		m.eventsServed,
		m.invalidEvents,
		m.historySize,
	)
	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Ingested(normal, suspicious int) {
	m.eventsIngested.WithLabelValues("normal").Add(float64(normal))
	m.eventsIngested.WithLabelValues("suspicious").Add(float64(suspicious))
}

func (m *Metrics) Served(n int) {
	m.eventsServed.Add(float64(n))
}

func (m *Metrics) Invalid(n int) {
	m.invalidEvents.Add(float64(n))
}

func (m *Metrics) SetHistorySize(n int) {
	m.historySize.Set(float64(n))
}
