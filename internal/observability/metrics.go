package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

var _ weather.Metrics = (*Metrics)(nil)

// Metrics exports cache and upstream outcomes to Prometheus.
type Metrics struct {
	cacheLookups     *prometheus.CounterVec
	upstreamRequests *prometheus.CounterVec
	cacheEntries     prometheus.GaugeFunc
}

// NewMetrics registers the collectors on reg. entries, when non-nil, reports
// the current number of cached payloads.
func NewMetrics(reg prometheus.Registerer, entries func() int) *Metrics {
	m := &Metrics{
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weather_cache_lookups_total",
				Help: "Query cache lookups by result.",
			},
			[]string{"result"},
		),
		upstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weather_upstream_requests_total",
				Help: "Upstream feed requests by feed and outcome.",
			},
			[]string{"feed", "outcome"},
		),
	}
	reg.MustRegister(m.cacheLookups, m.upstreamRequests)

	if entries != nil {
		m.cacheEntries = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "weather_cache_entries",
				Help: "Payloads currently held by the query cache, stale ones included.",
			},
			func() float64 { return float64(entries()) },
		)
		reg.MustRegister(m.cacheEntries)
	}
	return m
}

func (m *Metrics) CacheHit() {
	m.cacheLookups.WithLabelValues("hit").Inc()
}

func (m *Metrics) CacheMiss() {
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// UpstreamResult counts one feed call as ok, application_error or
// transport_error.
func (m *Metrics) UpstreamResult(feed string, err error) {
	m.upstreamRequests.WithLabelValues(feed, outcome(err)).Inc()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var ue *weather.UpstreamError
	if errors.As(err, &ue) && ue.Kind == weather.UpstreamApplication {
		return "application_error"
	}
	return "transport_error"
}
