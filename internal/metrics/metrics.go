package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PicMetrics captures the image cache decisions and origin fetches.
type PicMetrics interface {
	IncLookup(result string)
	IncFetch(outcome string)
	ObserveFetch(durationSeconds float64)
}

// HTTPMetrics captures request metrics for the fiber app.
type HTTPMetrics interface {
	ObserveRequest(method, route, status string, durationSeconds float64)
}

// Noop implements every metrics interface without emitting anything.
type Noop struct{}

func (Noop) IncLookup(string)                               {}
func (Noop) IncFetch(string)                                {}
func (Noop) ObserveFetch(float64)                           {}
func (Noop) ObserveRequest(string, string, string, float64) {}

// Prom implements PicMetrics and HTTPMetrics backed by Prometheus collectors.
type Prom struct {
	lookups      *prometheus.CounterVec
	fetches      *prometheus.CounterVec
	fetchLatency prometheus.Histogram
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// NewProm registers the collectors on reg; a nil reg means the default registerer.
func NewProm(namespace string, reg prometheus.Registerer) (*Prom, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Prom{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pic_lookups_total",
			Help:      "Image cache lookups by result (hit, stale, missing, marker_reset, serve_stale)",
		}, []string{"result"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pic_origin_fetches_total",
			Help:      "Origin fetches by outcome",
		}, []string{"outcome"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pic_origin_fetch_duration_seconds",
			Help:      "Origin fetch latency",
			Buckets:   prometheus.DefBuckets,
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method/route/status",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method/route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	for _, c := range []prometheus.Collector{p.lookups, p.fetches, p.fetchLatency, p.requests, p.latency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prom) IncLookup(result string) {
	p.lookups.WithLabelValues(result).Inc()
}

func (p *Prom) IncFetch(outcome string) {
	p.fetches.WithLabelValues(outcome).Inc()
}

func (p *Prom) ObserveFetch(durationSeconds float64) {
	p.fetchLatency.Observe(durationSeconds)
}

func (p *Prom) ObserveRequest(method, route, status string, durationSeconds float64) {
	p.requests.WithLabelValues(method, route, status).Inc()
	p.latency.WithLabelValues(method, route).Observe(durationSeconds)
}

// Handler returns an HTTP handler exposing the given gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
