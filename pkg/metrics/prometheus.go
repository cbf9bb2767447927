package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sentiment_proxy"

// Collector holds Prometheus instruments for the service
type Collector struct {
	registry *prometheus.Registry

	ResolutionsTotal     *prometheus.CounterVec
	ResolutionDuration   *prometheus.HistogramVec
	DegradedHeadlines    prometheus.Counter
	SyntheticResolutions prometheus.Counter
	PersistFailures      prometheus.Counter
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	PurgedRecords        prometheus.Counter
}

// NewCollector creates collector with its own registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		ResolutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coordinator",
			Name:      "resolutions_total",
			Help:      "Resolve calls by outcome",
		}, []string{"outcome"}),
		ResolutionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "coordinator",
			Name:      "resolution_duration_seconds",
			Help:      "Resolve call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		DegradedHeadlines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coordinator",
			Name:      "degraded_headlines_total",
			Help:      "Headlines classified by the local fallback",
		}),
		SyntheticResolutions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coordinator",
			Name:      "synthetic_resolutions_total",
			Help:      "Resolutions built from placeholder headlines",
		}),
		PersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coordinator",
			Name:      "persist_failures_total",
			Help:      "Computed records returned without being stored",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		PurgedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "purged_records_total",
			Help:      "Records removed by the retention purge",
		}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.ResolutionsTotal,
		c.ResolutionDuration,
		c.DegradedHeadlines,
		c.SyntheticResolutions,
		c.PersistFailures,
		c.HTTPRequestsTotal,
		c.HTTPRequestDuration,
		c.PurgedRecords,
	)

	return c
}

// RecordResolution updates coordinator instruments
func (c *Collector) RecordResolution(m *ResolutionMetric) {
	c.ResolutionsTotal.WithLabelValues(m.Outcome).Inc()
	c.ResolutionDuration.WithLabelValues(m.Outcome).Observe(m.Duration.Seconds())

	if !m.Succeeded() {
		return
	}

	if m.DegradedCount > 0 {
		c.DegradedHeadlines.Add(float64(m.DegradedCount))
	}
	if m.Synthetic {
		c.SyntheticResolutions.Inc()
	}
	if m.Outcome == OutcomeMiss && !m.Persisted {
		c.PersistFailures.Inc()
	}
}

// ObserveHTTP records one served request
func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	c.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler exposes the registry in Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
