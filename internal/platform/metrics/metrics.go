// Package metrics provides Prometheus metrics for the cliente API.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts handled requests by route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clientes",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration measures request latency by route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clientes",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// ChangePublishTotal counts change-feed publications by transport.
	ChangePublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clientes",
			Name:      "change_publish_total",
			Help:      "Total number of change events published",
		},
		[]string{"transport", "status"},
	)

	// CacheLookupsTotal counts list-cache lookups by result (hit, miss, bypass).
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clientes",
			Name:      "cache_lookups_total",
			Help:      "Total number of list cache lookups",
		},
		[]string{"result"},
	)

	// ActiveSubscriptions tracks open change-feed streams.
	ActiveSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "clientes",
			Name:      "active_subscriptions",
			Help:      "Number of open change-feed streams",
		},
	)
)

// RecordChangePublish records a change-feed publication.
func RecordChangePublish(transport, status string) {
	ChangePublishTotal.WithLabelValues(transport, status).Inc()
}

// RecordCacheLookup records a list-cache lookup.
func RecordCacheLookup(result string) {
	CacheLookupsTotal.WithLabelValues(result).Inc()
}

// Middleware records request count and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry for scraping.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
