package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beachwise",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "beachwise",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	Classifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beachwise",
		Name:      "classifications_total",
		Help:      "Trash classifications by outcome.",
	}, []string{"outcome"})

	LocationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beachwise",
		Name:      "location_failures_total",
		Help:      "Failed location lookups by kind.",
	}, []string{"kind"})

	CleanupsSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "beachwise",
		Name:      "cleanups_submitted_total",
		Help:      "Cleanups stored.",
	})

	HeatmapRollups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beachwise",
		Name:      "heatmap_rollups_total",
		Help:      "Heatmap rollup runs by outcome.",
	}, []string{"outcome"})

	HeatmapRollupDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "beachwise",
		Name:      "heatmap_rollup_duration_seconds",
		Help:      "Time spent rebuilding the heatmap.",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
	})

	HeatmapCells = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "beachwise",
		Name:      "heatmap_cells",
		Help:      "Cells in the latest heatmap.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequests,
		HTTPDuration,
		Classifications,
		LocationFailures,
		CleanupsSubmitted,
		HeatmapRollups,
		HeatmapRollupDuration,
		HeatmapCells,
	)
}

// Middleware records every request under its route template, not its raw path.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
