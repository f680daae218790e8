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
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voiary_http_requests_total",
		Help: "HTTP requests by method, path and status.",
	}, []string{"method", "path", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voiary_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voiary_uploads_total",
		Help: "Diary uploads by outcome.",
	}, []string{"outcome"})

	sweepDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voiary_sweep_orphans_deleted_total",
		Help: "Orphaned audio objects removed by the sweep job.",
	})
)

// Upload outcome labels.
const (
	UploadOK           = "ok"
	UploadStorageError = "storage_error"
	UploadDBError      = "db_error"
)

// MonitorMiddleware 监控中间件：记录请求计数与耗时
func MonitorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func ObserveUpload(outcome string) { uploadsTotal.WithLabelValues(outcome).Inc() }

func AddSweepDeleted(n int) { sweepDeleted.Add(float64(n)) }
