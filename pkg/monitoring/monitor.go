package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 考试会话指标
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "exam_active_sessions",
			Help: "Number of exam sessions currently in progress",
		},
	)

	SessionEventCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_session_events_total",
			Help: "Session engine events by type",
		},
		[]string{"event"}, // save, timeout, advance, submit, abandon
	)

	ExamSubmittedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exams_submitted_total",
			Help: "Submitted exam attempts by kind and status",
		},
		[]string{"kind", "status"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(SessionEventCounter)
	prometheus.MustRegister(ExamSubmittedCounter)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
