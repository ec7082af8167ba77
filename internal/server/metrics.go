package server

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	chunksIngested prometheus.Counter
	queriesServed  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragd",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ragd",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and path.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		chunksIngested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ragd",
			Name:      "chunks_ingested_total",
			Help:      "Chunks stored across all ingestions.",
		}),
		queriesServed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ragd",
			Name:      "queries_total",
			Help:      "Query requests answered.",
		}),
	}
}

// middleware records request counts and latency per route.
func (m *metrics) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		path := c.Path()
		if path == "" {
			path = c.Request().URL.Path
		}
		status := c.Response().Status
		if err != nil {
			status = statusForError(err)
		}
		m.duration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
		m.requests.WithLabelValues(c.Request().Method, path,
			strconv.Itoa(status)).Inc()
		return err
	}
}
