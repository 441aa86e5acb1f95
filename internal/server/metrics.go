package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reliefline",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "status"})

	reportsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reliefline",
		Name:      "reports_created_total",
		Help:      "Disaster reports created, by type.",
	}, []string{"disaster_type"})

	reportClaims = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reliefline",
		Name:      "report_claims_total",
		Help:      "Successful volunteer claims.",
	})

	activeStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "reliefline",
		Name:      "active_streams",
		Help:      "Open report subscription streams.",
	})
)

func metricsHandler() http.Handler {
	return promhttp.Handler()
}

func (s *Service) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		requestDuration.WithLabelValues(r.Method, strconv.Itoa(rw.statusCode)).
			Observe(time.Since(started).Seconds())
	})
}
