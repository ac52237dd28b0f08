package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docimpact_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docimpact_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)

	AnalysisJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docimpact_analysis_jobs_total",
			Help: "Analysis jobs by outcome (started, completed, failed, deduplicated)",
		},
		[]string{"outcome"},
	)

	AnalysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docimpact_analysis_duration_seconds",
			Help:    "Analysis job duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	AnalysisInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docimpact_analysis_in_flight",
			Help: "Analysis jobs currently running",
		},
	)

	ChatReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docimpact_chat_replies_total",
			Help: "Assistant replies by outcome (generated, reused, failed)",
		},
		[]string{"outcome"},
	)
)

var once sync.Once

func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPRequests,
			HTTPDuration,
			AnalysisJobs,
			AnalysisDuration,
			AnalysisInFlight,
			ChatReplies,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
