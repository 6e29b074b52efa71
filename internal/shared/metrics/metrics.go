package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "portfolio"

var (
	registry = prometheus.NewRegistry()

	jobsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analysis_jobs_started_total",
		Help:      "Total analysis jobs started",
	})
	jobsFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analysis_jobs_finished_total",
		Help:      "Total analysis jobs reaching a terminal status",
	}, []string{"status"})
	liveJobs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "analysis_jobs_live",
		Help:      "Analysis jobs currently queued or running",
	})
	jobDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "analysis_job_duration_ms",
		Help:      "Analysis job duration in milliseconds",
		Buckets:   []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 300000},
	})
	tagsWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feature_tags_written_total",
		Help:      "Feature tag rows inserted or updated",
	})
	itemFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analysis_item_failures_total",
		Help:      "Per-software failures recovered during analysis",
	}, []string{"kind"})
	recommendations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recommendations_generated_total",
		Help:      "Consolidation recommendations generated",
	})
	requestsConsumed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analysis_requests_consumed_total",
		Help:      "Analysis request messages handled by the worker, by outcome",
	}, []string{"outcome"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		jobsStarted,
		jobsFinished,
		liveJobs,
		jobDuration,
		tagsWritten,
		itemFailures,
		recommendations,
		requestsConsumed,
	)
}

// IncJobStarted records a job entering the running state.
func IncJobStarted() {
	jobsStarted.Inc()
	liveJobs.Inc()
}

// IncJobFinished records a terminal status for a job that had started.
func IncJobFinished(status string) {
	jobsFinished.WithLabelValues(status).Inc()
	liveJobs.Dec()
}

// ObserveJobDurationMs records a job duration in milliseconds.
func ObserveJobDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	jobDuration.Observe(value)
}

// AddTagsWritten counts persisted feature tag rows.
func AddTagsWritten(n int) {
	if n > 0 {
		tagsWritten.Add(float64(n))
	}
}

// IncItemFailure counts a recovered per-item failure of the given kind.
func IncItemFailure(kind string) {
	itemFailures.WithLabelValues(kind).Inc()
}

// AddRecommendations counts generated recommendations.
func AddRecommendations(n int) {
	if n > 0 {
		recommendations.Add(float64(n))
	}
}

// IncRequestConsumed counts a worker request message by outcome.
func IncRequestConsumed(outcome string) {
	requestsConsumed.WithLabelValues(outcome).Inc()
}

// Registry exposes the process registry, mainly for tests.
func Registry() *prometheus.Registry {
	return registry
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
