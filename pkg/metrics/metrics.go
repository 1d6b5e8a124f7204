package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordsParsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_records_parsed_total",
		Help: "Total number of ledger rows parsed from source files",
	}, []string{"status"})

	RecordsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_records_dropped_total",
		Help: "Rows removed during enrichment because their timestamp failed to parse",
	})

	AmountParseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "amount_parse_failures_total",
		Help: "Numeric fields that could not be parsed and became null",
	})

	AnalysesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analyses_skipped_total",
		Help: "Sub-analyses skipped because required columns were missing",
	}, []string{"analysis"})

	ReportBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "report_builds_total",
		Help: "Total number of analytics report builds",
	}, []string{"status"})

	ReportBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "report_build_duration_seconds",
		Help:    "Duration of full analytics report builds",
		Buckets: prometheus.DefBuckets,
	})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "report_cache_hits_total",
		Help: "Total number of report cache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "report_cache_misses_total",
		Help: "Total number of report cache misses",
	})

	DatabaseQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "database_queries_total",
		Help: "Total number of database queries",
	}, []string{"query_type", "status"})

	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "database_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query_type"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "api_http_requests_total",
		Help: "Total number of HTTP requests served",
	}, []string{"method", "route", "status_code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "api_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status_code"})
)

func RecordCacheHit()  { CacheHits.Inc() }
func RecordCacheMiss() { CacheMisses.Inc() }

func RecordSkippedAnalysis(analysis string) {
	AnalysesSkipped.WithLabelValues(analysis).Inc()
}

func RecordHTTPRequest(method, route, statusCode string, duration float64) {
	HTTPRequests.WithLabelValues(method, route, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method, route, statusCode).Observe(duration)
}

func RecordDatabaseQuery(queryType, status string, duration float64) {
	DatabaseQueries.WithLabelValues(queryType, status).Inc()
	DatabaseQueryDuration.WithLabelValues(queryType).Observe(duration)
}

type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
