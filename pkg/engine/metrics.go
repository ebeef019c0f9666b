package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

type metrics struct {
	queries       *prometheus.CounterVec
	rowsProduced  prometheus.Counter
	planCacheHits prometheus.Counter
	planCacheMiss prometheus.Counter

	optimize prometheus.Observer
	planning prometheus.Observer
	execute  prometheus.Observer
}

func newMetrics(reg prometheus.Registerer) *metrics {
	duration := promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
		Name: "lazyframe_engine_query_duration_seconds",
		Help: "Time spent in each phase of a query",

		NativeHistogramBucketFactor:     1.1,
		NativeHistogramMaxBucketNumber:  100,
		NativeHistogramMinResetDuration: time.Hour,
	}, []string{"phase"})

	return &metrics{
		queries: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "lazyframe_engine_queries_total",
			Help: "Total number of collected queries by status",
		}, []string{"status"}),
		rowsProduced: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "lazyframe_engine_rows_produced_total",
			Help: "Total number of rows returned by collected queries",
		}),
		planCacheHits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "lazyframe_engine_plan_cache_hits_total",
			Help: "Total number of queries that reused a cached plan",
		}),
		planCacheMiss: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "lazyframe_engine_plan_cache_misses_total",
			Help: "Total number of queries that had to be planned",
		}),

		optimize: duration.WithLabelValues("optimize"),
		planning: duration.WithLabelValues("plan"),
		execute:  duration.WithLabelValues("execute"),
	}
}
