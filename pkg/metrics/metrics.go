package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TradesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trades_executed_total",
		Help: "Total number of buy/sell requests by outcome",
	}, []string{"side", "status"})

	TradeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trade_duration_seconds",
		Help:    "Duration of trade execution, quote lookup included",
		Buckets: prometheus.DefBuckets,
	}, []string{"side"})

	Deposits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deposits_total",
		Help: "Total number of cash deposits by outcome",
	}, []string{"status"})

	QuoteLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quote_lookups_total",
		Help: "Total number of upstream quote lookups by outcome",
	}, []string{"outcome"})

	QuoteLookupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quote_lookup_duration_seconds",
		Help:    "Duration of upstream quote lookups",
		Buckets: prometheus.DefBuckets,
	})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_cache_hits_total",
		Help: "Total number of quote cache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_cache_misses_total",
		Help: "Total number of quote cache misses",
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

	DatabasePoolConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "database_pool_connections",
		Help: "Connections in the PostgreSQL pool by state",
	}, []string{"state"})

	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registrations_total",
		Help: "Total number of registration attempts by outcome",
	}, []string{"status"})

	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logins_total",
		Help: "Total number of login attempts by outcome",
	}, []string{"status"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Total number of trade events published by outcome",
	}, []string{"status"})
)

func RecordCacheHit() {
	CacheHits.Inc()
}

func RecordCacheMiss() {
	CacheMisses.Inc()
}

func RecordDatabaseQuery(queryType, status string, duration time.Duration) {
	DatabaseQueries.WithLabelValues(queryType, status).Inc()
	DatabaseQueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())
}

func RecordPoolStats(total, acquired, idle int32) {
	DatabasePoolConnections.WithLabelValues("total").Set(float64(total))
	DatabasePoolConnections.WithLabelValues("acquired").Set(float64(acquired))
	DatabasePoolConnections.WithLabelValues("idle").Set(float64(idle))
}

func RecordTrade(side, status string) {
	TradesExecuted.WithLabelValues(side, status).Inc()
}

func RecordQuoteLookup(outcome string, duration time.Duration) {
	QuoteLookups.WithLabelValues(outcome).Inc()
	QuoteLookupDuration.Observe(duration.Seconds())
}

func StatusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{
		start: time.Now(),
	}
}

func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
