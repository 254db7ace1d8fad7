package metrics

import "github.com/prometheus/client_golang/prometheus"

// ScheduleMetrics exposes counters/histograms for calendar flows.
type ScheduleMetrics struct {
	mutationsTotal *prometheus.CounterVec
	fetchLatency   *prometheus.HistogramVec
	cacheLookups   *prometheus.CounterVec
}

func NewScheduleMetrics(reg prometheus.Registerer) *ScheduleMetrics {
	m := &ScheduleMetrics{
		mutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "schedule",
			Name:      "mutations_total",
			Help:      "Total override mutations by kind and outcome",
		}, []string{"kind", "outcome"}),
		fetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agenda",
			Subsystem: "schedule",
			Name:      "fetch_latency_seconds",
			Help:      "Latency of calendar view fetches",
			Buckets:   prometheus.DefBuckets,
		}, []string{"view"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "schedule",
			Name:      "cache_lookups_total",
			Help:      "View cache lookups by view and result",
		}, []string{"view", "result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.mutationsTotal, m.fetchLatency, m.cacheLookups)
	return m
}

func (m *ScheduleMetrics) ObserveMutation(kind, outcome string) {
	if m == nil {
		return
	}
	m.mutationsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *ScheduleMetrics) ObserveFetchLatency(view string, seconds float64) {
	if m == nil {
		return
	}
	m.fetchLatency.WithLabelValues(view).Observe(seconds)
}

func (m *ScheduleMetrics) ObserveCacheLookup(view string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(view, result).Inc()
}
