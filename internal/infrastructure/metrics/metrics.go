// Package metrics 以 Prometheus 匯出批次彙總與即時快取的執行指標。
package metrics

import (
	"net/http"
	"time"

	runDomain "oee-monitor/internal/domain/aggregation"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "oee"

// Collector 同時實作 aggregation.Observer 與 realtime.Observer。
type Collector struct {
	registry     *prometheus.Registry
	runs         *prometheus.CounterVec
	combinations *prometheus.CounterVec
	runDuration  prometheus.Histogram
	cache        *prometheus.CounterVec
}

// NewCollector 在獨立 registry 上註冊所有指標，避免測試間共用全域狀態。
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "runs_total",
			Help:      "Aggregation runs by terminal status",
		}, []string{"status"}),
		combinations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "combinations_total",
			Help:      "Machine/shift combinations by outcome",
		}, []string{"outcome"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "run_duration_seconds",
			Help:      "Wall time of aggregation runs",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		cache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "cache_requests_total",
			Help:      "Realtime cache lookups by result",
		}, []string{"result"}),
	}
}

func (c *Collector) RunFinished(status runDomain.Status, elapsed time.Duration) {
	c.runs.WithLabelValues(string(status)).Inc()
	c.runDuration.Observe(elapsed.Seconds())
}

func (c *Collector) CombinationProcessed(outcome string) {
	c.combinations.WithLabelValues(outcome).Inc()
}

func (c *Collector) CacheRequest(result string) {
	c.cache.WithLabelValues(result).Inc()
}

// Handler 回傳 /metrics 端點。
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
