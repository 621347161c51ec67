package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"oee-monitor/internal/application/aggregation"
	"oee-monitor/internal/application/realtime"
	runDomain "oee-monitor/internal/domain/aggregation"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

var (
	_ aggregation.Observer = (*Collector)(nil)
	_ realtime.Observer    = (*Collector)(nil)
)

func TestCollector_Counts(t *testing.T) {
	c := NewCollector()
	c.RunFinished(runDomain.StatusCompleted, 2*time.Second)
	c.RunFinished(runDomain.StatusFailed, time.Second)
	c.RunFinished(runDomain.StatusCompleted, time.Second)
	c.CombinationProcessed(aggregation.OutcomeProcessed)
	c.CombinationProcessed(aggregation.OutcomeSkipped)
	c.CacheRequest(realtime.ResultHit)
	c.CacheRequest(realtime.ResultHit)
	c.CacheRequest(realtime.ResultMiss)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.runs.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runs.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.combinations.WithLabelValues("skipped")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.cache.WithLabelValues("hit")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.runDuration))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.CacheRequest(realtime.ResultMiss)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `oee_realtime_cache_requests_total{result="miss"} 1`))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
