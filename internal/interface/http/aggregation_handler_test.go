package httpapi

import (
	"net/http"
	"testing"

	"oee-monitor/internal/domain/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregationHandler(t *testing.T) {
	s := newTestServer(t, testConfig())
	admin := tokenFor(t, s, auth.RoleAdmin)

	t.Run("Aggregate", func(t *testing.T) {
		w := doRequest(s, http.MethodPost, "/api/admin/oee/aggregate", admin, map[string]string{"date": "2025-03-10"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resp := decode(t, w)
		assert.Equal(t, true, resp["success"])
		assert.Equal(t, "2025-03-10", resp["date"])
		assert.Equal(t, 4.0, resp["processed_records"])

		results := resp["results"].([]interface{})
		require.Len(t, results, 4)
		first := results[0].(map[string]interface{})
		assert.Equal(t, "M-001", first["machine_id"])
		assert.Equal(t, "day", first["shift"])
		assert.Equal(t, 0.727, first["oee"])
		assert.Equal(t, 960.0, first["output_qty"])
		assert.Equal(t, true, first["estimated"])
	})

	t.Run("AggregateDefaultsToToday", func(t *testing.T) {
		w := doRequest(s, http.MethodPost, "/api/admin/oee/aggregate", admin, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "2025-03-10", decode(t, w)["date"])
	})

	t.Run("AggregateBadDate", func(t *testing.T) {
		w := doRequest(s, http.MethodPost, "/api/admin/oee/aggregate", admin, map[string]string{"date": "10/03/2025"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, errCodeBadRequest, decode(t, w)["error_code"])
	})

	t.Run("Runs", func(t *testing.T) {
		w := doRequest(s, http.MethodGet, "/api/admin/oee/runs?limit=10", tokenFor(t, s, auth.RoleOperator), nil)
		require.Equal(t, http.StatusOK, w.Code)
		data := decode(t, w)["data"].([]interface{})
		require.Len(t, data, 2)
		run := data[0].(map[string]interface{})
		assert.Equal(t, "completed", run["status"])
		assert.Equal(t, "2025-03-10", run["target_date"])
		assert.Nil(t, run["error_message"])
	})

	t.Run("Backfill", func(t *testing.T) {
		body := map[string]string{"start_date": "2025-03-08", "end_date": "2025-03-10"}
		w := doRequest(s, http.MethodPost, "/api/admin/oee/backfill", admin, body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := decode(t, w)["data"].([]interface{})
		require.Len(t, data, 3)
		assert.Equal(t, "2025-03-08", data[0].(map[string]interface{})["date"])
	})

	t.Run("BackfillReversed", func(t *testing.T) {
		body := map[string]string{"start_date": "2025-03-10", "end_date": "2025-03-01"}
		w := doRequest(s, http.MethodPost, "/api/admin/oee/backfill", admin, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("BackfillMissingFields", func(t *testing.T) {
		w := doRequest(s, http.MethodPost, "/api/admin/oee/backfill", admin, map[string]string{"start_date": "2025-03-10"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
