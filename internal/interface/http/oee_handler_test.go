package httpapi

import (
	"net/http"
	"testing"

	"oee-monitor/internal/domain/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOEEHandler_Realtime(t *testing.T) {
	s := newTestServer(t, testConfig())
	viewer := tokenFor(t, s, auth.RoleViewer)

	t.Run("CurrentShift", func(t *testing.T) {
		w := doRequest(s, http.MethodGet, "/api/oee/realtime/M-001", viewer, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := decode(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "M-001", data["machine_id"])
		assert.Equal(t, "2025-03-10", data["date"])
		assert.Equal(t, "night", data["shift"])
		assert.Equal(t, 660.0, data["planned_runtime_min"])
		assert.Equal(t, 0.0, data["oee"])
		assert.NotNil(t, data["state_minutes"])
	})

	t.Run("UnknownMachine", func(t *testing.T) {
		w := doRequest(s, http.MethodGet, "/api/oee/realtime/NOPE", viewer, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, errCodeNotFound, decode(t, w)["error_code"])
	})
}

func TestOEEHandler_RecordsAndSummary(t *testing.T) {
	s := newTestServer(t, testConfig())
	admin := tokenFor(t, s, auth.RoleAdmin)
	viewer := tokenFor(t, s, auth.RoleViewer)

	w := doRequest(s, http.MethodPost, "/api/admin/oee/aggregate", admin, map[string]string{"date": "2025-03-10"})
	require.Equal(t, http.StatusOK, w.Code)

	t.Run("RecordsByShift", func(t *testing.T) {
		w := doRequest(s, http.MethodGet, "/api/oee/records?date=2025-03-10&shift=day", viewer, nil)
		require.Equal(t, http.StatusOK, w.Code)
		data := decode(t, w)["data"].([]interface{})
		require.Len(t, data, 2)
		m2 := data[1].(map[string]interface{})
		assert.Equal(t, "M-002", m2["machine_id"])
		assert.Equal(t, 440.0, m2["output_qty"])
		assert.Equal(t, 0.5, m2["oee"])
	})

	t.Run("RecordsByMachine", func(t *testing.T) {
		w := doRequest(s, http.MethodGet, "/api/oee/records?machine_id=M-001", viewer, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode(t, w)["data"].([]interface{}), 2)
	})

	t.Run("RecordsBadShift", func(t *testing.T) {
		w := doRequest(s, http.MethodGet, "/api/oee/records?shift=swing", viewer, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Summary", func(t *testing.T) {
		w := doRequest(s, http.MethodGet, "/api/oee/summary?date=2025-03-10", viewer, nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode(t, w)
		data := resp["data"].([]interface{})
		require.Len(t, data, 2)
		day := data[0].(map[string]interface{})
		assert.Equal(t, "day", day["shift"])
		assert.Equal(t, 2.0, day["machines"])
		assert.InDelta(t, 0.6135, day["oee"].(float64), 0.001)
		assert.Equal(t, 1400.0, day["output_qty"])
	})

	t.Run("SummaryDefaultsToCurrentProductionDate", func(t *testing.T) {
		w := doRequest(s, http.MethodGet, "/api/oee/summary", viewer, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2025-03-10", decode(t, w)["date"])
	})
}
