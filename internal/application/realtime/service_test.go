package realtime_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"oee-monitor/internal/application/realtime"
	"oee-monitor/internal/domain/oee"
	"oee-monitor/internal/infra/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(t time.Time) *time.Time { return &t }

func newService(t *testing.T, store *memory.Store, now *time.Time) *realtime.Service {
	t.Helper()
	resolver, err := oee.NewShiftResolver(time.UTC, oee.DefaultDayStartHour)
	require.NoError(t, err)
	cache := realtime.NewCache(realtime.NewMemoryBackend(time.Minute, time.Minute), 10*time.Second, 10*time.Second,
		func() time.Time { return *now })
	return realtime.NewService(store, resolver, oee.DefaultPolicy(), cache, nil)
}

func TestService_Current(t *testing.T) {
	store := memory.NewStore()
	store.AddMachine(oee.Machine{ID: "M-1", TactTimeSec: 30, Active: true})
	start := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	store.AddStateInterval(oee.StateInterval{MachineID: "M-1", State: oee.StateSetup, Start: start, End: ptr(start.Add(30 * time.Minute))})
	store.AddStateInterval(oee.StateInterval{MachineID: "M-1", State: oee.StateRunning, Start: start.Add(30 * time.Minute)})

	now := start.Add(2*time.Hour + 30*time.Minute)
	svc := newService(t, store, &now)

	snap, err := svc.Current(context.Background(), "M-1")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", snap.Date)
	assert.Equal(t, oee.ShiftDay, snap.Shift)
	assert.InDelta(t, 120, snap.ActualRuntimeMin, 1e-9)
	assert.InDelta(t, 660, snap.PlannedRuntimeMin, 1e-9)
	assert.Equal(t, 240, snap.OutputQty)
	assert.True(t, snap.Estimated)
	assert.InDelta(t, 30, snap.StateMinutes[oee.StateSetup], 1e-9)
	assert.InDelta(t, 120, snap.StateMinutes[oee.StateRunning], 1e-9)
	assert.Equal(t, 0.182, snap.OEE)

	// 同一時間桶內的資料變更不影響已快取的結果。
	require.NoError(t, store.UpsertProductionCount(context.Background(), oee.ProductionCount{
		MachineID: "M-1", Date: start, Shift: oee.ShiftDay, OutputQty: 100, DefectQty: 10,
	}))
	now = now.Add(5 * time.Second)
	cached, err := svc.Current(context.Background(), "M-1")
	require.NoError(t, err)
	assert.Equal(t, 240, cached.OutputQty)

	now = now.Add(10 * time.Second)
	fresh, err := svc.Current(context.Background(), "M-1")
	require.NoError(t, err)
	assert.Equal(t, 100, fresh.OutputQty)
	assert.False(t, fresh.Estimated)
	assert.InDelta(t, 0.9, fresh.Quality, 1e-9)
}

func TestService_NightShiftAfterMidnight(t *testing.T) {
	store := memory.NewStore()
	store.AddMachine(oee.Machine{ID: "M-1", TactTimeSec: 60, Active: true})
	now := time.Date(2025, 3, 11, 2, 0, 0, 0, time.UTC)
	svc := newService(t, store, &now)

	snap, err := svc.Current(context.Background(), "M-1")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", snap.Date)
	assert.Equal(t, oee.ShiftNight, snap.Shift)
	assert.Equal(t, 0.0, snap.OEE)
}

func TestService_UnknownMachine(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc := newService(t, memory.NewStore(), &now)

	_, err := svc.Current(context.Background(), "missing")
	assert.True(t, errors.Is(err, oee.ErrMachineNotFound))
}

func TestService_InvalidDataIsZeroed(t *testing.T) {
	store := memory.NewStore()
	store.AddMachine(oee.Machine{ID: "M-1", TactTimeSec: 0, Active: true})
	start := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	store.AddStateInterval(oee.StateInterval{MachineID: "M-1", State: oee.StateRunning, Start: start})
	now := start.Add(time.Hour)
	svc := newService(t, store, &now)

	snap, err := svc.Current(context.Background(), "M-1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, snap.OEE)
	assert.Equal(t, 0, snap.OutputQty)
	assert.InDelta(t, 60, snap.ActualRuntimeMin, 1e-9)
}
