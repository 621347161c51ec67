package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"oee-monitor/internal/domain/oee"

	"go.uber.org/zap"
)

// Repository 為即時計算所需的唯讀資料來源。
type Repository interface {
	FindMachine(ctx context.Context, id string) (oee.Machine, error)
	FetchStateIntervals(ctx context.Context, machineID string, window oee.ShiftWindow) ([]oee.StateInterval, error)
	FetchProductionCount(ctx context.Context, machineID string, date time.Time, shift oee.Shift) (*oee.ProductionCount, error)
}

// Snapshot 為目前班別的即時 OEE，欄位與批次彙總寫入的內容一致，另附各狀態分鐘數。
type Snapshot struct {
	MachineID         string                       `json:"machine_id"`
	Date              string                       `json:"date"`
	Shift             oee.Shift                    `json:"shift"`
	WindowStart       time.Time                    `json:"window_start"`
	WindowEnd         time.Time                    `json:"window_end"`
	Availability      float64                      `json:"availability"`
	Performance       float64                      `json:"performance"`
	Quality           float64                      `json:"quality"`
	OEE               float64                      `json:"oee"`
	ActualRuntimeMin  float64                      `json:"actual_runtime_min"`
	PlannedRuntimeMin float64                      `json:"planned_runtime_min"`
	IdealRuntimeMin   float64                      `json:"ideal_runtime_min"`
	OutputQty         int                          `json:"output_qty"`
	DefectQty         int                          `json:"defect_qty"`
	Estimated         bool                         `json:"estimated"`
	StateMinutes      map[oee.MachineState]float64 `json:"state_minutes"`
	ComputedAt        time.Time                    `json:"computed_at"`
}

// Service 計算設備在目前班別的即時 OEE，並透過 Cache 限制重算頻率。
type Service struct {
	repo     Repository
	resolver *oee.ShiftResolver
	policy   oee.Policy
	cache    *Cache
	logger   *zap.Logger
}

// NewService 建立即時查詢服務。
func NewService(repo Repository, resolver *oee.ShiftResolver, policy oee.Policy, cache *Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, resolver: resolver, policy: policy, cache: cache, logger: logger}
}

// Current 回傳設備目前班別的即時指標。設備不存在時回傳 oee.ErrMachineNotFound。
func (s *Service) Current(ctx context.Context, machineID string) (Snapshot, error) {
	m, err := s.repo.FindMachine(ctx, machineID)
	if err != nil {
		return Snapshot{}, err
	}
	snap, _, err := s.cache.GetOrCompute(ctx, m.ID, func(ctx context.Context, now time.Time) (Snapshot, error) {
		return s.compute(ctx, m, now)
	})
	return snap, err
}

func (s *Service) compute(ctx context.Context, m oee.Machine, now time.Time) (Snapshot, error) {
	date, w := s.resolver.Current(now)
	snap := Snapshot{
		MachineID:         m.ID,
		Date:              date.Format(oee.DateLayout),
		Shift:             w.Shift,
		WindowStart:       w.Start,
		WindowEnd:         w.End,
		PlannedRuntimeMin: s.policy.PlannedRuntimeMinutes(),
		StateMinutes:      map[oee.MachineState]float64{},
		ComputedAt:        now,
	}
	log := s.logger.With(zap.String("machine_id", m.ID), zap.String("shift", string(w.Shift)))

	intervals, err := s.repo.FetchStateIntervals(ctx, m.ID, w)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch state intervals machine=%s: %w", m.ID, err)
	}
	count, err := s.repo.FetchProductionCount(ctx, m.ID, date, w.Shift)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch production count machine=%s: %w", m.ID, err)
	}

	snap.StateMinutes = oee.StateDurations(intervals, w, now)
	actual := snap.StateMinutes[s.policy.RunningState]

	res, err := oee.Compute(oee.Input{
		ActualRuntimeMin:  actual,
		PlannedRuntimeMin: snap.PlannedRuntimeMin,
		TactTimeSec:       m.TactTimeSec,
		Count:             count,
	})
	if errors.Is(err, oee.ErrInvalidInput) {
		// 資料不足以計算時回傳歸零的結果，不視為錯誤。
		log.Warn("realtime metrics zeroed", zap.Error(err))
		snap.ActualRuntimeMin = actual
		return snap, nil
	}
	if err != nil {
		return Snapshot{}, err
	}

	snap.Availability = res.Availability
	snap.Performance = res.Performance
	snap.Quality = res.Quality
	snap.OEE = res.OEE
	snap.ActualRuntimeMin = res.ActualRuntimeMin
	snap.IdealRuntimeMin = res.IdealRuntimeMin
	snap.OutputQty = res.OutputQty
	snap.DefectQty = res.DefectQty
	snap.Estimated = res.Estimated
	return snap, nil
}
