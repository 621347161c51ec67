package aggregation

import (
	"context"
	"time"

	runDomain "oee-monitor/internal/domain/aggregation"
	"oee-monitor/internal/domain/oee"
)

// MachineRepository 列出需納入彙總的設備。
type MachineRepository interface {
	ListActiveMachines(ctx context.Context) ([]oee.Machine, error)
}

// StateLogReader 讀取與時間窗重疊的設備狀態區間。
type StateLogReader interface {
	FetchStateIntervals(ctx context.Context, machineID string, window oee.ShiftWindow) ([]oee.StateInterval, error)
}

// ProductionRepository 讀寫班別產量；查無資料時回傳 (nil, nil)。
type ProductionRepository interface {
	FetchProductionCount(ctx context.Context, machineID string, date time.Time, shift oee.Shift) (*oee.ProductionCount, error)
	UpsertProductionCount(ctx context.Context, count oee.ProductionCount) error
}

// MetricRepository 以 (machine_id, date, shift) 為鍵寫入或更新 OEE 彙總。
type MetricRepository interface {
	UpsertMetricRecord(ctx context.Context, rec oee.MetricRecord) error
}

// RunRepository 寫入批次稽核紀錄：開始時 insert，結束時依 id update。
type RunRepository interface {
	CreateRun(ctx context.Context, run runDomain.Run) error
	FinishRun(ctx context.Context, run runDomain.Run) error
}

// Repository 為 Orchestrator 所需的全部外部存取。
type Repository interface {
	MachineRepository
	StateLogReader
	ProductionRepository
	MetricRepository
	RunRepository
}

// Notifier 推送批次異常通知。
type Notifier interface {
	SendMessage(ctx context.Context, text string) error
}

// Observer 接收批次執行指標。
type Observer interface {
	RunFinished(status runDomain.Status, elapsed time.Duration)
	CombinationProcessed(outcome string)
}

const (
	OutcomeProcessed = "processed"
	OutcomeSkipped   = "skipped"
)

type nopObserver struct{}

func (nopObserver) RunFinished(runDomain.Status, time.Duration) {}
func (nopObserver) CombinationProcessed(string)                 {}
