package aggregation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/looplab/fsm"
)

// Status 為彙總批次的狀態；started 之後只能轉為 completed 或 failed 其一。
type Status string

const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

const (
	eventComplete = "complete"
	eventFail     = "fail"
)

// ErrInvalidTransition 表示對已結束的批次再次變更狀態。
var ErrInvalidTransition = errors.New("invalid run transition")

// Run 為彙總批次的稽核紀錄：開始時寫入一次、結束時更新一次，之後不再變動。
type Run struct {
	ID               string
	ExecutionTime    time.Time
	TargetDate       time.Time
	Status           Status
	ProcessedRecords int
	ErrorMessage     string
	ExecutionTimeMs  int64
	CreatedAt        time.Time
}

// NewRun 建立狀態為 started 的批次紀錄。
func NewRun(id string, now, targetDate time.Time) Run {
	return Run{
		ID:            id,
		ExecutionTime: now,
		TargetDate:    targetDate,
		Status:        StatusStarted,
		CreatedAt:     now,
	}
}

// Terminal 判斷批次是否已結束。
func (r Run) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// Complete 將批次標記為完成並記錄成功筆數與耗時。
func (r *Run) Complete(processed int, elapsed time.Duration) error {
	if err := r.transition(eventComplete); err != nil {
		return err
	}
	r.ProcessedRecords = processed
	r.ExecutionTimeMs = elapsed.Milliseconds()
	return nil
}

// Fail 將批次標記為失敗並保留錯誤訊息。
func (r *Run) Fail(cause error, processed int, elapsed time.Duration) error {
	if err := r.transition(eventFail); err != nil {
		return err
	}
	if cause != nil {
		r.ErrorMessage = cause.Error()
	}
	r.ProcessedRecords = processed
	r.ExecutionTimeMs = elapsed.Milliseconds()
	return nil
}

func (r *Run) transition(event string) error {
	machine := fsm.NewFSM(
		string(r.Status),
		fsm.Events{
			{Name: eventComplete, Src: []string{string(StatusStarted)}, Dst: string(StatusCompleted)},
			{Name: eventFail, Src: []string{string(StatusStarted)}, Dst: string(StatusFailed)},
		},
		fsm.Callbacks{},
	)
	if err := machine.Event(context.Background(), event); err != nil {
		return fmt.Errorf("%w: %s on %s: %v", ErrInvalidTransition, event, r.Status, err)
	}
	r.Status = Status(machine.Current())
	return nil
}
