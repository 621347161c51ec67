package aggregation

import (
	"context"
	"time"

	"oee-monitor/internal/domain/oee"

	"go.uber.org/zap"
)

// BackgroundWorker 定期對前一個與目前的生產日執行彙總。
type BackgroundWorker struct {
	orch     *Orchestrator
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
	stopChan chan struct{}
	done     chan struct{}
}

// NewBackgroundWorker 建立背景工作者。
func NewBackgroundWorker(orch *Orchestrator, interval time.Duration, logger *zap.Logger) *BackgroundWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackgroundWorker{
		orch:     orch,
		interval: interval,
		timeout:  5 * time.Minute,
		logger:   logger,
		now:      time.Now,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start 啟動迴圈，啟動後立即執行一次。
func (w *BackgroundWorker) Start() {
	w.logger.Info("starting aggregation worker", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	go func() {
		defer close(w.done)
		defer ticker.Stop()
		w.runOnce()
		for {
			select {
			case <-ticker.C:
				w.runOnce()
			case <-w.stopChan:
				return
			}
		}
	}()
}

// Stop 停止迴圈並等待進行中的批次結束。
func (w *BackgroundWorker) Stop() {
	close(w.stopChan)
	<-w.done
}

// Dates 回傳本輪要彙總的生產日：前一日（補齊已結束的夜班）與目前班別所屬日。
func (w *BackgroundWorker) Dates() []time.Time {
	current, _ := w.orch.Resolver().Current(w.now())
	return []time.Time{current.AddDate(0, 0, -1), current}
}

func (w *BackgroundWorker) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	for _, d := range w.Dates() {
		res, err := w.orch.Execute(ctx, d)
		if err != nil {
			w.logger.Error("scheduled aggregation failed", zap.String("date", d.Format(oee.DateLayout)), zap.Error(err))
			continue
		}
		w.logger.Info("scheduled aggregation done",
			zap.String("date", d.Format(oee.DateLayout)),
			zap.Int("processed", res.ProcessedRecords),
			zap.Int("skipped", len(res.Skipped)),
		)
	}
}
