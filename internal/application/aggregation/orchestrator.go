package aggregation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"oee-monitor/internal"
	runDomain "oee-monitor/internal/domain/aggregation"
	"oee-monitor/internal/domain/oee"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultMaxBackfillDays = 31

// Orchestrator 依目標日期對所有啟用設備 × 兩個班別計算 OEE，並以自然鍵冪等寫入。
// 同日重跑會以最新計算結果覆寫；兩個同日批次並行時採 last write wins。
type Orchestrator struct {
	repo            Repository
	resolver        *oee.ShiftResolver
	policy          oee.Policy
	logger          *zap.Logger
	notifier        Notifier
	observer        Observer
	now             func() time.Time
	newID           func() string
	maxBackfillDays int
}

// Option 調整 Orchestrator 的可選依賴。
type Option func(*Orchestrator)

// WithNotifier 設定批次異常通知；nil（含 typed nil）視為未設定。
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		if internal.IsNil(n) {
			o.notifier = nil
			return
		}
		o.notifier = n
	}
}

// WithObserver 設定指標收集器。
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithClock 注入時間來源，供測試使用。
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator 注入批次 id 產生器。
func WithIDGenerator(gen func() string) Option {
	return func(o *Orchestrator) { o.newID = gen }
}

// WithMaxBackfillDays 設定單次回補的最大天數。
func WithMaxBackfillDays(days int) Option {
	return func(o *Orchestrator) {
		if days > 0 {
			o.maxBackfillDays = days
		}
	}
}

// NewOrchestrator 建立批次彙總流程。
func NewOrchestrator(repo Repository, resolver *oee.ShiftResolver, policy oee.Policy, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		repo:            repo,
		resolver:        resolver,
		policy:          policy,
		logger:          logger,
		observer:        nopObserver{},
		now:             time.Now,
		newID:           uuid.NewString,
		maxBackfillDays: defaultMaxBackfillDays,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Resolver 回傳班別解析器。
func (o *Orchestrator) Resolver() *oee.ShiftResolver {
	return o.resolver
}

// MachineShiftResult 為單一設備、單一班別的計算結果。
type MachineShiftResult struct {
	MachineID    string    `json:"machine_id"`
	Shift        oee.Shift `json:"shift"`
	Availability float64   `json:"availability"`
	Performance  float64   `json:"performance"`
	Quality      float64   `json:"quality"`
	OEE          float64   `json:"oee"`
	OutputQty    int       `json:"output_qty"`
	DefectQty    int       `json:"defect_qty"`
	Estimated    bool      `json:"estimated"`
}

// SkippedCombination 記錄被略過的組合與原因。
type SkippedCombination struct {
	MachineID string    `json:"machine_id"`
	Shift     oee.Shift `json:"shift"`
	Reason    string    `json:"reason"`
}

// RunResult 為一次批次執行的摘要。
type RunResult struct {
	RunID            string
	Date             time.Time
	Status           runDomain.Status
	ProcessedRecords int
	Results          []MachineShiftResult
	Skipped          []SkippedCombination
	Duration         time.Duration
}

// Execute 對目標日期執行一次彙總。
// 單一組合的讀取或計算錯誤只會略過該組合；無法列出設備等迴圈外錯誤會將批次標記為 failed，
// 並回傳包裝 ErrRunFailed 的錯誤。
func (o *Orchestrator) Execute(ctx context.Context, date time.Time) (RunResult, error) {
	date = o.resolver.Date(date)
	start := o.now()
	run := runDomain.NewRun(o.newID(), start, date)
	result := RunResult{RunID: run.ID, Date: date, Status: run.Status}
	log := o.logger.With(zap.String("run_id", run.ID), zap.String("date", date.Format(oee.DateLayout)))

	if err := o.repo.CreateRun(ctx, run); err != nil {
		return result, fmt.Errorf("%w: create run: %v", ErrRunFailed, err)
	}
	log.Info("aggregation run started")

	machines, err := o.repo.ListActiveMachines(ctx)
	if err != nil {
		runErr := fmt.Errorf("list active machines: %w", err)
		o.finishFailed(ctx, &run, &result, runErr, start, log)
		return result, fmt.Errorf("%w: %v", ErrRunFailed, runErr)
	}

	windows := o.resolver.Windows(date)
	for _, m := range machines {
		for _, w := range windows {
			res, err := o.processCombination(ctx, m, date, w)
			if err != nil {
				log.Warn("skip machine shift",
					zap.String("machine_id", m.ID),
					zap.String("shift", string(w.Shift)),
					zap.Error(err),
				)
				result.Skipped = append(result.Skipped, SkippedCombination{MachineID: m.ID, Shift: w.Shift, Reason: err.Error()})
				o.observer.CombinationProcessed(OutcomeSkipped)
				continue
			}
			result.Results = append(result.Results, res)
			o.observer.CombinationProcessed(OutcomeProcessed)
		}
	}

	elapsed := o.now().Sub(start)
	result.ProcessedRecords = len(result.Results)
	result.Duration = elapsed
	if err := run.Complete(result.ProcessedRecords, elapsed); err != nil {
		return result, fmt.Errorf("%w: %v", ErrRunFailed, err)
	}
	result.Status = run.Status
	if err := o.repo.FinishRun(ctx, run); err != nil {
		log.Error("update aggregation run failed", zap.Error(err))
	}
	o.observer.RunFinished(run.Status, elapsed)
	log.Info("aggregation run completed",
		zap.Int("processed", result.ProcessedRecords),
		zap.Int("skipped", len(result.Skipped)),
		zap.Duration("duration", elapsed),
	)
	if len(result.Skipped) > 0 {
		o.notify(ctx, fmt.Sprintf("OEE aggregation %s completed with %d skipped combinations (processed=%d)",
			date.Format(oee.DateLayout), len(result.Skipped), result.ProcessedRecords), log)
	}
	return result, nil
}

func (o *Orchestrator) finishFailed(ctx context.Context, run *runDomain.Run, result *RunResult, cause error, start time.Time, log *zap.Logger) {
	elapsed := o.now().Sub(start)
	result.Duration = elapsed
	if err := run.Fail(cause, result.ProcessedRecords, elapsed); err != nil {
		log.Error("mark run failed", zap.Error(err))
		return
	}
	result.Status = run.Status
	if err := o.repo.FinishRun(ctx, *run); err != nil {
		log.Error("update aggregation run failed", zap.Error(err))
	}
	o.observer.RunFinished(run.Status, elapsed)
	log.Error("aggregation run failed", zap.Error(cause), zap.Duration("duration", elapsed))
	o.notify(ctx, fmt.Sprintf("OEE aggregation %s failed: %v", run.TargetDate.Format(oee.DateLayout), cause), log)
}

func (o *Orchestrator) processCombination(ctx context.Context, m oee.Machine, date time.Time, w oee.ShiftWindow) (MachineShiftResult, error) {
	intervals, err := o.repo.FetchStateIntervals(ctx, m.ID, w)
	if err != nil {
		return MachineShiftResult{}, &FetchError{MachineID: m.ID, Shift: w.Shift, Op: "fetch state intervals", Err: err}
	}
	count, err := o.repo.FetchProductionCount(ctx, m.ID, date, w.Shift)
	if err != nil {
		return MachineShiftResult{}, &FetchError{MachineID: m.ID, Shift: w.Shift, Op: "fetch production count", Err: err}
	}

	// 尚未結束的班別不可把進行中區間延伸到未來。
	openEnd := w.End
	if now := o.now(); now.Before(openEnd) {
		openEnd = now
	}
	actual := oee.AccumulateState(intervals, w, openEnd, o.policy.RunningState)

	res, err := oee.Compute(oee.Input{
		ActualRuntimeMin:  actual,
		PlannedRuntimeMin: o.policy.PlannedRuntimeMinutes(),
		TactTimeSec:       m.TactTimeSec,
		Count:             count,
	})
	if err != nil {
		return MachineShiftResult{}, fmt.Errorf("compute machine=%s shift=%s: %w", m.ID, w.Shift, err)
	}

	if res.Estimated {
		estimated := oee.ProductionCount{
			MachineID: m.ID,
			Date:      date,
			Shift:     w.Shift,
			OutputQty: res.OutputQty,
			DefectQty: res.DefectQty,
			Source:    oee.SourceEstimated,
		}
		if err := o.repo.UpsertProductionCount(ctx, estimated); err != nil {
			return MachineShiftResult{}, fmt.Errorf("store estimated count machine=%s shift=%s: %w", m.ID, w.Shift, err)
		}
	}

	rec := oee.MetricRecord{
		MachineID:         m.ID,
		Date:              date,
		Shift:             w.Shift,
		Availability:      res.Availability,
		Performance:       res.Performance,
		Quality:           res.Quality,
		OEE:               res.OEE,
		ActualRuntimeMin:  res.ActualRuntimeMin,
		PlannedRuntimeMin: res.PlannedRuntimeMin,
		IdealRuntimeMin:   res.IdealRuntimeMin,
		OutputQty:         res.OutputQty,
		DefectQty:         res.DefectQty,
		UpdatedAt:         o.now(),
	}
	if err := o.repo.UpsertMetricRecord(ctx, rec); err != nil {
		return MachineShiftResult{}, fmt.Errorf("upsert metric record machine=%s shift=%s: %w", m.ID, w.Shift, err)
	}

	return MachineShiftResult{
		MachineID:    m.ID,
		Shift:        w.Shift,
		Availability: res.Availability,
		Performance:  res.Performance,
		Quality:      res.Quality,
		OEE:          res.OEE,
		OutputQty:    res.OutputQty,
		DefectQty:    res.DefectQty,
		Estimated:    res.Estimated,
	}, nil
}

// Backfill 依序對 [from, to] 每一天執行彙總，天數不得超過上限。
// 單日失敗不會中斷後續日期，所有錯誤合併回傳。
func (o *Orchestrator) Backfill(ctx context.Context, from, to time.Time) ([]RunResult, error) {
	from, to = o.resolver.Date(from), o.resolver.Date(to)
	if to.Before(from) {
		return nil, fmt.Errorf("%w: end %s before start %s", ErrBackfillRange, to.Format(oee.DateLayout), from.Format(oee.DateLayout))
	}
	days := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days++
	}
	if days > o.maxBackfillDays {
		return nil, fmt.Errorf("%w: %d days exceeds limit %d", ErrBackfillRange, days, o.maxBackfillDays)
	}

	var (
		results []RunResult
		errs    []error
	)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := o.Execute(ctx, d)
		if err != nil {
			errs = append(errs, fmt.Errorf("date %s: %w", d.Format(oee.DateLayout), err))
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

func (o *Orchestrator) notify(ctx context.Context, text string, log *zap.Logger) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.SendMessage(ctx, text); err != nil {
		log.Warn("send aggregation notification failed", zap.Error(err))
	}
}
