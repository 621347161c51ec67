package aggregation

import (
	"context"
	"fmt"
	"sort"
	"time"

	runDomain "oee-monitor/internal/domain/aggregation"
	"oee-monitor/internal/domain/oee"

	"gonum.org/v1/gonum/stat"
)

// RecordFilter 為 OEE 彙總查詢條件，零值欄位不套用。
type RecordFilter struct {
	Date      *time.Time
	Shift     oee.Shift
	MachineID string
	Limit     int
}

// QueryRepository 提供已彙總資料與稽核紀錄的讀取。
type QueryRepository interface {
	FindMetricRecords(ctx context.Context, filter RecordFilter) ([]oee.MetricRecord, error)
	ListRuns(ctx context.Context, limit int) ([]runDomain.Run, error)
}

// QueryUseCase 供儀表板讀取彙總結果、班別平均與批次紀錄。
type QueryUseCase struct {
	repo QueryRepository
}

func NewQueryUseCase(repo QueryRepository) *QueryUseCase {
	return &QueryUseCase{repo: repo}
}

// Records 查詢 OEE 彙總紀錄。
func (u *QueryUseCase) Records(ctx context.Context, filter RecordFilter) ([]oee.MetricRecord, error) {
	if filter.Limit <= 0 || filter.Limit > 1000 {
		filter.Limit = 1000
	}
	recs, err := u.repo.FindMetricRecords(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find metric records: %w", err)
	}
	return recs, nil
}

// ShiftSummary 為單一班別所有設備的平均值。
type ShiftSummary struct {
	Shift        oee.Shift `json:"shift"`
	Machines     int       `json:"machines"`
	Availability float64   `json:"availability"`
	Performance  float64   `json:"performance"`
	Quality      float64   `json:"quality"`
	OEE          float64   `json:"oee"`
	OutputQty    int       `json:"output_qty"`
	DefectQty    int       `json:"defect_qty"`
}

// Summary 計算指定日期各班別的平均三率與 OEE。
func (u *QueryUseCase) Summary(ctx context.Context, date time.Time) ([]ShiftSummary, error) {
	recs, err := u.Records(ctx, RecordFilter{Date: &date})
	if err != nil {
		return nil, err
	}
	return Summarize(recs), nil
}

// Summarize 依班別分組並以 gonum/stat 計算平均；OEE 平均沿用三位小數。
func Summarize(recs []oee.MetricRecord) []ShiftSummary {
	groups := make(map[oee.Shift][]oee.MetricRecord)
	for _, r := range recs {
		groups[r.Shift] = append(groups[r.Shift], r)
	}

	out := make([]ShiftSummary, 0, len(groups))
	for shift, rs := range groups {
		availability := make([]float64, len(rs))
		performance := make([]float64, len(rs))
		quality := make([]float64, len(rs))
		oees := make([]float64, len(rs))
		sum := ShiftSummary{Shift: shift, Machines: len(rs)}
		for i, r := range rs {
			availability[i] = r.Availability
			performance[i] = r.Performance
			quality[i] = r.Quality
			oees[i] = r.OEE
			sum.OutputQty += r.OutputQty
			sum.DefectQty += r.DefectQty
		}
		sum.Availability = stat.Mean(availability, nil)
		sum.Performance = stat.Mean(performance, nil)
		sum.Quality = stat.Mean(quality, nil)
		sum.OEE = oee.OEE(stat.Mean(oees, nil), 1, 1)
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return shiftOrder(out[i].Shift) < shiftOrder(out[j].Shift) })
	return out
}

// Runs 回傳最新的批次紀錄（新到舊）。
func (u *QueryUseCase) Runs(ctx context.Context, limit int) ([]runDomain.Run, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	runs, err := u.repo.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func shiftOrder(s oee.Shift) int {
	for i, v := range oee.Shifts {
		if v == s {
			return i
		}
	}
	return len(oee.Shifts)
}
