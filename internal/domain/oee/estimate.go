package oee

import (
	"fmt"
	"math"
)

// Production 為計算時實際採用的產量（人工登錄或推估）。
type Production struct {
	OutputQty int
	DefectQty int
	Estimated bool
}

// EstimateOutput 以實際運轉時間與節拍推估產量：floor(runtime*60/tact)。
func EstimateOutput(actualRuntimeMin, tactTimeSec float64) (int, error) {
	if tactTimeSec <= 0 {
		return 0, fmt.Errorf("%w: tact time must be > 0, got %v", ErrInvalidInput, tactTimeSec)
	}
	if actualRuntimeMin <= 0 {
		return 0, nil
	}
	return int(math.Floor(actualRuntimeMin * 60 / tactTimeSec)), nil
}

// ResolveProduction 決定本次計算使用的產量。
// 無產量紀錄或既有紀錄本身為推估值時，依當下運轉時間重新推估，不良數為 0；
// 人工登錄的紀錄直接採用。
func ResolveProduction(count *ProductionCount, actualRuntimeMin, tactTimeSec float64) (Production, error) {
	if count != nil && !count.Estimated() {
		return Production{OutputQty: count.OutputQty, DefectQty: count.DefectQty}, nil
	}
	qty, err := EstimateOutput(actualRuntimeMin, tactTimeSec)
	if err != nil {
		return Production{}, err
	}
	return Production{OutputQty: qty, Estimated: true}, nil
}
