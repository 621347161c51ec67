package oee

// Input 為單一設備、單一班別的計算輸入。
type Input struct {
	ActualRuntimeMin  float64
	PlannedRuntimeMin float64
	TactTimeSec       float64
	Count             *ProductionCount // nil 表示尚無產量紀錄
}

// Result 為三率、OEE 與計算過程中使用的數值。
type Result struct {
	Availability      float64
	Performance       float64
	Quality           float64
	OEE               float64
	ActualRuntimeMin  float64
	PlannedRuntimeMin float64
	IdealRuntimeMin   float64
	OutputQty         int
	DefectQty         int
	Estimated         bool
}

// Compute 為批次彙總與即時查詢共用的計算流程：
// 決定產量（必要時推估）→ 理想運轉時間 → 稼動率 / 效率 / 良率 → OEE。
func Compute(in Input) (Result, error) {
	prod, err := ResolveProduction(in.Count, in.ActualRuntimeMin, in.TactTimeSec)
	if err != nil {
		return Result{}, err
	}
	availability, err := Availability(in.ActualRuntimeMin, in.PlannedRuntimeMin)
	if err != nil {
		return Result{}, err
	}
	ideal, err := IdealRuntimeMinutes(prod.OutputQty, in.TactTimeSec)
	if err != nil {
		return Result{}, err
	}
	quality, err := Quality(prod.OutputQty, prod.DefectQty)
	if err != nil {
		return Result{}, err
	}
	performance := Performance(ideal, in.ActualRuntimeMin)

	return Result{
		Availability:      availability,
		Performance:       performance,
		Quality:           quality,
		OEE:               OEE(availability, performance, quality),
		ActualRuntimeMin:  in.ActualRuntimeMin,
		PlannedRuntimeMin: in.PlannedRuntimeMin,
		IdealRuntimeMin:   ideal,
		OutputQty:         prod.OutputQty,
		DefectQty:         prod.DefectQty,
		Estimated:         prod.Estimated,
	}, nil
}
