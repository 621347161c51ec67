package oee

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const (
	DefaultShiftHours   = 12
	DefaultBreakMinutes = 60
)

// ErrInvalidInput 表示計算前置條件不成立（非正的計畫時間、節拍或負的不良數）。
var ErrInvalidInput = errors.New("invalid input")

// IsInvalidInput 檢查錯誤是否為計算輸入錯誤。
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// Availability 稼動率 = 實際運轉 / 計畫運轉，結果限制在 [0,1]。
func Availability(actualRuntimeMin, plannedRuntimeMin float64) (float64, error) {
	if plannedRuntimeMin <= 0 {
		return 0, fmt.Errorf("%w: planned runtime must be > 0, got %v", ErrInvalidInput, plannedRuntimeMin)
	}
	return clamp01(actualRuntimeMin / plannedRuntimeMin), nil
}

// Performance 效率 = 理想運轉 / 實際運轉；實際運轉為 0 時回傳 0。
func Performance(idealRuntimeMin, actualRuntimeMin float64) float64 {
	if actualRuntimeMin <= 0 {
		return 0
	}
	return clamp01(idealRuntimeMin / actualRuntimeMin)
}

// Quality 良率 = (產出 - 不良) / 產出；無產出時回傳 0。
func Quality(outputQty, defectQty int) (float64, error) {
	if defectQty < 0 {
		return 0, fmt.Errorf("%w: defect qty must be >= 0, got %d", ErrInvalidInput, defectQty)
	}
	if outputQty <= 0 {
		return 0, nil
	}
	return clamp01(float64(outputQty-defectQty) / float64(outputQty)), nil
}

// OEE 為三率乘積，四捨五入至小數第三位。
func OEE(availability, performance, quality float64) float64 {
	product := availability * performance * quality
	if math.IsNaN(product) || math.IsInf(product, 0) {
		return 0
	}
	v, _ := decimal.NewFromFloat(product).Round(3).Float64()
	return v
}

// IdealRuntimeMinutes 以產量與節拍換算理想運轉分鐘數。
func IdealRuntimeMinutes(outputQty int, tactTimeSec float64) (float64, error) {
	if tactTimeSec <= 0 {
		return 0, fmt.Errorf("%w: tact time must be > 0, got %v", ErrInvalidInput, tactTimeSec)
	}
	return float64(outputQty) * tactTimeSec / 60, nil
}

// PlannedRuntimeMinutes 計畫運轉時間為班別時數扣除休息，屬政策常數而非由紀錄推導。
func PlannedRuntimeMinutes(shiftHours, breakMinutes float64) float64 {
	return shiftHours*60 - breakMinutes
}

// Policy 彙整計算時使用的政策參數。
type Policy struct {
	ShiftHours   float64
	BreakMinutes float64
	RunningState MachineState
}

// DefaultPolicy 回傳 12 小時班、休息 60 分鐘、以 running 為運轉狀態的預設政策。
func DefaultPolicy() Policy {
	return Policy{
		ShiftHours:   DefaultShiftHours,
		BreakMinutes: DefaultBreakMinutes,
		RunningState: StateRunning,
	}
}

// PlannedRuntimeMinutes 依政策計算每班計畫運轉分鐘數。
func (p Policy) PlannedRuntimeMinutes() float64 {
	return PlannedRuntimeMinutes(p.ShiftHours, p.BreakMinutes)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
