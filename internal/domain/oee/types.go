package oee

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout 為生產日期的字串格式。
const DateLayout = "2006-01-02"

// ErrMachineNotFound 表示查無指定設備。
var ErrMachineNotFound = errors.New("machine not found")

// MachineState 為設備狀態紀錄中的狀態值。
type MachineState string

const (
	StateRunning     MachineState = "running"
	StateIdle        MachineState = "idle"
	StateDown        MachineState = "down"
	StateSetup       MachineState = "setup"
	StateMaintenance MachineState = "maintenance"
)

// Machine 描述一台納入 OEE 計算的設備。
type Machine struct {
	ID          string
	Name        string
	TactTimeSec float64 // 單件標準節拍（秒）
	Active      bool
}

// StateInterval 為設備狀態區間；End 為 nil 表示區間仍在進行中。
type StateInterval struct {
	MachineID string
	State     MachineState
	Start     time.Time
	End       *time.Time
}

// Ongoing 判斷區間是否尚未結束。
func (s StateInterval) Ongoing() bool {
	return s.End == nil
}

// Shift 為班別。
type Shift string

const (
	ShiftDay   Shift = "day"
	ShiftNight Shift = "night"
)

// Shifts 依固定順序列出每日班別。
var Shifts = []Shift{ShiftDay, ShiftNight}

// ParseShift 解析班別字串。
func ParseShift(s string) (Shift, error) {
	switch Shift(s) {
	case ShiftDay, ShiftNight:
		return Shift(s), nil
	default:
		return "", fmt.Errorf("unknown shift %q", s)
	}
}

// CountSource 標記產量資料來源。
type CountSource string

const (
	SourceManual    CountSource = "manual"
	SourceEstimated CountSource = "estimated"
)

// ProductionCount 為單一設備、日期、班別的產量紀錄。
type ProductionCount struct {
	MachineID string
	Date      time.Time
	Shift     Shift
	OutputQty int
	DefectQty int
	Source    CountSource
}

// Estimated 判斷此筆產量是否由節拍推估而來。
func (p ProductionCount) Estimated() bool {
	return p.Source == SourceEstimated
}

// MetricRecord 為每個 (machine, date, shift) 唯一一筆的 OEE 彙總結果。
type MetricRecord struct {
	MachineID         string
	Date              time.Time
	Shift             Shift
	Availability      float64
	Performance       float64
	Quality           float64
	OEE               float64
	ActualRuntimeMin  float64
	PlannedRuntimeMin float64
	IdealRuntimeMin   float64
	OutputQty         int
	DefectQty         int
	UpdatedAt         time.Time
}

// RecordKey 為 MetricRecord / ProductionCount 的自然鍵。
type RecordKey struct {
	MachineID string
	Date      string
	Shift     Shift
}

// KeyOf 組出自然鍵，日期以 DateLayout 正規化。
func KeyOf(machineID string, date time.Time, shift Shift) RecordKey {
	return RecordKey{MachineID: machineID, Date: date.Format(DateLayout), Shift: shift}
}
