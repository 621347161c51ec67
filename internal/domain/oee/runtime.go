package oee

import "time"

// StateDurations 將每段狀態區間裁切至時間窗 [max(start, w.Start), min(end, w.End))，
// 並彙總各狀態的分鐘數。進行中的區間以 openEnd 作為結束時間：
// 即時計算傳入 now，歷史班別傳入 w.End。
//
// 同一設備的區間假設互不重疊（由狀態紀錄端保證）；此處不做合併，
// 若上游違反此條件，重疊部分會被重複計入。
func StateDurations(intervals []StateInterval, w ShiftWindow, openEnd time.Time) map[MachineState]float64 {
	out := make(map[MachineState]float64)
	for _, iv := range intervals {
		if minutes := clippedMinutes(iv, w, openEnd); minutes > 0 {
			out[iv.State] += minutes
		}
	}
	return out
}

// AccumulateState 累計指定狀態在時間窗內的分鐘數，恆為非負。
func AccumulateState(intervals []StateInterval, w ShiftWindow, openEnd time.Time, state MachineState) float64 {
	total := 0.0
	for _, iv := range intervals {
		if iv.State != state {
			continue
		}
		total += clippedMinutes(iv, w, openEnd)
	}
	return total
}

// RunningMinutes 累計 running 狀態在時間窗內的分鐘數。
func RunningMinutes(intervals []StateInterval, w ShiftWindow, openEnd time.Time) float64 {
	return AccumulateState(intervals, w, openEnd, StateRunning)
}

func clippedMinutes(iv StateInterval, w ShiftWindow, openEnd time.Time) float64 {
	end := openEnd
	if iv.End != nil {
		end = *iv.End
	}
	start := iv.Start
	if start.Before(w.Start) {
		start = w.Start
	}
	if end.After(w.End) {
		end = w.End
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start).Minutes()
}
