package oee

import (
	"fmt"
	"time"
)

// DefaultDayStartHour 為日班起始時刻，夜班固定於其後 12 小時開始。
const DefaultDayStartHour = 8

// ShiftWindow 為單一班別的絕對時間範圍 [Start, End)，僅推導不落地。
type ShiftWindow struct {
	Shift Shift
	Start time.Time
	End   time.Time
}

// Contains 判斷時間點是否落在班別內。
func (w ShiftWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Minutes 回傳班別長度（分鐘）。
func (w ShiftWindow) Minutes() float64 {
	return w.End.Sub(w.Start).Minutes()
}

func (w ShiftWindow) String() string {
	return fmt.Sprintf("%s[%s,%s)", w.Shift, w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

// ShiftResolver 依固定的日/夜班交界（預設 08:00 / 20:00）推導班別時間窗。
type ShiftResolver struct {
	loc          *time.Location
	dayStartHour int
}

// NewShiftResolver 建立班別解析器；loc 為 nil 時使用 UTC。
func NewShiftResolver(loc *time.Location, dayStartHour int) (*ShiftResolver, error) {
	if loc == nil {
		loc = time.UTC
	}
	if dayStartHour < 0 || dayStartHour > 11 {
		return nil, fmt.Errorf("day start hour must be within 0-11, got %d", dayStartHour)
	}
	return &ShiftResolver{loc: loc, dayStartHour: dayStartHour}, nil
}

// Location 回傳班別所在時區。
func (r *ShiftResolver) Location() *time.Location {
	return r.loc
}

// Date 將任意時間正規化為該時區的日曆日（00:00）。
func (r *ShiftResolver) Date(t time.Time) time.Time {
	local := t.In(r.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, r.loc)
}

// ParseDate 以班別時區解析 YYYY-MM-DD。
func (r *ShiftResolver) ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, r.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return d, nil
}

// Windows 回傳指定日期的日班 [D 08:00, D 20:00) 與跨日夜班 [D 20:00, D+1 08:00)。
func (r *ShiftResolver) Windows(date time.Time) []ShiftWindow {
	d := r.Date(date)
	dayStart := time.Date(d.Year(), d.Month(), d.Day(), r.dayStartHour, 0, 0, 0, r.loc)
	nightStart := time.Date(d.Year(), d.Month(), d.Day(), r.dayStartHour+12, 0, 0, 0, r.loc)
	nextDayStart := time.Date(d.Year(), d.Month(), d.Day()+1, r.dayStartHour, 0, 0, 0, r.loc)
	return []ShiftWindow{
		{Shift: ShiftDay, Start: dayStart, End: nightStart},
		{Shift: ShiftNight, Start: nightStart, End: nextDayStart},
	}
}

// Window 回傳指定日期與班別的時間窗。
func (r *ShiftResolver) Window(date time.Time, shift Shift) (ShiftWindow, error) {
	for _, w := range r.Windows(date) {
		if w.Shift == shift {
			return w, nil
		}
	}
	return ShiftWindow{}, fmt.Errorf("unknown shift %q", shift)
}

// Current 回傳包含 now 的班別與其生產日期；清晨交班前屬於前一日的夜班。
func (r *ShiftResolver) Current(now time.Time) (time.Time, ShiftWindow) {
	local := now.In(r.loc)
	date := r.Date(local)
	hour := local.Hour()
	switch {
	case hour < r.dayStartHour:
		date = date.AddDate(0, 0, -1)
		return date, r.Windows(date)[1]
	case hour < r.dayStartHour+12:
		return date, r.Windows(date)[0]
	default:
		return date, r.Windows(date)[1]
	}
}
