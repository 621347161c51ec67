package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"oee-monitor/internal/application/aggregation"
	runDomain "oee-monitor/internal/domain/aggregation"
	"oee-monitor/internal/domain/oee"
)

// Store 為未設定 DB 時使用的記憶體資料庫，實作彙總與即時查詢所需的全部介面。
type Store struct {
	mu        sync.RWMutex
	machines  map[string]oee.Machine
	intervals map[string][]oee.StateInterval // machineID -> 依開始時間排序
	counts    map[oee.RecordKey]oee.ProductionCount
	records   map[oee.RecordKey]oee.MetricRecord
	runs      map[string]runDomain.Run
	runOrder  []string
}

// NewStore 建立新的記憶體 Store 實例。
func NewStore() *Store {
	return &Store{
		machines:  make(map[string]oee.Machine),
		intervals: make(map[string][]oee.StateInterval),
		counts:    make(map[oee.RecordKey]oee.ProductionCount),
		records:   make(map[oee.RecordKey]oee.MetricRecord),
		runs:      make(map[string]runDomain.Run),
	}
}

// AddMachine 新增或覆寫設備。
func (s *Store) AddMachine(m oee.Machine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.machines[m.ID] = m
}

// AddStateInterval 新增一段設備狀態區間。
func (s *Store) AddStateInterval(iv oee.StateInterval) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.intervals[iv.MachineID], iv)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Start.Before(list[j].Start) })
	s.intervals[iv.MachineID] = list
}

// SeedDemo 建立兩台示範設備與指定日期日班的狀態紀錄，供無 DB 模式的儀表板使用。
func (s *Store) SeedDemo(resolver *oee.ShiftResolver, date time.Time) {
	s.AddMachine(oee.Machine{ID: "M-001", Name: "Press Line 1", TactTimeSec: 30, Active: true})
	s.AddMachine(oee.Machine{ID: "M-002", Name: "Assembly Cell 2", TactTimeSec: 45, Active: true})
	day := resolver.Windows(date)[0]
	add := func(id string, state oee.MachineState, from, to time.Duration) {
		end := day.Start.Add(to)
		s.AddStateInterval(oee.StateInterval{MachineID: id, State: state, Start: day.Start.Add(from), End: &end})
	}
	add("M-001", oee.StateRunning, 0, 4*time.Hour)
	add("M-001", oee.StateDown, 4*time.Hour, 5*time.Hour)
	add("M-001", oee.StateRunning, 5*time.Hour, 9*time.Hour)
	add("M-002", oee.StateSetup, 0, 30*time.Minute)
	add("M-002", oee.StateRunning, 30*time.Minute, 6*time.Hour)
}

// ListActiveMachines 列出啟用中的設備（依 id 排序）。
func (s *Store) ListActiveMachines(ctx context.Context) ([]oee.Machine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []oee.Machine
	for _, m := range s.machines {
		if m.Active {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindMachine 依 id 查詢設備。
func (s *Store) FindMachine(ctx context.Context, id string) (oee.Machine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.machines[id]
	if !ok {
		return oee.Machine{}, fmt.Errorf("%w: %s", oee.ErrMachineNotFound, id)
	}
	return m, nil
}

// FetchStateIntervals 回傳與時間窗重疊的區間；進行中的區間一律視為重疊候選。
func (s *Store) FetchStateIntervals(ctx context.Context, machineID string, w oee.ShiftWindow) ([]oee.StateInterval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []oee.StateInterval
	for _, iv := range s.intervals[machineID] {
		if !iv.Start.Before(w.End) {
			continue
		}
		if iv.End != nil && !iv.End.After(w.Start) {
			continue
		}
		out = append(out, iv)
	}
	return out, nil
}

// FetchProductionCount 查無資料時回傳 (nil, nil)。
func (s *Store) FetchProductionCount(ctx context.Context, machineID string, date time.Time, shift oee.Shift) (*oee.ProductionCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.counts[oee.KeyOf(machineID, date, shift)]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// UpsertProductionCount 以 (machine_id, date, shift) 寫入或覆寫產量；推估值不覆寫人工登錄值。
func (s *Store) UpsertProductionCount(ctx context.Context, c oee.ProductionCount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Source == "" {
		c.Source = oee.SourceManual
	}
	key := oee.KeyOf(c.MachineID, c.Date, c.Shift)
	if existing, ok := s.counts[key]; ok && !existing.Estimated() && c.Estimated() {
		return nil
	}
	s.counts[key] = c
	return nil
}

// UpsertMetricRecord 以 (machine_id, date, shift) 寫入或覆寫 OEE 彙總。
func (s *Store) UpsertMetricRecord(ctx context.Context, rec oee.MetricRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[oee.KeyOf(rec.MachineID, rec.Date, rec.Shift)] = rec
	return nil
}

// FindMetricRecords 依條件查詢，依日期、設備、班別排序。
func (s *Store) FindMetricRecords(ctx context.Context, f aggregation.RecordFilter) ([]oee.MetricRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []oee.MetricRecord
	for key, rec := range s.records {
		if f.Date != nil && key.Date != f.Date.Format(oee.DateLayout) {
			continue
		}
		if f.Shift != "" && key.Shift != f.Shift {
			continue
		}
		if f.MachineID != "" && key.MachineID != f.MachineID {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if a.MachineID != b.MachineID {
			return a.MachineID < b.MachineID
		}
		return a.Shift < b.Shift
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// CreateRun 新增批次紀錄。
func (s *Store) CreateRun(ctx context.Context, run runDomain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	s.runs[run.ID] = run
	s.runOrder = append(s.runOrder, run.ID)
	return nil
}

// FinishRun 更新批次的結束狀態。
func (s *Store) FinishRun(ctx context.Context, run runDomain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; !exists {
		return fmt.Errorf("run %s not found", run.ID)
	}
	s.runs[run.ID] = run
	return nil
}

// ListRuns 由新到舊回傳批次紀錄。
func (s *Store) ListRuns(ctx context.Context, limit int) ([]runDomain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []runDomain.Run
	for i := len(s.runOrder) - 1; i >= 0; i-- {
		out = append(out, s.runs[s.runOrder[i]])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// RecordCount 回傳目前 OEE 彙總筆數，主要供測試驗證冪等性。
func (s *Store) RecordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
