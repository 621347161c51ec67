package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"oee-monitor/internal/application/aggregation"
	runDomain "oee-monitor/internal/domain/aggregation"
	"oee-monitor/internal/domain/oee"
)

// Repo 提供 Postgres 資料存取，涵蓋設備、狀態紀錄、產量、OEE 彙總與批次稽核。
type Repo struct {
	db *sql.DB
}

// NewRepo 建立 Postgres 資料存取實例。
func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// ListActiveMachines 列出啟用中的設備。
func (r *Repo) ListActiveMachines(ctx context.Context) ([]oee.Machine, error) {
	const q = `
SELECT id, name, tact_time_sec, active
FROM machines
WHERE active = TRUE
ORDER BY id;
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []oee.Machine
	for rows.Next() {
		var m oee.Machine
		if err := rows.Scan(&m.ID, &m.Name, &m.TactTimeSec, &m.Active); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// FindMachine 依 id 查詢設備，查無時回傳 oee.ErrMachineNotFound。
func (r *Repo) FindMachine(ctx context.Context, id string) (oee.Machine, error) {
	const q = `SELECT id, name, tact_time_sec, active FROM machines WHERE id = $1;`
	var m oee.Machine
	err := r.db.QueryRowContext(ctx, q, id).Scan(&m.ID, &m.Name, &m.TactTimeSec, &m.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return oee.Machine{}, fmt.Errorf("%w: %s", oee.ErrMachineNotFound, id)
	}
	if err != nil {
		return oee.Machine{}, err
	}
	return m, nil
}

// FetchStateIntervals 取出與時間窗重疊的狀態區間（含進行中的區間）。
func (r *Repo) FetchStateIntervals(ctx context.Context, machineID string, w oee.ShiftWindow) ([]oee.StateInterval, error) {
	const q = `
SELECT machine_id, state, started_at, ended_at
FROM machine_state_logs
WHERE machine_id = $1
  AND started_at < $3
  AND (ended_at IS NULL OR ended_at > $2)
ORDER BY started_at;
`
	rows, err := r.db.QueryContext(ctx, q, machineID, w.Start, w.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []oee.StateInterval
	for rows.Next() {
		var (
			iv    oee.StateInterval
			state string
			end   sql.NullTime
		)
		if err := rows.Scan(&iv.MachineID, &state, &iv.Start, &end); err != nil {
			return nil, err
		}
		iv.State = oee.MachineState(state)
		if end.Valid {
			t := end.Time
			iv.End = &t
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

// FetchProductionCount 查無資料時回傳 (nil, nil)。
func (r *Repo) FetchProductionCount(ctx context.Context, machineID string, date time.Time, shift oee.Shift) (*oee.ProductionCount, error) {
	const q = `
SELECT output_qty, defect_qty, source
FROM production_counts
WHERE machine_id = $1 AND production_date = $2 AND shift = $3;
`
	c := oee.ProductionCount{MachineID: machineID, Date: date, Shift: shift}
	var source string
	err := r.db.QueryRowContext(ctx, q, machineID, date.Format(oee.DateLayout), string(shift)).
		Scan(&c.OutputQty, &c.DefectQty, &source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Source = oee.CountSource(source)
	return &c, nil
}

// UpsertProductionCount 以 (machine_id, production_date, shift) 寫入或更新產量。
// 推估值不會覆寫已存在的人工登錄值。
func (r *Repo) UpsertProductionCount(ctx context.Context, c oee.ProductionCount) error {
	const q = `
INSERT INTO production_counts (machine_id, production_date, shift, output_qty, defect_qty, source)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (machine_id, production_date, shift)
DO UPDATE SET output_qty = EXCLUDED.output_qty,
              defect_qty = EXCLUDED.defect_qty,
              source = EXCLUDED.source,
              updated_at = NOW()
WHERE production_counts.source = 'estimated' OR EXCLUDED.source = 'manual';
`
	source := c.Source
	if source == "" {
		source = oee.SourceManual
	}
	_, err := r.db.ExecContext(ctx, q,
		c.MachineID,
		c.Date.Format(oee.DateLayout),
		string(c.Shift),
		c.OutputQty,
		c.DefectQty,
		string(source),
	)
	return err
}

// UpsertMetricRecord 以 (machine_id, metric_date, shift) 寫入或更新 OEE 彙總。
func (r *Repo) UpsertMetricRecord(ctx context.Context, rec oee.MetricRecord) error {
	const q = `
INSERT INTO oee_metrics (machine_id, metric_date, shift, availability, performance, quality, oee,
                         actual_runtime_min, planned_runtime_min, ideal_runtime_min, output_qty, defect_qty, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (machine_id, metric_date, shift)
DO UPDATE SET availability = EXCLUDED.availability,
              performance = EXCLUDED.performance,
              quality = EXCLUDED.quality,
              oee = EXCLUDED.oee,
              actual_runtime_min = EXCLUDED.actual_runtime_min,
              planned_runtime_min = EXCLUDED.planned_runtime_min,
              ideal_runtime_min = EXCLUDED.ideal_runtime_min,
              output_qty = EXCLUDED.output_qty,
              defect_qty = EXCLUDED.defect_qty,
              updated_at = EXCLUDED.updated_at;
`
	_, err := r.db.ExecContext(ctx, q,
		rec.MachineID,
		rec.Date.Format(oee.DateLayout),
		string(rec.Shift),
		rec.Availability,
		rec.Performance,
		rec.Quality,
		rec.OEE,
		rec.ActualRuntimeMin,
		rec.PlannedRuntimeMin,
		rec.IdealRuntimeMin,
		rec.OutputQty,
		rec.DefectQty,
		rec.UpdatedAt,
	)
	return err
}

// FindMetricRecords 依條件查詢 OEE 彙總，新日期在前。
func (r *Repo) FindMetricRecords(ctx context.Context, filter aggregation.RecordFilter) ([]oee.MetricRecord, error) {
	q := `
SELECT machine_id, metric_date, shift, availability, performance, quality, oee,
       actual_runtime_min, planned_runtime_min, ideal_runtime_min, output_qty, defect_qty, updated_at
FROM oee_metrics`
	args := []interface{}{}
	conds := []string{}
	if filter.Date != nil {
		conds = append(conds, fmt.Sprintf("metric_date = $%d", len(args)+1))
		args = append(args, filter.Date.Format(oee.DateLayout))
	}
	if filter.Shift != "" {
		conds = append(conds, fmt.Sprintf("shift = $%d", len(args)+1))
		args = append(args, string(filter.Shift))
	}
	if filter.MachineID != "" {
		conds = append(conds, fmt.Sprintf("machine_id = $%d", len(args)+1))
		args = append(args, filter.MachineID)
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY metric_date DESC, machine_id, shift"
	if filter.Limit > 0 {
		q += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []oee.MetricRecord
	for rows.Next() {
		var (
			rec   oee.MetricRecord
			shift string
		)
		if err := rows.Scan(&rec.MachineID, &rec.Date, &shift, &rec.Availability, &rec.Performance, &rec.Quality, &rec.OEE,
			&rec.ActualRuntimeMin, &rec.PlannedRuntimeMin, &rec.IdealRuntimeMin, &rec.OutputQty, &rec.DefectQty, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.Shift = oee.Shift(shift)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CreateRun 寫入批次開始紀錄。
func (r *Repo) CreateRun(ctx context.Context, run runDomain.Run) error {
	const q = `
INSERT INTO aggregation_runs (id, execution_date, target_date, status, processed_records, created_at)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err := r.db.ExecContext(ctx, q,
		run.ID,
		run.ExecutionTime,
		run.TargetDate.Format(oee.DateLayout),
		string(run.Status),
		run.ProcessedRecords,
		run.CreatedAt,
	)
	return err
}

// FinishRun 依 id 更新批次的終止狀態。
func (r *Repo) FinishRun(ctx context.Context, run runDomain.Run) error {
	const q = `
UPDATE aggregation_runs
SET status = $2, processed_records = $3, error_message = NULLIF($4, ''), execution_time_ms = $5
WHERE id = $1;
`
	res, err := r.db.ExecContext(ctx, q, run.ID, string(run.Status), run.ProcessedRecords, run.ErrorMessage, run.ExecutionTimeMs)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("aggregation run %s not found", run.ID)
	}
	return nil
}

// ListRuns 回傳最新的批次紀錄。
func (r *Repo) ListRuns(ctx context.Context, limit int) ([]runDomain.Run, error) {
	const q = `
SELECT id, execution_date, target_date, status, processed_records,
       COALESCE(error_message, ''), COALESCE(execution_time_ms, 0), created_at
FROM aggregation_runs
ORDER BY created_at DESC
LIMIT $1;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []runDomain.Run
	for rows.Next() {
		var (
			run    runDomain.Run
			status string
		)
		if err := rows.Scan(&run.ID, &run.ExecutionTime, &run.TargetDate, &status, &run.ProcessedRecords,
			&run.ErrorMessage, &run.ExecutionTimeMs, &run.CreatedAt); err != nil {
			return nil, err
		}
		run.Status = runDomain.Status(status)
		out = append(out, run)
	}
	return out, rows.Err()
}

// Ping 檢查資料庫連線。
func (r *Repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
