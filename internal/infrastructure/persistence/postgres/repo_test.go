package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"oee-monitor/internal/application/aggregation"
	runDomain "oee-monitor/internal/domain/aggregation"
	"oee-monitor/internal/domain/oee"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMock(t *testing.T) (*Repo, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %s", err)
	}
	return NewRepo(db), mock, func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %s", err)
		}
		db.Close()
	}
}

func TestRepo_ListActiveMachines(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"id", "name", "tact_time_sec", "active"}).
		AddRow("M-1", "Press", 30.0, true).
		AddRow("M-2", "Cell", 45.5, true)
	mock.ExpectQuery("SELECT id, name, tact_time_sec, active FROM machines WHERE active = TRUE").WillReturnRows(rows)

	ms, err := repo.ListActiveMachines(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 2 || ms[1].TactTimeSec != 45.5 {
		t.Errorf("unexpected machines: %+v", ms)
	}
}

func TestRepo_FindMachine_NotFound(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, name, tact_time_sec, active FROM machines WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindMachine(context.Background(), "missing")
	if !errors.Is(err, oee.ErrMachineNotFound) {
		t.Errorf("expected ErrMachineNotFound, got %v", err)
	}
}

func TestRepo_FetchStateIntervals(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	w := oee.ShiftWindow{
		Shift: oee.ShiftDay,
		Start: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC),
	}
	ended := w.Start.Add(2 * time.Hour)
	rows := sqlmock.NewRows([]string{"machine_id", "state", "started_at", "ended_at"}).
		AddRow("M-1", "running", w.Start.Add(-time.Hour), ended).
		AddRow("M-1", "down", ended, nil)
	mock.ExpectQuery("SELECT machine_id, state, started_at, ended_at FROM machine_state_logs").
		WithArgs("M-1", w.Start, w.End).
		WillReturnRows(rows)

	ivs, err := repo.FetchStateIntervals(context.Background(), "M-1", w)
	if err != nil {
		t.Fatal(err)
	}
	if len(ivs) != 2 {
		t.Fatalf("expected 2 intervals, got %d", len(ivs))
	}
	if ivs[0].State != oee.StateRunning || ivs[0].End == nil || !ivs[0].End.Equal(ended) {
		t.Errorf("unexpected first interval: %+v", ivs[0])
	}
	if !ivs[1].Ongoing() {
		t.Errorf("second interval should be ongoing")
	}
}

func TestRepo_FetchProductionCount(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()
	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT output_qty, defect_qty, source FROM production_counts").
		WithArgs("M-1", "2025-03-10", "day").
		WillReturnRows(sqlmock.NewRows([]string{"output_qty", "defect_qty", "source"}).AddRow(500, 5, "manual"))
	mock.ExpectQuery("SELECT output_qty, defect_qty, source FROM production_counts").
		WithArgs("M-1", "2025-03-10", "night").
		WillReturnError(sql.ErrNoRows)

	c, err := repo.FetchProductionCount(context.Background(), "M-1", date, oee.ShiftDay)
	if err != nil {
		t.Fatal(err)
	}
	if c == nil || c.OutputQty != 500 || c.DefectQty != 5 || c.Estimated() {
		t.Errorf("unexpected count: %+v", c)
	}

	c, err = repo.FetchProductionCount(context.Background(), "M-1", date, oee.ShiftNight)
	if err != nil || c != nil {
		t.Errorf("expected (nil, nil) for absent count, got %+v %v", c, err)
	}
}

func TestRepo_UpsertProductionCount(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO production_counts").
		WithArgs("M-1", "2025-03-10", "day", 960, 0, "estimated").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.UpsertProductionCount(context.Background(), oee.ProductionCount{
		MachineID: "M-1",
		Date:      time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Shift:     oee.ShiftDay,
		OutputQty: 960,
		Source:    oee.SourceEstimated,
	})
	if err != nil {
		t.Errorf("UpsertProductionCount failed: %v", err)
	}
}

func TestRepo_UpsertMetricRecord(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	rec := oee.MetricRecord{
		MachineID:         "M-1",
		Date:              time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Shift:             oee.ShiftDay,
		Availability:      480.0 / 660.0,
		Performance:       1,
		Quality:           1,
		OEE:               0.727,
		ActualRuntimeMin:  480,
		PlannedRuntimeMin: 660,
		IdealRuntimeMin:   480,
		OutputQty:         960,
		UpdatedAt:         time.Now(),
	}
	mock.ExpectExec("INSERT INTO oee_metrics").
		WithArgs("M-1", "2025-03-10", "day", rec.Availability, 1.0, 1.0, 0.727, 480.0, 660.0, 480.0, 960, 0, rec.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.UpsertMetricRecord(context.Background(), rec); err != nil {
		t.Errorf("UpsertMetricRecord failed: %v", err)
	}
}

func TestRepo_FindMetricRecords(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"machine_id", "metric_date", "shift", "availability", "performance", "quality", "oee",
		"actual_runtime_min", "planned_runtime_min", "ideal_runtime_min", "output_qty", "defect_qty", "updated_at"}).
		AddRow("M-1", date, "night", 0.5, 1.0, 1.0, 0.5, 330.0, 660.0, 330.0, 660, 0, now)
	mock.ExpectQuery(`FROM oee_metrics WHERE metric_date = \$1 AND shift = \$2 ORDER BY metric_date DESC, machine_id, shift LIMIT \$3`).
		WithArgs("2025-03-10", "night", 100).
		WillReturnRows(rows)

	recs, err := repo.FindMetricRecords(context.Background(), aggregation.RecordFilter{Date: &date, Shift: oee.ShiftNight, Limit: 100})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Shift != oee.ShiftNight || recs[0].OutputQty != 660 {
		t.Errorf("unexpected records: %+v", recs)
	}
}

func TestRepo_Runs(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	now := time.Date(2025, 3, 11, 1, 0, 0, 0, time.UTC)
	target := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	run := runDomain.NewRun("run-1", now, target)

	mock.ExpectExec("INSERT INTO aggregation_runs").
		WithArgs("run-1", now, "2025-03-10", "started", 0, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	if err := repo.CreateRun(context.Background(), run); err != nil {
		t.Fatal(err)
	}

	if err := run.Fail(errors.New("list active machines: timeout"), 0, 2*time.Second); err != nil {
		t.Fatal(err)
	}
	mock.ExpectExec("UPDATE aggregation_runs").
		WithArgs("run-1", "failed", 0, "list active machines: timeout", int64(2000)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.FinishRun(context.Background(), run); err != nil {
		t.Fatal(err)
	}

	mock.ExpectExec("UPDATE aggregation_runs").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.FinishRun(context.Background(), runDomain.NewRun("ghost", now, target)); err == nil {
		t.Error("expected error for unknown run")
	}

	rows := sqlmock.NewRows([]string{"id", "execution_date", "target_date", "status", "processed_records", "error_message", "execution_time_ms", "created_at"}).
		AddRow("run-1", now, target, "failed", 0, "list active machines: timeout", int64(2000), now)
	mock.ExpectQuery("SELECT id, execution_date, target_date, status").
		WithArgs(20).
		WillReturnRows(rows)
	runs, err := repo.ListRuns(context.Background(), 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Status != runDomain.StatusFailed || runs[0].ExecutionTimeMs != 2000 {
		t.Errorf("unexpected runs: %+v", runs)
	}
}
