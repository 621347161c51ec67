package httpapi

import (
	"time"

	"oee-monitor/internal/application/aggregation"
	runDomain "oee-monitor/internal/domain/aggregation"
	"oee-monitor/internal/domain/oee"
)

type aggregateRequest struct {
	Date string `json:"date"`
}

type backfillRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

type runSummary struct {
	RunID            string                           `json:"run_id"`
	Date             string                           `json:"date"`
	Status           runDomain.Status                 `json:"status"`
	ProcessedRecords int                              `json:"processed_records"`
	Skipped          []aggregation.SkippedCombination `json:"skipped"`
	DurationMs       int64                            `json:"duration_ms"`
}

type metricRecordDTO struct {
	MachineID         string    `json:"machine_id"`
	Date              string    `json:"date"`
	Shift             oee.Shift `json:"shift"`
	Availability      float64   `json:"availability"`
	Performance       float64   `json:"performance"`
	Quality           float64   `json:"quality"`
	OEE               float64   `json:"oee"`
	ActualRuntimeMin  float64   `json:"actual_runtime_min"`
	PlannedRuntimeMin float64   `json:"planned_runtime_min"`
	IdealRuntimeMin   float64   `json:"ideal_runtime_min"`
	OutputQty         int       `json:"output_qty"`
	DefectQty         int       `json:"defect_qty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type runDTO struct {
	ID               string           `json:"id"`
	ExecutionDate    time.Time        `json:"execution_date"`
	TargetDate       string           `json:"target_date"`
	Status           runDomain.Status `json:"status"`
	ProcessedRecords int              `json:"processed_records"`
	ErrorMessage     *string          `json:"error_message"`
	ExecutionTimeMs  *int64           `json:"execution_time_ms"`
	CreatedAt        time.Time        `json:"created_at"`
}

func toRunSummary(r aggregation.RunResult) runSummary {
	skipped := r.Skipped
	if skipped == nil {
		skipped = []aggregation.SkippedCombination{}
	}
	return runSummary{
		RunID:            r.RunID,
		Date:             r.Date.Format(oee.DateLayout),
		Status:           r.Status,
		ProcessedRecords: r.ProcessedRecords,
		Skipped:          skipped,
		DurationMs:       r.Duration.Milliseconds(),
	}
}

func toMetricRecordDTO(r oee.MetricRecord) metricRecordDTO {
	return metricRecordDTO{
		MachineID:         r.MachineID,
		Date:              r.Date.Format(oee.DateLayout),
		Shift:             r.Shift,
		Availability:      r.Availability,
		Performance:       r.Performance,
		Quality:           r.Quality,
		OEE:               r.OEE,
		ActualRuntimeMin:  r.ActualRuntimeMin,
		PlannedRuntimeMin: r.PlannedRuntimeMin,
		IdealRuntimeMin:   r.IdealRuntimeMin,
		OutputQty:         r.OutputQty,
		DefectQty:         r.DefectQty,
		UpdatedAt:         r.UpdatedAt,
	}
}

func toRunDTO(r runDomain.Run) runDTO {
	dto := runDTO{
		ID:               r.ID,
		ExecutionDate:    r.ExecutionTime,
		TargetDate:       r.TargetDate.Format(oee.DateLayout),
		Status:           r.Status,
		ProcessedRecords: r.ProcessedRecords,
		CreatedAt:        r.CreatedAt,
	}
	if r.ErrorMessage != "" {
		msg := r.ErrorMessage
		dto.ErrorMessage = &msg
	}
	if r.Terminal() {
		ms := r.ExecutionTimeMs
		dto.ExecutionTimeMs = &ms
	}
	return dto
}
