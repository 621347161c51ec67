package httpapi

import (
	"errors"
	"io"
	"net/http"

	"oee-monitor/internal/application/aggregation"
	"oee-monitor/internal/domain/oee"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleAggregate 觸發單日彙總；未指定日期時使用今日。
func (s *Server) handleAggregate(c *gin.Context) {
	var req aggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abortError(c, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	date, err := s.parseDateParam(req.Date, s.now())
	if err != nil {
		abortError(c, http.StatusBadRequest, errCodeBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	s.logger.Info("aggregation triggered",
		zap.String("date", date.Format(oee.DateLayout)),
		zap.String("triggered_by", currentSubject(c)),
	)
	res, err := s.orchestrator.Execute(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":    false,
			"error":      err.Error(),
			"error_code": errCodeAggregationFailed,
			"run_id":     res.RunID,
		})
		return
	}

	results := res.Results
	if results == nil {
		results = []aggregation.MachineShiftResult{}
	}
	summary := toRunSummary(res)
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"run_id":            summary.RunID,
		"date":              summary.Date,
		"processed_records": summary.ProcessedRecords,
		"results":           results,
		"skipped":           summary.Skipped,
	})
}

// handleBackfill 依序回補區間內每一天。
func (s *Server) handleBackfill(c *gin.Context) {
	var req backfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, errCodeBadRequest, "start_date and end_date are required")
		return
	}
	from, err := s.resolver.ParseDate(req.StartDate)
	if err != nil {
		abortError(c, http.StatusBadRequest, errCodeBadRequest, "invalid start_date")
		return
	}
	to, err := s.resolver.ParseDate(req.EndDate)
	if err != nil {
		abortError(c, http.StatusBadRequest, errCodeBadRequest, "invalid end_date")
		return
	}

	results, err := s.orchestrator.Backfill(c.Request.Context(), from, to)
	if errors.Is(err, aggregation.ErrBackfillRange) {
		abortError(c, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	data := make([]runSummary, 0, len(results))
	for _, r := range results {
		data = append(data, toRunSummary(r))
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":    false,
			"error":      err.Error(),
			"error_code": errCodeAggregationFailed,
			"data":       data,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func (s *Server) handleRuns(c *gin.Context) {
	runs, err := s.queryUC.Runs(c.Request.Context(), parseIntDefault(c.Query("limit"), 50))
	if err != nil {
		s.logger.Error("list aggregation runs failed", zap.Error(err))
		abortError(c, http.StatusInternalServerError, errCodeInternal, "failed to list runs")
		return
	}
	data := make([]runDTO, 0, len(runs))
	for _, r := range runs {
		data = append(data, toRunDTO(r))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}
