package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"oee-monitor/internal/application/aggregation"
	"oee-monitor/internal/domain/oee"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleRealtime 回傳設備目前班別的即時 OEE。
func (s *Server) handleRealtime(c *gin.Context) {
	machineID := strings.TrimSpace(c.Param("machine_id"))
	snap, err := s.realtimeSvc.Current(c.Request.Context(), machineID)
	if errors.Is(err, oee.ErrMachineNotFound) {
		abortError(c, http.StatusNotFound, errCodeNotFound, "machine not found")
		return
	}
	if err != nil {
		s.logger.Error("realtime metrics failed", zap.String("machine_id", machineID), zap.Error(err))
		abortError(c, http.StatusInternalServerError, errCodeInternal, "failed to compute realtime metrics")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": snap})
}

// handleRecords 查詢已彙總的 OEE 紀錄。
func (s *Server) handleRecords(c *gin.Context) {
	filter := aggregation.RecordFilter{
		MachineID: strings.TrimSpace(c.Query("machine_id")),
		Limit:     parseIntDefault(c.Query("limit"), 0),
	}
	if raw := c.Query("date"); raw != "" {
		date, err := s.resolver.ParseDate(raw)
		if err != nil {
			abortError(c, http.StatusBadRequest, errCodeBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		filter.Date = &date
	}
	if raw := c.Query("shift"); raw != "" {
		shift, err := oee.ParseShift(raw)
		if err != nil {
			abortError(c, http.StatusBadRequest, errCodeBadRequest, "shift must be day or night")
			return
		}
		filter.Shift = shift
	}

	recs, err := s.queryUC.Records(c.Request.Context(), filter)
	if err != nil {
		s.logger.Error("query metric records failed", zap.Error(err))
		abortError(c, http.StatusInternalServerError, errCodeInternal, "failed to query records")
		return
	}
	data := make([]metricRecordDTO, 0, len(recs))
	for _, r := range recs {
		data = append(data, toMetricRecordDTO(r))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// handleSummary 回傳指定日期各班別的平均指標；未指定日期時使用目前生產日。
func (s *Server) handleSummary(c *gin.Context) {
	current, _ := s.resolver.Current(s.now())
	date, err := s.parseDateParam(c.Query("date"), current)
	if err != nil {
		abortError(c, http.StatusBadRequest, errCodeBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	summary, err := s.queryUC.Summary(c.Request.Context(), date)
	if err != nil {
		s.logger.Error("summarize metric records failed", zap.Error(err))
		abortError(c, http.StatusInternalServerError, errCodeInternal, "failed to summarize records")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"date":    date.Format(oee.DateLayout),
		"data":    summary,
	})
}
