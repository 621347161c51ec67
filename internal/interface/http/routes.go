package httpapi

import (
	"time"

	"oee-monitor/internal/domain/auth"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
)

func (s *Server) newEngine() *gin.Engine {
	r := gin.New()
	r.Use(ginzap.Ginzap(s.logger.Named("http"), time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(s.logger.Named("http"), true))
	r.Use(corsMiddleware())

	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api")
	api.GET("/ping", s.handlePing)
	api.GET("/health", s.handleHealth)

	oeeGroup := api.Group("/oee")
	oeeGroup.GET("/realtime/:machine_id", s.requireAuth(auth.PermRealtimeRead), s.handleRealtime)
	oeeGroup.GET("/records", s.requireAuth(auth.PermMetricsRead), s.handleRecords)
	oeeGroup.GET("/summary", s.requireAuth(auth.PermMetricsRead), s.handleSummary)

	admin := api.Group("/admin/oee")
	admin.POST("/aggregate", s.requireAuth(auth.PermAggregateTrigger), s.handleAggregate)
	admin.POST("/backfill", s.requireAuth(auth.PermAggregateBackfill), s.handleBackfill)
	admin.GET("/runs", s.requireAuth(auth.PermRunsRead), s.handleRuns)
	return r
}
