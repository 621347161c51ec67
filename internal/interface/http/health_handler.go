package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "pong",
		"timestamp": s.now().Unix(),
		"status":    "alive",
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	dbStatus := "ok"
	if s.db != nil {
		if err := s.db.PingContext(c.Request.Context()); err != nil {
			dbStatus = "error: " + err.Error()
		}
	} else {
		dbStatus = "using_memory"
	}
	cacheStatus := "memory"
	if s.redis != nil {
		cacheStatus = "redis"
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"health":   "ok",
		"db":       dbStatus,
		"cache":    cacheStatus,
		"timezone": s.resolver.Location().String(),
		"time":     s.now().Format(time.RFC3339),
	})
}
