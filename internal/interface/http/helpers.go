package httpapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

func abortError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg, "error_code": code})
}

func parseBearer(h string) string {
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func parseIntDefault(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func currentSubject(c *gin.Context) string {
	if v, ok := c.Get(ctxSubject); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// parseDateParam 以班別時區解析日期；空字串回傳 fallback。
func (s *Server) parseDateParam(raw string, fallback time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.resolver.Date(fallback), nil
	}
	return s.resolver.ParseDate(raw)
}
