package httpapi

import (
	"net/http"

	"oee-monitor/internal/domain/auth"

	"github.com/gin-gonic/gin"
)

const (
	ctxSubject = "subject"
	ctxRole    = "role"
)

func (s *Server) requireAuth(perm auth.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.authDisabled {
			c.Set(ctxSubject, "anonymous")
			c.Set(ctxRole, string(auth.RoleAdmin))
			c.Next()
			return
		}

		token := parseBearer(c.GetHeader("Authorization"))
		if token == "" {
			abortError(c, http.StatusUnauthorized, errCodeUnauthorized, "unauthorized")
			return
		}

		claims, err := s.tokenSvc.ParseAccessToken(token)
		if err != nil {
			abortError(c, http.StatusUnauthorized, errCodeUnauthorized, "invalid token")
			return
		}

		if !auth.Allowed(auth.Role(claims.Role), perm) {
			abortError(c, http.StatusForbidden, errCodeForbidden, "forbidden")
			return
		}

		c.Set(ctxSubject, claims.Subject)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
