package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"brand-insight/cmd/insight/dto"
	"brand-insight/cmd/internal/logger"
)

const HeaderAdminToken = "X-Admin-Token"

// AdminTokenMiddleware 는 X-Admin-Token 헤더를 설정된 토큰과 비교한다.
// 토큰이 설정되지 않았으면 관리자 라우트를 모두 막는다.
func AdminTokenMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(HeaderAdminToken)
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			logger.WarnWithFields("admin access denied", logger.TraceFields(c.Request.Context()).With(logger.Fields{
				"path": c.Request.URL.Path,
			}))
			c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponseDTO{Error: "forbidden_insufficient_permissions"})
			return
		}
		c.Next()
	}
}
