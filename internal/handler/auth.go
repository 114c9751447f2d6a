package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// BearerAuth 校验共享密钥 Bearer Token，保护后台与控制接口。
// 未配置 Token 时拒绝所有后台请求，避免裸奔上线。
func BearerAuth(token string) gin.HandlerFunc {
	expected := []byte(strings.TrimSpace(token))

	return func(c *gin.Context) {
		if len(expected) == 0 {
			respondError(c, http.StatusUnauthorized, "后台接口未配置访问令牌")
			c.Abort()
			return
		}

		header := c.GetHeader("Authorization")
		provided, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			respondError(c, http.StatusUnauthorized, "缺少访问令牌")
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare(expected, []byte(strings.TrimSpace(provided))) != 1 {
			respondError(c, http.StatusUnauthorized, "访问令牌无效")
			c.Abort()
			return
		}

		c.Next()
	}
}
