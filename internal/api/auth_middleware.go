package api

import (
	"net/http"
	"strings"

	"repairkb/internal/entity"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	currentUserContextKey = "current-user"
)

// RequestUser 存储请求上下文中的认证用户信息，全部来自令牌声明。
type RequestUser struct {
	ID       uint
	Username string
	Role     string
}

// IsAdmin 判断用户是否具有管理员权限
func (u *RequestUser) IsAdmin() bool {
	if u == nil {
		return false
	}
	return u.Role == entity.UserRoleAdmin
}

// CanEdit 判断用户是否具有编辑权限（编辑或管理员）
func (u *RequestUser) CanEdit() bool {
	if u == nil {
		return false
	}
	switch u.Role {
	case entity.UserRoleEditor, entity.UserRoleAdmin:
		return true
	default:
		return false
	}
}

// AuthMiddleware JWT 认证中间件。令牌自包含，不回查数据库。
func (h *HTTPHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			abortError(c, http.StatusUnauthorized, "缺少授权头")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortError(c, http.StatusUnauthorized, "无效的授权头格式")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			abortError(c, http.StatusUnauthorized, "缺少 Bearer Token")
			return
		}

		claims, err := h.authManager.ParseToken(tokenString)
		if err != nil {
			logrus.WithError(err).Warn("failed to parse jwt token")
			abortError(c, http.StatusUnauthorized, "Token 无效或已过期")
			return
		}

		c.Set(currentUserContextKey, &RequestUser{
			ID:       claims.UserID,
			Username: claims.Username,
			Role:     claims.Role,
		})
		c.Next()
	}
}

// RequireEditor 编辑权限守卫中间件
func (h *HTTPHandler) RequireEditor() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.CanEdit() {
			abortError(c, http.StatusForbidden, "权限不足")
			return
		}
		c.Next()
	}
}

// RequireAdmin 管理员权限守卫中间件
func (h *HTTPHandler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin() {
			abortError(c, http.StatusForbidden, "权限不足")
			return
		}
		c.Next()
	}
}

// CurrentUser 从上下文获取当前认证用户
func CurrentUser(c *gin.Context) *RequestUser {
	value, exists := c.Get(currentUserContextKey)
	if !exists {
		return nil
	}
	user, ok := value.(*RequestUser)
	if !ok {
		return nil
	}
	return user
}
