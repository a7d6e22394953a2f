package utils

import (
	"net/http"

	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/xerr"
	"github.com/gin-gonic/gin"
)

// 认证中间件写入 gin.Context 的键
const ContextUserIDKey = "userID"

// GetUserIDFromContext 取出中间件写入的用户ID, 失败时中止请求
func GetUserIDFromContext(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(ContextUserIDKey)
	if !exists {
		xerr.AbortWithError(c, http.StatusUnauthorized, xerr.UnauthorizedCode, xerr.ErrUnauthorized.Error())
		return 0, false
	}
	currentUserID, ok := userID.(uint64)
	if !ok || currentUserID == 0 {
		xerr.AbortWithError(c, http.StatusUnauthorized, xerr.UnauthorizedCode, xerr.ErrUnauthorized.Error())
		return 0, false
	}
	return currentUserID, true
}

// PrincipalFromContext 构造显式传给服务层的请求主体
func PrincipalFromContext(c *gin.Context) (models.Principal, bool) {
	userID, ok := GetUserIDFromContext(c)
	if !ok {
		return models.Principal{}, false
	}
	return models.UserPrincipal(userID), true
}
