package handlers

import (
	"net/http"

	"github.com/3Eeeecho/go-clouddrive/internal/pkg/utils"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/xerr"
	"github.com/3Eeeecho/go-clouddrive/internal/services/admin"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService admin.UserService
}

func NewUserHandler(userService admin.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=72"`
}

// @Summary 获取当前用户信息
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Success 200 {object} xerr.Response{data=models.User}
// @Failure 401 {object} xerr.Response
// @Router /api/v1/users/me [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	p, ok := utils.PrincipalFromContext(c)
	if !ok {
		return
	}
	user, err := h.userService.GetProfile(c.Request.Context(), p)
	if err != nil {
		xerr.Fail(c, "GetProfile", err)
		return
	}
	xerr.Success(c, http.StatusOK, "User profile retrieved successfully", user)
}

// @Summary 修改密码
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param data body ChangePasswordRequest true "旧密码与新密码"
// @Success 200 {object} xerr.Response
// @Failure 401 {object} xerr.Response "旧密码错误"
// @Router /api/v1/users/me/password [put]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	p, ok := utils.PrincipalFromContext(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.userService.ChangePassword(c.Request.Context(), p, req.OldPassword, req.NewPassword); err != nil {
		xerr.Fail(c, "ChangePassword", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Password updated", nil)
}
