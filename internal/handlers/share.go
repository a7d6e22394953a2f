package handlers

import (
	"net/http"

	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/utils"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/xerr"
	"github.com/3Eeeecho/go-clouddrive/internal/services/share"
	"github.com/gin-gonic/gin"
)

type ShareHandler struct {
	shareService share.ShareService
}

func NewShareHandler(shareService share.ShareService) *ShareHandler {
	return &ShareHandler{shareService: shareService}
}

type ShareWithUserRequest struct {
	ResourceType models.ResourceType `json:"resource_type" binding:"required,oneof=file folder"`
	ResourceID   uint64              `json:"resource_id" binding:"required"`
	Email        string              `json:"email" binding:"required,email"`
	Role         models.Role         `json:"role" binding:"required,oneof=viewer editor"`
}

type CreateLinkRequest struct {
	ResourceType models.ResourceType `json:"resource_type" binding:"required,oneof=file folder"`
	ResourceID   uint64              `json:"resource_id" binding:"required"`
	Role         models.Role         `json:"role" binding:"omitempty,oneof=viewer editor"`
}

// ResourceQuery 列表接口的查询参数
type ResourceQuery struct {
	ResourceType models.ResourceType `form:"resource_type" binding:"required,oneof=file folder"`
	ResourceID   uint64              `form:"resource_id" binding:"required"`
	Page         int                 `form:"page"`
	PageSize     int                 `form:"page_size"`
}

func (q ResourceQuery) Ref() models.ResourceRef {
	return models.ResourceRef{Type: q.ResourceType, ID: q.ResourceID}
}

// ShareListResponse 分页的授权列表
type ShareListResponse struct {
	Items []models.ShareWithGrantee `json:"items"`
	Total int64                     `json:"total"`
	Page  int                       `json:"page"`
}

// @Summary 分享给其他用户
// @Description 同一资源同一用户重复分享时更新角色
// @Tags 分享
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ShareWithUserRequest true "授权信息"
// @Success 200 {object} xerr.Response{data=models.Share}
// @Failure 400 {object} xerr.Response "参数无效或分享给所有者"
// @Failure 404 {object} xerr.Response "资源或用户不存在"
// @Router /api/v1/shares [post]
func (h *ShareHandler) ShareWithUser(c *gin.Context) {
	p, ok := utils.PrincipalFromContext(c)
	if !ok {
		return
	}
	var req ShareWithUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ref := models.ResourceRef{Type: req.ResourceType, ID: req.ResourceID}
	s, err := h.shareService.ShareWithUser(c.Request.Context(), p, ref, req.Email, req.Role)
	if err != nil {
		xerr.Fail(c, "ShareWithUser", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Shared successfully", s)
}

// @Summary 资源的授权列表
// @Tags 分享
// @Produce json
// @Security BearerAuth
// @Param resource_type query string true "file 或 folder"
// @Param resource_id query int true "资源ID"
// @Param page query int false "页码, 默认1"
// @Param page_size query int false "每页数量, 默认20, 最大100"
// @Success 200 {object} xerr.Response{data=ShareListResponse}
// @Failure 404 {object} xerr.Response
// @Router /api/v1/shares [get]
func (h *ShareHandler) ListShares(c *gin.Context) {
	p, ok := utils.PrincipalFromContext(c)
	if !ok {
		return
	}
	var q ResourceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	items, total, err := h.shareService.ListShares(c.Request.Context(), p, q.Ref(), q.Page, q.PageSize)
	if err != nil {
		xerr.Fail(c, "ListShares", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Shares retrieved successfully", ShareListResponse{
		Items: items,
		Total: total,
		Page:  max(q.Page, 1),
	})
}

// @Summary 撤销授权
// @Tags 分享
// @Produce json
// @Security BearerAuth
// @Param id path int true "授权ID"
// @Success 200 {object} xerr.Response
// @Failure 404 {object} xerr.Response
// @Router /api/v1/shares/{id} [delete]
func (h *ShareHandler) RevokeShare(c *gin.Context) {
	p, ok := utils.PrincipalFromContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.shareService.RevokeShare(c.Request.Context(), p, id); err != nil {
		xerr.Fail(c, "RevokeShare", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Share revoked", nil)
}

// @Summary 创建公开链接
// @Description 每次调用都会生成新的链接, role 默认为 viewer
// @Tags 分享
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateLinkRequest true "链接信息"
// @Success 201 {object} xerr.Response{data=models.LinkShare}
// @Failure 404 {object} xerr.Response
// @Router /api/v1/shares/links [post]
func (h *ShareHandler) CreateLink(c *gin.Context) {
	p, ok := utils.PrincipalFromContext(c)
	if !ok {
		return
	}
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ref := models.ResourceRef{Type: req.ResourceType, ID: req.ResourceID}
	link, err := h.shareService.CreateLink(c.Request.Context(), p, ref, req.Role)
	if err != nil {
		xerr.Fail(c, "CreateLink", err)
		return
	}
	xerr.Success(c, http.StatusCreated, "Link created", link)
}

// @Summary 资源的公开链接列表
// @Tags 分享
// @Produce json
// @Security BearerAuth
// @Param resource_type query string true "file 或 folder"
// @Param resource_id query int true "资源ID"
// @Success 200 {object} xerr.Response{data=[]models.LinkShare}
// @Router /api/v1/shares/links [get]
func (h *ShareHandler) ListLinks(c *gin.Context) {
	p, ok := utils.PrincipalFromContext(c)
	if !ok {
		return
	}
	var q ResourceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	links, err := h.shareService.ListLinks(c.Request.Context(), p, q.Ref())
	if err != nil {
		xerr.Fail(c, "ListLinks", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Links retrieved successfully", links)
}

// @Summary 撤销公开链接
// @Tags 分享
// @Produce json
// @Security BearerAuth
// @Param link_id path string true "链接ID"
// @Success 200 {object} xerr.Response
// @Failure 404 {object} xerr.Response
// @Router /api/v1/shares/links/{link_id} [delete]
func (h *ShareHandler) RevokeLink(c *gin.Context) {
	p, ok := utils.PrincipalFromContext(c)
	if !ok {
		return
	}
	if err := h.shareService.RevokeLink(c.Request.Context(), p, c.Param("link_id")); err != nil {
		xerr.Fail(c, "RevokeLink", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Link revoked", nil)
}
