package handlers

import (
	"net/http"

	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/xerr"
	"github.com/3Eeeecho/go-clouddrive/internal/services/explorer"
	"github.com/3Eeeecho/go-clouddrive/internal/services/share"
	"github.com/gin-gonic/gin"
)

// LinkHandler 公开链接的匿名访问, 不需要登录
type LinkHandler struct {
	shareService share.ShareService
	hierarchy    explorer.HierarchyService
	files        explorer.FileService
}

func NewLinkHandler(shareService share.ShareService, hierarchy explorer.HierarchyService, files explorer.FileService) *LinkHandler {
	return &LinkHandler{shareService: shareService, hierarchy: hierarchy, files: files}
}

func linkPrincipal(c *gin.Context) models.Principal {
	return models.LinkPrincipal(c.Param("link_id"))
}

// @Summary 打开公开链接
// @Tags 公开链接
// @Produce json
// @Param link_id path string true "链接ID"
// @Success 200 {object} xerr.Response{data=models.ResolvedLink}
// @Failure 404 {object} xerr.Response "链接不存在或已撤销"
// @Router /api/v1/links/{link_id} [get]
func (h *LinkHandler) ResolveLink(c *gin.Context) {
	resolved, err := h.shareService.ResolveLink(c.Request.Context(), c.Param("link_id"))
	if err != nil {
		xerr.Fail(c, "ResolveLink", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Link resolved", resolved)
}

// @Summary 浏览链接内的文件夹
// @Tags 公开链接
// @Produce json
// @Param link_id path string true "链接ID"
// @Param id path int true "文件夹ID, 必须位于链接指向的子树内"
// @Success 200 {object} xerr.Response{data=models.FolderContents}
// @Failure 404 {object} xerr.Response
// @Router /api/v1/links/{link_id}/folders/{id} [get]
func (h *LinkHandler) GetFolderContents(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	contents, err := h.hierarchy.GetFolderContents(c.Request.Context(), linkPrincipal(c), &id)
	if err != nil {
		xerr.Fail(c, "LinkFolderContents", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Folder contents retrieved successfully", contents)
}

// @Summary 获取链接内文件的下载地址
// @Tags 公开链接
// @Produce json
// @Param link_id path string true "链接ID"
// @Param id path int true "文件ID"
// @Success 200 {object} xerr.Response{data=models.DownloadReference}
// @Failure 404 {object} xerr.Response
// @Router /api/v1/links/{link_id}/files/{id} [get]
func (h *LinkHandler) GetFile(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ref, err := h.files.GetDownloadReference(c.Request.Context(), linkPrincipal(c), id)
	if err != nil {
		xerr.Fail(c, "LinkFile", err)
		return
	}
	xerr.Success(c, http.StatusOK, "File retrieved successfully", ref)
}
