package handlers

import (
	"net/http"

	"github.com/3Eeeecho/go-clouddrive/internal/pkg/utils"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/xerr"
	"github.com/3Eeeecho/go-clouddrive/internal/services/explorer"
	"github.com/gin-gonic/gin"
)

type FolderHandler struct {
	hierarchy explorer.HierarchyService
}

func NewFolderHandler(hierarchy explorer.HierarchyService) *FolderHandler {
	return &FolderHandler{hierarchy: hierarchy}
}

type CreateFolderRequest struct {
	Name     string  `json:"name" binding:"required"`
	ParentID *uint64 `json:"parent_id"`
}

// UpdateNodeRequest 重命名和移动共用, 未提供的字段保持不变
type UpdateNodeRequest struct {
	Name     *string        `json:"name"`
	ParentID OptionalParent `json:"parent_id" swaggertype:"integer"`
}

// @Summary 创建文件夹
// @Tags 文件夹
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param data body CreateFolderRequest true "名称与父目录, parent_id 为空表示根目录"
// @Success 201 {object} xerr.Response{data=models.Folder}
// @Failure 400 {object} xerr.Response "名称无效"
// @Failure 404 {object} xerr.Response "父目录不存在"
// @Failure 409 {object} xerr.Response "同名文件夹已存在"
// @Router /api/v1/folders [post]
func (h *FolderHandler) CreateFolder(c *gin.Context) {
	p, ok := utils.PrincipalFromContext(c)
	if !ok {
		return
	}
	var req CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	folder, err := h.hierarchy.CreateFolder(c.Request.Context(), p, req.Name, req.ParentID)
	if err != nil {
		xerr.Fail(c, "CreateFolder", err)
		return
	}
	xerr.Success(c, http.StatusCreated, "Folder created successfully", folder)
}

// @Summary 获取文件夹内容
// @Description id 为 root 时返回当前用户根目录
// @Tags 文件夹
// @Produce json
// @Security BearerAuth
// @Param id path string true "文件夹ID或root"
// @Success 200 {object} xerr.Response{data=models.FolderContents}
// @Failure 404 {object} xerr.Response
// @Router /api/v1/folders/{id} [get]
func (h *FolderHandler) GetFolderContents(c *gin.Context) {
	p, ok := utils.PrincipalFromContext(c)
	if !ok {
		return
	}
	folderID, ok := parseFolderID(c, "id")
	if !ok {
		return
	}

	contents, err := h.hierarchy.GetFolderContents(c.Request.Context(), p, folderID)
	if err != nil {
		xerr.Fail(c, "GetFolderContents", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Folder contents retrieved successfully", contents)
}

// @Summary 重命名或移动文件夹
// @Tags 文件夹
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "文件夹ID"
// @Param data body UpdateNodeRequest true "新名称和/或新父目录, parent_id 为 null 或 root 表示移到根目录"
// @Success 200 {object} xerr.Response{data=models.Folder}
// @Failure 400 {object} xerr.Response
// @Failure 404 {object} xerr.Response
// @Failure 409 {object} xerr.Response
// @Router /api/v1/folders/{id} [patch]
func (h *FolderHandler) UpdateFolder(c *gin.Context) {
	p, ok := utils.PrincipalFromContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	folder, err := h.hierarchy.RenameOrMoveFolder(c.Request.Context(), p, id, req.Name, req.ParentID.MoveTarget())
	if err != nil {
		xerr.Fail(c, "UpdateFolder", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Folder updated successfully", folder)
}

// @Summary 删除文件夹 (移入回收站)
// @Tags 文件夹
// @Produce json
// @Security BearerAuth
// @Param id path int true "文件夹ID"
// @Success 200 {object} xerr.Response
// @Failure 404 {object} xerr.Response
// @Router /api/v1/folders/{id} [delete]
func (h *FolderHandler) DeleteFolder(c *gin.Context) {
	p, ok := utils.PrincipalFromContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.hierarchy.SoftDeleteFolder(c.Request.Context(), p, id); err != nil {
		xerr.Fail(c, "DeleteFolder", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Folder moved to trash", nil)
}
