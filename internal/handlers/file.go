package handlers

import (
	"net/http"

	"github.com/3Eeeecho/go-clouddrive/internal/pkg/utils"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/xerr"
	"github.com/3Eeeecho/go-clouddrive/internal/services/explorer"
	"github.com/gin-gonic/gin"
)

type FileHandler struct {
	files   explorer.FileService
	queries explorer.QueryService
}

func NewFileHandler(files explorer.FileService, queries explorer.QueryService) *FileHandler {
	return &FileHandler{files: files, queries: queries}
}

type InitUploadRequest struct {
	Name      string  `json:"name" binding:"required"`
	MimeType  string  `json:"mime_type"`
	SizeBytes int64   `json:"size_bytes" binding:"gte=0"`
	FolderID  *uint64 `json:"folder_id"`
}

// @Summary 登记上传并获取直传地址
// @Description 客户端拿到 upload_url 后直接 PUT 到对象存储, 然后调用 complete
// @Tags 文件
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param data body InitUploadRequest true "文件元数据"
// @Success 201 {object} xerr.Response{data=models.UploadTicket}
// @Failure 400 {object} xerr.Response "名称无效或空间不足"
// @Failure 404 {object} xerr.Response "目录不存在"
// @Failure 503 {object} xerr.Response "存储服务不可用"
// @Router /api/v1/files/init [post]
func (h *FileHandler) InitUpload(c *gin.Context) {
	p, ok := utils.PrincipalFromContext(c)
	if !ok {
		return
	}
	var req InitUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ticket, err := h.files.InitUpload(c.Request.Context(), p, explorer.InitUploadInput{
		Name:      req.Name,
		MimeType:  req.MimeType,
		SizeBytes: req.SizeBytes,
		FolderID:  req.FolderID,
	})
	if err != nil {
		xerr.Fail(c, "InitUpload", err)
		return
	}
	xerr.Success(c, http.StatusCreated, "Upload initialised", ticket)
}

// @Summary 确认上传完成
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Param id path int true "文件ID"
// @Success 200 {object} xerr.Response{data=models.File}
// @Failure 400 {object} xerr.Response "对象尚未上传"
// @Failure 404 {object} xerr.Response
// @Router /api/v1/files/{id}/complete [post]
func (h *FileHandler) CompleteUpload(c *gin.Context) {
	p, ok := utils.PrincipalFromContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	file, err := h.files.CompleteUpload(c.Request.Context(), p, id)
	if err != nil {
		xerr.Fail(c, "CompleteUpload", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Upload completed", file)
}

// @Summary 获取文件信息和下载地址
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Param id path int true "文件ID"
// @Success 200 {object} xerr.Response{data=models.DownloadReference}
// @Failure 404 {object} xerr.Response
// @Failure 503 {object} xerr.Response
// @Router /api/v1/files/{id} [get]
func (h *FileHandler) GetFile(c *gin.Context) {
	p, ok := utils.PrincipalFromContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ref, err := h.files.GetDownloadReference(c.Request.Context(), p, id)
	if err != nil {
		xerr.Fail(c, "GetFile", err)
		return
	}
	xerr.Success(c, http.StatusOK, "File retrieved successfully", ref)
}

// @Summary 重命名或移动文件
// @Tags 文件
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "文件ID"
// @Param data body UpdateNodeRequest true "新名称和/或新目录"
// @Success 200 {object} xerr.Response{data=models.File}
// @Failure 400 {object} xerr.Response
// @Failure 404 {object} xerr.Response
// @Router /api/v1/files/{id} [patch]
func (h *FileHandler) UpdateFile(c *gin.Context) {
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

	file, err := h.files.RenameOrMoveFile(c.Request.Context(), p, id, req.Name, req.ParentID.MoveTarget())
	if err != nil {
		xerr.Fail(c, "UpdateFile", err)
		return
	}
	xerr.Success(c, http.StatusOK, "File updated successfully", file)
}

// @Summary 删除文件 (移入回收站)
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Param id path int true "文件ID"
// @Success 200 {object} xerr.Response
// @Failure 404 {object} xerr.Response
// @Router /api/v1/files/{id} [delete]
func (h *FileHandler) DeleteFile(c *gin.Context) {
	p, ok := utils.PrincipalFromContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.files.SoftDeleteFile(c.Request.Context(), p, id); err != nil {
		xerr.Fail(c, "DeleteFile", err)
		return
	}
	xerr.Success(c, http.StatusOK, "File moved to trash", nil)
}

// @Summary 切换星标
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Param id path int true "文件ID"
// @Success 200 {object} xerr.Response{data=models.StarResult}
// @Failure 404 {object} xerr.Response
// @Router /api/v1/files/{id}/star [post]
func (h *FileHandler) ToggleStar(c *gin.Context) {
	p, ok := utils.PrincipalFromContext(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	result, err := h.files.ToggleStar(c.Request.Context(), p, id)
	if err != nil {
		xerr.Fail(c, "ToggleStar", err)
		return
	}
	xerr.Success(c, http.StatusOK, result.Message, result)
}

// @Summary 最近文件
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Param limit query int false "数量, 默认20, 最大100"
// @Success 200 {object} xerr.Response{data=[]models.File}
// @Router /api/v1/files/recent [get]
func (h *FileHandler) RecentFiles(c *gin.Context) {
	p, ok := utils.PrincipalFromContext(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	files, err := h.queries.RecentFiles(c.Request.Context(), p, limit)
	if err != nil {
		xerr.Fail(c, "RecentFiles", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Recent files retrieved successfully", files)
}

// @Summary 星标文件
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Success 200 {object} xerr.Response{data=[]models.File}
// @Router /api/v1/files/starred [get]
func (h *FileHandler) StarredFiles(c *gin.Context) {
	p, ok := utils.PrincipalFromContext(c)
	if !ok {
		return
	}
	files, err := h.queries.StarredFiles(c.Request.Context(), p)
	if err != nil {
		xerr.Fail(c, "StarredFiles", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Starred files retrieved successfully", files)
}

// @Summary 存储用量
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Success 200 {object} xerr.Response{data=models.StorageUsage}
// @Router /api/v1/files/usage [get]
func (h *FileHandler) StorageUsage(c *gin.Context) {
	p, ok := utils.PrincipalFromContext(c)
	if !ok {
		return
	}
	usage, err := h.queries.StorageUsage(c.Request.Context(), p)
	if err != nil {
		xerr.Fail(c, "StorageUsage", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Storage usage retrieved successfully", usage)
}

// @Summary 按名称搜索
// @Description 目录和文件分别最多返回50条, 目录在前
// @Tags 搜索
// @Produce json
// @Security BearerAuth
// @Param q query string true "关键字"
// @Success 200 {object} xerr.Response{data=models.SearchResults}
// @Failure 400 {object} xerr.Response "关键字为空"
// @Router /api/v1/search [get]
func (h *FileHandler) Search(c *gin.Context) {
	p, ok := utils.PrincipalFromContext(c)
	if !ok {
		return
	}
	results, err := h.queries.Search(c.Request.Context(), p, c.Query("q"))
	if err != nil {
		xerr.Fail(c, "Search", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Search completed", results)
}
