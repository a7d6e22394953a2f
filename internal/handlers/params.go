package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/xerr"
	"github.com/gin-gonic/gin"
)

// rootParam 路径中表示根目录的保留值
const rootParam = "root"

// OptionalParent 区分 "未提供" 与 "移动到根目录": 字段缺省时 Set 为 false,
// null 或 "root" 表示根目录
type OptionalParent struct {
	Set bool
	ID  *uint64
}

func (o *OptionalParent) UnmarshalJSON(data []byte) error {
	o.Set = true
	o.ID = nil
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		if v == rootParam {
			return nil
		}
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid parent_id %q", v)
		}
		o.ID = &id
	default:
		var id uint64
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		o.ID = &id
	}
	return nil
}

// MoveTarget 未提供时返回 nil
func (o OptionalParent) MoveTarget() *models.MoveTarget {
	if !o.Set {
		return nil
	}
	return &models.MoveTarget{ParentID: o.ID}
}

// parseID 解析路径参数中的ID, 失败时直接写 400 响应
func parseID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "无效的ID: "+c.Param(name))
		return 0, false
	}
	return id, true
}

// parseFolderID 额外接受 "root"
func parseFolderID(c *gin.Context, name string) (*uint64, bool) {
	if c.Param(name) == rootParam {
		return nil, true
	}
	id, ok := parseID(c, name)
	if !ok {
		return nil, false
	}
	return &id, true
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "无效的参数: "+name)
		return 0, false
	}
	return v, true
}

func bindError(c *gin.Context, err error) {
	xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
}
