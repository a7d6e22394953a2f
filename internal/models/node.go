package models

// NodeStatus 文件夹/文件的生命周期状态
type NodeStatus string

const (
	StatusActive  NodeStatus = "active"
	StatusTrashed NodeStatus = "trashed"
)

// liveSlot 只在 active 时为 1, trashed 时为 NULL,
// 唯一索引遇到 NULL 不冲突, 从而只约束未删除的同级节点
func liveSlot(status NodeStatus) *uint8 {
	if status != StatusActive {
		return nil
	}
	one := uint8(1)
	return &one
}

// ParentKey 把可空父目录映射为非空列, 根目录为 0
func ParentKey(parentID *uint64) uint64 {
	if parentID == nil {
		return 0
	}
	return *parentID
}

type ResourceType string

const (
	ResourceFile   ResourceType = "file"
	ResourceFolder ResourceType = "folder"
)

func (t ResourceType) Valid() bool {
	return t == ResourceFile || t == ResourceFolder
}

// ResourceRef 唯一标识一个文件或文件夹
type ResourceRef struct {
	Type ResourceType `json:"resource_type"`
	ID   uint64       `json:"resource_id"`
}
