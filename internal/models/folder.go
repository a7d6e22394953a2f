package models

import (
	"time"

	"gorm.io/gorm"
)

// Folder 对应 folders 表, ParentID 为 nil 表示位于根目录
type Folder struct {
	ID       uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_folder_sibling,priority:3" json:"name"`
	ParentID *uint64    `gorm:"index" json:"parent_id"`
	OwnerID  uint64     `gorm:"not null;index;uniqueIndex:idx_folder_sibling,priority:1" json:"owner_id"`
	Status   NodeStatus `gorm:"type:varchar(16);not null;default:active" json:"status"`

	ParentKey uint64 `gorm:"not null;default:0;uniqueIndex:idx_folder_sibling,priority:2" json:"-"`
	LiveSlot  *uint8 `gorm:"uniqueIndex:idx_folder_sibling,priority:4" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Folder) TableName() string {
	return "folders"
}

func (f *Folder) IsLive() bool {
	return f.Status == StatusActive
}

// BeforeSave 维护唯一索引依赖的派生列
func (f *Folder) BeforeSave(tx *gorm.DB) error {
	if f.Status == "" {
		f.Status = StatusActive
	}
	f.ParentKey = ParentKey(f.ParentID)
	f.LiveSlot = liveSlot(f.Status)
	return nil
}
