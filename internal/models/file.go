package models

import (
	"time"

	"gorm.io/gorm"
)

// UploadState 两阶段上传的状态机: pending -> committed | aborted
type UploadState string

const (
	UploadPending   UploadState = "pending"
	UploadCommitted UploadState = "committed"
	UploadAborted   UploadState = "aborted"
)

// File 对应 files 表, FolderID 为 nil 表示位于根目录
type File struct {
	ID          uint64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string      `gorm:"type:varchar(255);not null;index" json:"name"`
	MimeType    string      `gorm:"type:varchar(128);not null;default:'application/octet-stream'" json:"mime_type"`
	SizeBytes   int64       `gorm:"not null;default:0" json:"size_bytes"`
	StorageKey  string      `gorm:"type:varchar(512);uniqueIndex;not null" json:"storage_key"`
	OwnerID     uint64      `gorm:"not null;index:idx_file_owner_status,priority:1" json:"owner_id"`
	FolderID    *uint64     `gorm:"index" json:"folder_id"`
	Status      NodeStatus  `gorm:"type:varchar(16);not null;default:active;index:idx_file_owner_status,priority:2" json:"status"`
	UploadState UploadState `gorm:"type:varchar(16);not null;default:pending;index" json:"upload_state"`
	IsStarred   bool        `gorm:"not null;default:false" json:"is_starred"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index" json:"updated_at"`
}

func (File) TableName() string {
	return "files"
}

// IsLive 未进回收站且上传未被判定失败
func (f *File) IsLive() bool {
	return f.Status == StatusActive && f.UploadState != UploadAborted
}

func (f *File) BeforeSave(tx *gorm.DB) error {
	if f.Status == "" {
		f.Status = StatusActive
	}
	if f.UploadState == "" {
		f.UploadState = UploadPending
	}
	return nil
}
