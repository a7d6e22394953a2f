package models

import "time"

// FolderContents 目录列表, 根目录时 Folder 为 nil
type FolderContents struct {
	Folder  *Folder  `json:"folder,omitempty"`
	Folders []Folder `json:"folders"`
	Files   []File   `json:"files"`
}

// MoveTarget 非 nil 表示需要移动, ParentID 为 nil 表示移动到根目录
type MoveTarget struct {
	ParentID *uint64
}

// UploadTicket initUpload 的返回
type UploadTicket struct {
	File       *File     `json:"file"`
	FileID     uint64    `json:"file_id"`
	StorageKey string    `json:"storage_key"`
	UploadURL  string    `json:"upload_url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// DownloadReference 文件元数据与限时下载地址
type DownloadReference struct {
	File        *File     `json:"file"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type SearchResult struct {
	Type      ResourceType `json:"type"`
	ID        uint64       `json:"id"`
	Name      string       `json:"name"`
	ParentID  *uint64      `json:"parent_id"`
	MimeType  string       `json:"mime_type,omitempty"`
	SizeBytes int64        `json:"size_bytes,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type SearchResults struct {
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

type StorageUsage struct {
	UsedBytes  int64   `json:"used_bytes"`
	TotalBytes int64   `json:"total_bytes"`
	Percentage float64 `json:"percentage"`
}

type StarResult struct {
	File    *File  `json:"file"`
	Message string `json:"message"`
}

// ResolvedLink 公开链接与其指向的资源
type ResolvedLink struct {
	Link   *LinkShare `json:"link"`
	Folder *Folder    `json:"folder,omitempty"`
	File   *File      `json:"file,omitempty"`
}

// ReconcileTask 上传对账消息体
type ReconcileTask struct {
	FileID uint64 `json:"file_id"`
}
