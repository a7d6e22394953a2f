package models

import "time"

type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleOwner  Role = "owner" // 仅用于权限解析, 不落库
)

func (r Role) Valid() bool {
	return r == RoleViewer || r == RoleEditor
}

// Rank 角色强弱, 用于比较多条授权
func (r Role) Rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleEditor:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

// Share 直接授权, 同一资源同一被授权人只有一行
type Share struct {
	ID            uint64       `gorm:"primaryKey;autoIncrement" json:"id"`
	ResourceType  ResourceType `gorm:"type:varchar(16);not null;uniqueIndex:idx_share_grant,priority:1" json:"resource_type"`
	ResourceID    uint64       `gorm:"not null;uniqueIndex:idx_share_grant,priority:2" json:"resource_id"`
	GranteeUserID uint64       `gorm:"not null;index;uniqueIndex:idx_share_grant,priority:3" json:"grantee_user_id"`
	Role          Role         `gorm:"type:varchar(16);not null" json:"role"`
	CreatedBy     uint64       `gorm:"not null" json:"created_by"`
	CreatedAt     time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Share) TableName() string {
	return "shares"
}

// ShareWithGrantee 带被授权人展示信息的分享
type ShareWithGrantee struct {
	Share
	GranteeEmail string `json:"grantee_email"`
	GranteeName  string `json:"grantee_name"`
}

// LinkShare 公开链接, 持有 LinkID 即可按 Role 访问
type LinkShare struct {
	LinkID       string       `gorm:"primaryKey;type:varchar(36)" json:"link_id"`
	ResourceType ResourceType `gorm:"type:varchar(16);not null;index:idx_link_resource,priority:1" json:"resource_type"`
	ResourceID   uint64       `gorm:"not null;index:idx_link_resource,priority:2" json:"resource_id"`
	Role         Role         `gorm:"type:varchar(16);not null" json:"role"`
	CreatedBy    uint64       `gorm:"not null" json:"created_by"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

func (LinkShare) TableName() string {
	return "link_shares"
}
