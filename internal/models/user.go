package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User 对应 users 表
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string `gorm:"type:varchar(255);not null" json:"email"`
	EmailKey     string `gorm:"type:varchar(255);uniqueIndex;not null" json:"-"` // 小写邮箱, 用于大小写不敏感的比较
	Name         string `gorm:"type:varchar(128);not null;default:''" json:"name"`
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// NormalizeEmail 返回比较用的邮箱键
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = strings.TrimSpace(u.Email)
	u.EmailKey = NormalizeEmail(u.Email)
	return nil
}
