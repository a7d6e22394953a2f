// Package testutil 测试用的数据库和配置
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/3Eeeecho/go-clouddrive/internal/config"
	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"github.com/3Eeeecho/go-clouddrive/internal/setup"
	"github.com/glebarez/sqlite"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewTestDB 每个测试一个独立的 SQLite 文件, 表结构与生产一致
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError:                           true,
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	require.NoError(t, setup.AutoMigrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// NewTestConfig 默认配置, 存储类型为 minio 但测试中不会真正连接
func NewTestConfig(t *testing.T) *config.Config {
	t.Helper()

	v := viper.New()
	config.SetDefaults(v)
	cfg := &config.Config{}
	require.NoError(t, v.Unmarshal(cfg))

	cfg.Server.Mode = "test"
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = "file::memory:"
	cfg.JWT.SecretKey = "test-secret-key-0123456789"
	cfg.JWT.ExpiresIn = time.Hour
	return cfg
}

// CreateUser 直接写库创建用户, 密码哈希不可用于登录
func CreateUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{Email: email, Name: email, PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateFolder 直接写库创建目录, 不经过服务层校验
func CreateFolder(t *testing.T, db *gorm.DB, ownerID uint64, name string, parentID *uint64) *models.Folder {
	t.Helper()

	folder := &models.Folder{Name: name, OwnerID: ownerID, ParentID: parentID}
	require.NoError(t, db.Create(folder).Error)
	return folder
}

// CreateFile 直接写库创建已提交的文件
func CreateFile(t *testing.T, db *gorm.DB, ownerID uint64, name string, folderID *uint64, size int64) *models.File {
	t.Helper()

	file := &models.File{
		Name:        name,
		MimeType:    "text/plain",
		SizeBytes:   size,
		StorageKey:  fmt.Sprintf("test/%d/%s-%d", ownerID, name, time.Now().UnixNano()),
		OwnerID:     ownerID,
		FolderID:    folderID,
		UploadState: models.UploadCommitted,
	}
	require.NoError(t, db.Create(file).Error)
	return file
}
