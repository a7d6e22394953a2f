package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"time"

	"github.com/3Eeeecho/go-clouddrive/internal/config"
)

// ErrObjectNotFound 对象在存储桶中不存在
var ErrObjectNotFound = errors.New("object not found")

// StorageService 对象存储的抽象, 客户端通过预签名URL直接读写, 服务端只做签名和核对
type StorageService interface {
	// PresignPutURL 生成一次性直传的 PUT 地址
	PresignPutURL(ctx context.Context, objectName, contentType string, expiry time.Duration) (string, error)
	// PresignGetURL 生成限时下载地址, fileName 用于 Content-Disposition
	PresignGetURL(ctx context.Context, objectName, fileName string, expiry time.Duration) (string, error)
	// StatObject 查询对象元数据, 不存在时返回 ErrObjectNotFound
	StatObject(ctx context.Context, objectName string) (ObjectInfo, error)
	RemoveObject(ctx context.Context, objectName string) error
	IsBucketExist(ctx context.Context) (bool, error)
	MakeBucket(ctx context.Context) error
	BucketName() string
}

type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
	ETag        string
}

func NewStorageService(ctx context.Context, cfg *config.Config) (StorageService, error) {
	switch cfg.Storage.Type {
	case "minio":
		return NewMinIOStorageService(&cfg.MinIO)
	case "aliyun_oss":
		return NewAliyunOSSStorageService(&cfg.AliyunOSS)
	case "s3":
		return NewS3StorageService(ctx, &cfg.S3)
	default:
		return nil, fmt.Errorf("invalid storage type %q", cfg.Storage.Type)
	}
}

func attachmentDisposition(fileName string) string {
	if fileName == "" {
		return "attachment"
	}
	return mime.FormatMediaType("attachment", map[string]string{"filename": fileName})
}
