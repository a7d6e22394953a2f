package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/3Eeeecho/go-clouddrive/internal/config"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

type MinIOStorageService struct {
	client *minio.Client
	cfg    *config.MinIOConfig
}

var _ StorageService = (*MinIOStorageService)(nil)

func NewMinIOStorageService(cfg *config.MinIOConfig) (*MinIOStorageService, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		logger.Error("初始化 MinIO 客户端失败", zap.Error(err))
		return nil, fmt.Errorf("无法初始化 MinIO 客户端: %w", err)
	}

	logger.Info("MinIO 客户端初始化成功", zap.String("endpoint", cfg.Endpoint), zap.String("bucket", cfg.BucketName))
	return &MinIOStorageService{client: minioClient, cfg: cfg}, nil
}

func (s *MinIOStorageService) BucketName() string {
	return s.cfg.BucketName
}

func (s *MinIOStorageService) PresignPutURL(ctx context.Context, objectName, contentType string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedPutObject(ctx, s.cfg.BucketName, objectName, expiry)
	if err != nil {
		return "", fmt.Errorf("MinIO 生成上传地址失败: %w", err)
	}
	return u.String(), nil
}

func (s *MinIOStorageService) PresignGetURL(ctx context.Context, objectName, fileName string, expiry time.Duration) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition", attachmentDisposition(fileName))
	u, err := s.client.PresignedGetObject(ctx, s.cfg.BucketName, objectName, expiry, params)
	if err != nil {
		return "", fmt.Errorf("MinIO 生成下载地址失败: %w", err)
	}
	return u.String(), nil
}

func (s *MinIOStorageService) StatObject(ctx context.Context, objectName string) (ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.cfg.BucketName, objectName, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
			return ObjectInfo{}, ErrObjectNotFound
		}
		return ObjectInfo{}, fmt.Errorf("MinIO 查询对象失败: %w", err)
	}
	return ObjectInfo{Key: info.Key, Size: info.Size, ContentType: info.ContentType, ETag: info.ETag}, nil
}

func (s *MinIOStorageService) RemoveObject(ctx context.Context, objectName string) error {
	if err := s.client.RemoveObject(ctx, s.cfg.BucketName, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("MinIO 删除对象失败: %w", err)
	}
	return nil
}

func (s *MinIOStorageService) IsBucketExist(ctx context.Context) (bool, error) {
	found, err := s.client.BucketExists(ctx, s.cfg.BucketName)
	if err != nil {
		return false, fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	return found, nil
}

func (s *MinIOStorageService) MakeBucket(ctx context.Context) error {
	err := s.client.MakeBucket(ctx, s.cfg.BucketName, minio.MakeBucketOptions{})
	if err != nil {
		// 并发创建时桶可能已经存在
		exists, errExists := s.client.BucketExists(ctx, s.cfg.BucketName)
		if errExists == nil && exists {
			return nil
		}
		return fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
	}
	return nil
}
