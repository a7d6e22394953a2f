package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/3Eeeecho/go-clouddrive/internal/config"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/logger"
	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"go.uber.org/zap"
)

type AliyunOSSStorageService struct {
	client *oss.Client
	cfg    *config.AliyunOSSConfig
}

var _ StorageService = (*AliyunOSSStorageService)(nil)

// NewAliyunOSSStorageService Endpoint 需要带 http:// 或 https:// 前缀
func NewAliyunOSSStorageService(cfg *config.AliyunOSSConfig) (*AliyunOSSStorageService, error) {
	ossClient, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		logger.Error("初始化阿里云OSS客户端失败", zap.Error(err))
		return nil, fmt.Errorf("无法初始化阿里云OSS客户端: %w", err)
	}
	logger.Info("阿里云OSS客户端初始化成功", zap.String("endpoint", cfg.Endpoint), zap.String("bucket", cfg.BucketName))
	return &AliyunOSSStorageService{client: ossClient, cfg: cfg}, nil
}

func (s *AliyunOSSStorageService) BucketName() string {
	return s.cfg.BucketName
}

func (s *AliyunOSSStorageService) bucket() (*oss.Bucket, error) {
	b, err := s.client.Bucket(s.cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("获取OSS存储桶失败: %w", err)
	}
	return b, nil
}

func (s *AliyunOSSStorageService) PresignPutURL(ctx context.Context, objectName, contentType string, expiry time.Duration) (string, error) {
	b, err := s.bucket()
	if err != nil {
		return "", err
	}
	var opts []oss.Option
	if contentType != "" {
		opts = append(opts, oss.ContentType(contentType))
	}
	signed, err := b.SignURL(objectName, oss.HTTPPut, int64(expiry.Seconds()), opts...)
	if err != nil {
		return "", fmt.Errorf("阿里云OSS生成上传地址失败: %w", err)
	}
	return signed, nil
}

func (s *AliyunOSSStorageService) PresignGetURL(ctx context.Context, objectName, fileName string, expiry time.Duration) (string, error) {
	b, err := s.bucket()
	if err != nil {
		return "", err
	}
	signed, err := b.SignURL(objectName, oss.HTTPGet, int64(expiry.Seconds()),
		oss.ResponseContentDisposition(attachmentDisposition(fileName)))
	if err != nil {
		return "", fmt.Errorf("阿里云OSS生成下载地址失败: %w", err)
	}
	return signed, nil
}

func (s *AliyunOSSStorageService) StatObject(ctx context.Context, objectName string) (ObjectInfo, error) {
	b, err := s.bucket()
	if err != nil {
		return ObjectInfo{}, err
	}
	header, err := b.GetObjectMeta(objectName)
	if err != nil {
		var srvErr oss.ServiceError
		if errors.As(err, &srvErr) && srvErr.StatusCode == http.StatusNotFound {
			return ObjectInfo{}, ErrObjectNotFound
		}
		return ObjectInfo{}, fmt.Errorf("阿里云OSS查询对象失败: %w", err)
	}
	size, _ := strconv.ParseInt(header.Get("Content-Length"), 10, 64)
	return ObjectInfo{
		Key:         objectName,
		Size:        size,
		ContentType: header.Get("Content-Type"),
		ETag:        header.Get("ETag"),
	}, nil
}

func (s *AliyunOSSStorageService) RemoveObject(ctx context.Context, objectName string) error {
	b, err := s.bucket()
	if err != nil {
		return err
	}
	if err := b.DeleteObject(objectName); err != nil {
		return fmt.Errorf("阿里云OSS删除对象失败: %w", err)
	}
	return nil
}

func (s *AliyunOSSStorageService) IsBucketExist(ctx context.Context) (bool, error) {
	found, err := s.client.IsBucketExist(s.cfg.BucketName)
	if err != nil {
		return false, fmt.Errorf("检查阿里云OSS存储桶失败: %w", err)
	}
	return found, nil
}

func (s *AliyunOSSStorageService) MakeBucket(ctx context.Context) error {
	if err := s.client.CreateBucket(s.cfg.BucketName); err != nil {
		return fmt.Errorf("创建阿里云OSS存储桶失败: %w", err)
	}
	return nil
}
