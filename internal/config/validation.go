package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate 校验结构体标签以及跨字段规则
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateBackends(cfg)
}

// validateBackends 检查被选中的后端是否配置完整
func validateBackends(cfg *Config) error {
	switch cfg.Storage.Type {
	case "minio":
		if cfg.MinIO.Endpoint == "" || cfg.MinIO.BucketName == "" {
			return errors.New("storage.type is minio but minio.endpoint or minio.bucket_name is empty")
		}
	case "aliyun_oss":
		if cfg.AliyunOSS.Endpoint == "" || cfg.AliyunOSS.BucketName == "" {
			return errors.New("storage.type is aliyun_oss but aliyun_oss.endpoint or aliyun_oss.bucket_name is empty")
		}
	case "s3":
		if cfg.S3.BucketName == "" || cfg.S3.Region == "" {
			return errors.New("storage.type is s3 but s3.bucket_name or s3.region is empty")
		}
	}

	if cfg.Search.Backend == "elasticsearch" && len(cfg.Elasticsearch.Addresses) == 0 {
		return errors.New("search.backend is elasticsearch but elasticsearch.addresses is empty")
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
