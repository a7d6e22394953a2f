package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 结构体包含所有应用的配置
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Storage       StorageConfig       `mapstructure:"storage"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	AliyunOSS     AliyunOSSConfig     `mapstructure:"aliyun_oss"`
	S3            S3Config            `mapstructure:"s3"`
	RabbitMQ      RabbitMQConfig      `mapstructure:"rabbitmq"`
	Reconcile     ReconcileConfig     `mapstructure:"reconcile"`
	Quota         QuotaConfig         `mapstructure:"quota"`
	Hierarchy     HierarchyConfig     `mapstructure:"hierarchy"`
	Search        SearchConfig        `mapstructure:"search"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port string `mapstructure:"port" validate:"required"`
	Mode string `mapstructure:"mode" validate:"oneof=debug release test"`
}

// DatabaseConfig 数据库配置, driver 为 mysql 或 sqlite
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=mysql sqlite"`
	DSN    string `mapstructure:"dsn" validate:"required"`
}

// RedisConfig Redis配置, Addr 为空时不启用缓存
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"gte=0"`
	LinkTTL  time.Duration `mapstructure:"link_ttl"`
}

type StorageConfig struct {
	Type              string        `mapstructure:"type" validate:"oneof=minio aliyun_oss s3"`
	KeyPrefix         string        `mapstructure:"key_prefix" validate:"required"`
	UploadURLExpiry   time.Duration `mapstructure:"upload_url_expiry" validate:"gt=0"`
	DownloadURLExpiry time.Duration `mapstructure:"download_url_expiry" validate:"gt=0"`
}

// MinIOConfig MinIO配置
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

type AliyunOSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"` // 例如: https://oss-cn-hangzhou.aliyuncs.com
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
}

// S3Config AWS S3 或兼容服务
type S3Config struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"` // 为空时使用 AWS 默认 endpoint
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// RabbitMQConfig RabbitMQ配置, URL 为空时只依赖定时扫描
type RabbitMQConfig struct {
	URL string `mapstructure:"url"`
}

// ReconcileConfig 上传对账配置
type ReconcileConfig struct {
	Interval    time.Duration `mapstructure:"interval" validate:"gt=0"`
	GracePeriod time.Duration `mapstructure:"grace_period" validate:"gte=0"`
	BatchSize   int           `mapstructure:"batch_size" validate:"gt=0"`
}

type QuotaConfig struct {
	TotalBytes int64 `mapstructure:"total_bytes" validate:"gt=0"`
}

type HierarchyConfig struct {
	CascadeDelete bool `mapstructure:"cascade_delete"`
}

type SearchConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=sql elasticsearch"`

	// ReindexInterval 为 0 时只在启动时全量重建一次
	ReindexInterval  time.Duration `mapstructure:"reindex_interval" validate:"gte=0"`
	ReindexBatchSize int           `mapstructure:"reindex_batch_size" validate:"gt=0"`
}

// ElasticsearchConfig 定义 Elasticsearch 连接配置
type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	SecretKey string        `mapstructure:"secret_key" validate:"required,min=16"`
	ExpiresIn time.Duration `mapstructure:"expires_in" validate:"gt=0"`
	Issuer    string        `mapstructure:"issuer"`
}

// zap日志配置
type LogConfig struct {
	OutputPath string `mapstructure:"output_path"`
	ErrorPath  string `mapstructure:"error_path"`
	Level      string `mapstructure:"level"`
}

var AppConfig *Config // 全局应用配置实例

// SetDefaults 注册默认值, 配置文件和环境变量都没有时生效
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.link_ttl", 10*time.Minute)
	v.SetDefault("storage.type", "minio")
	v.SetDefault("storage.key_prefix", "tenants")
	v.SetDefault("storage.upload_url_expiry", time.Hour)
	v.SetDefault("storage.download_url_expiry", time.Hour)
	v.SetDefault("minio.bucket_name", "go-clouddrive")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("reconcile.interval", 5*time.Minute)
	v.SetDefault("reconcile.grace_period", 10*time.Minute)
	v.SetDefault("reconcile.batch_size", 100)
	v.SetDefault("quota.total_bytes", int64(15)<<30) // 15 GiB
	v.SetDefault("hierarchy.cascade_delete", true)
	v.SetDefault("search.backend", "sql")
	v.SetDefault("search.reindex_interval", time.Hour)
	v.SetDefault("search.reindex_batch_size", 500)
	v.SetDefault("elasticsearch.index", "clouddrive-nodes")
	v.SetDefault("jwt.expires_in", 24*time.Hour)
	v.SetDefault("jwt.issuer", "go-clouddrive")
	v.SetDefault("log.output_path", "logs/app.log")
	v.SetDefault("log.error_path", "logs/error.log")
	v.SetDefault("log.level", "info")
}

// LoadConfig 加载配置
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/go-clouddrive/")

	// 例如 GO_CLOUD_DRIVE_DATABASE_DSN 对应 database.dsn
	v.SetEnvPrefix("GO_CLOUD_DRIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 没有配置文件时依赖环境变量和默认值
		log.Println("Warning: config file not found, using environment variables or default values.")
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	AppConfig = cfg
	log.Println("Configuration loaded successfully with Viper.")
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	// AutomaticEnv 只对已知 key 生效, 无默认值的敏感项需要显式绑定
	for _, key := range []string{
		"database.dsn", "redis.addr", "redis.password", "rabbitmq.url", "jwt.secret_key",
		"minio.endpoint", "minio.access_key_id", "minio.secret_access_key",
		"aliyun_oss.endpoint", "aliyun_oss.access_key_id", "aliyun_oss.secret_access_key", "aliyun_oss.bucket_name",
		"s3.endpoint", "s3.access_key_id", "s3.secret_access_key", "s3.bucket_name",
	} {
		_ = v.BindEnv(key)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
