package setup

import (
	"context"
	"fmt"

	"github.com/3Eeeecho/go-clouddrive/internal/config"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/logger"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/search"
	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"
)

// InitElasticsearch 连接集群并确保名称索引存在
func InitElasticsearch(ctx context.Context, cfg *config.ElasticsearchConfig) (*search.ElasticIndex, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	// 尝试连接并获取集群信息，验证连接是否成功
	res, err := es.Info(es.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("error connecting to Elasticsearch: %s", res.Status())
	}
	logger.Info("Elasticsearch client initialized successfully.", zap.Strings("addresses", cfg.Addresses))

	index := search.NewElasticIndex(es, cfg.Index)
	if err := index.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	return index, nil
}
