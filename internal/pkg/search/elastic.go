package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/logger"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"go.uber.org/zap"
)

// 索引 mapping, name_lower 用于大小写不敏感的通配查询
const indexMapping = `{
  "mappings": {
    "properties": {
      "type":       {"type": "keyword"},
      "node_id":    {"type": "long"},
      "owner_id":   {"type": "long"},
      "status":     {"type": "keyword"},
      "name":       {"type": "keyword"},
      "name_lower": {"type": "keyword"}
    }
  }
}`

// Document 索引中的一个节点
type Document struct {
	Type      models.ResourceType `json:"type"`
	NodeID    uint64              `json:"node_id"`
	OwnerID   uint64              `json:"owner_id"`
	Status    models.NodeStatus   `json:"status"`
	Name      string              `json:"name"`
	NameLower string              `json:"name_lower"`
}

// ElasticIndex 基于 Elasticsearch 的名称索引
//
// 写入失败只记录日志, 查询结果需要调用方回表过滤。
type ElasticIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewElasticIndex(es *elasticsearch.Client, index string) *ElasticIndex {
	return &ElasticIndex{es: es, index: index}
}

func docID(typ models.ResourceType, id uint64) string {
	return fmt.Sprintf("%s-%d", typ, id)
}

// EnsureIndex 索引不存在时按 mapping 创建
func (e *ElasticIndex) EnsureIndex(ctx context.Context) error {
	res, err := e.es.Indices.Exists([]string{e.index}, e.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("检查索引失败: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = e.es.Indices.Create(e.index,
		e.es.Indices.Create.WithContext(ctx),
		e.es.Indices.Create.WithBody(strings.NewReader(indexMapping)))
	if err != nil {
		return fmt.Errorf("创建索引失败: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("创建索引失败: %s", res.String())
	}
	logger.Info("Elasticsearch index created", zap.String("index", e.index))
	return nil
}

func folderDocument(f models.Folder) Document {
	return Document{
		Type:      models.ResourceFolder,
		NodeID:    f.ID,
		OwnerID:   f.OwnerID,
		Status:    f.Status,
		Name:      f.Name,
		NameLower: strings.ToLower(f.Name),
	}
}

// fileDocument 上传失败的文件按已删除写入
func fileDocument(f models.File) Document {
	status := f.Status
	if !f.IsLive() {
		status = models.StatusTrashed
	}
	return Document{
		Type:      models.ResourceFile,
		NodeID:    f.ID,
		OwnerID:   f.OwnerID,
		Status:    status,
		Name:      f.Name,
		NameLower: strings.ToLower(f.Name),
	}
}

func (e *ElasticIndex) IndexFolders(ctx context.Context, folders ...models.Folder) {
	docs := make([]Document, 0, len(folders))
	for _, f := range folders {
		docs = append(docs, folderDocument(f))
	}
	e.write(ctx, docs)
}

func (e *ElasticIndex) IndexFiles(ctx context.Context, files ...models.File) {
	docs := make([]Document, 0, len(files))
	for _, f := range files {
		docs = append(docs, fileDocument(f))
	}
	e.write(ctx, docs)
}

// write 单条走 index 接口, 多条走 _bulk
func (e *ElasticIndex) write(ctx context.Context, docs []Document) {
	switch {
	case len(docs) == 1:
		e.put(ctx, docs[0])
	case len(docs) > 1:
		if err := e.bulk(ctx, docs); err != nil {
			logger.Warn("Elasticsearch bulk index failed", zap.Int("docs", len(docs)), zap.Error(err))
		}
	}
}

func (e *ElasticIndex) bulk(ctx context.Context, docs []Document) error {
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:     e.es,
		Index:      e.index,
		NumWorkers: 1,
	})
	if err != nil {
		return fmt.Errorf("创建批量写入器失败: %w", err)
	}

	for _, doc := range docs {
		body, err := json.Marshal(doc)
		if err != nil {
			_ = bi.Close(ctx)
			return err
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: docID(doc.Type, doc.NodeID),
			Body:       bytes.NewReader(body),
			OnFailure: func(_ context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				logger.Warn("Elasticsearch bulk item rejected",
					zap.String("docID", item.DocumentID),
					zap.String("reason", res.Error.Reason),
					zap.Error(err))
			},
		})
		if err != nil {
			_ = bi.Close(ctx)
			return fmt.Errorf("批量写入失败: %w", err)
		}
	}
	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("批量写入失败: %w", err)
	}
	if failed := bi.Stats().NumFailed; failed > 0 {
		return fmt.Errorf("批量写入有 %d 条失败", failed)
	}
	return nil
}

func (e *ElasticIndex) Remove(ctx context.Context, typ models.ResourceType, ids ...uint64) {
	for _, id := range ids {
		res, err := e.es.Delete(e.index, docID(typ, id), e.es.Delete.WithContext(ctx))
		if err != nil {
			logger.Warn("Elasticsearch delete failed", zap.String("docID", docID(typ, id)), zap.Error(err))
			continue
		}
		if res.IsError() && res.StatusCode != http.StatusNotFound {
			logger.Warn("Elasticsearch delete rejected", zap.String("docID", docID(typ, id)), zap.String("status", res.Status()))
		}
		res.Body.Close()
	}
}

func (e *ElasticIndex) put(ctx context.Context, doc Document) {
	body, err := json.Marshal(doc)
	if err != nil {
		logger.Error("Elasticsearch marshal failed", zap.Error(err))
		return
	}
	id := docID(doc.Type, doc.NodeID)
	res, err := e.es.Index(e.index, bytes.NewReader(body),
		e.es.Index.WithContext(ctx),
		e.es.Index.WithDocumentID(id))
	if err != nil {
		logger.Warn("Elasticsearch index failed", zap.String("docID", id), zap.Error(err))
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		logger.Warn("Elasticsearch index rejected", zap.String("docID", id), zap.String("status", res.Status()))
	}
}

// escapeWildcard 转义通配查询里的 * ? 和反斜杠
func escapeWildcard(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)
	return r.Replace(term)
}

func buildQuery(ownerID uint64, typ models.ResourceType, term string) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"owner_id": ownerID}},
					map[string]any{"term": map[string]any{"type": typ}},
					map[string]any{"term": map[string]any{"status": models.StatusActive}},
					map[string]any{"wildcard": map[string]any{
						"name_lower": map[string]any{"value": "*" + escapeWildcard(strings.ToLower(term)) + "*"},
					}},
				},
			},
		},
		"sort": []any{map[string]any{"name": "asc"}},
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchIDs 返回匹配节点的ID, 顺序按名称
func (e *ElasticIndex) SearchIDs(ctx context.Context, ownerID uint64, typ models.ResourceType, term string, limit int) ([]uint64, error) {
	body, err := json.Marshal(buildQuery(ownerID, typ, term))
	if err != nil {
		return nil, err
	}
	res, err := e.es.Search(
		e.es.Search.WithContext(ctx),
		e.es.Search.WithIndex(e.index),
		e.es.Search.WithBody(bytes.NewReader(body)),
		e.es.Search.WithSize(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("搜索请求失败: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("搜索请求被拒绝: %s %s", res.Status(), msg)
	}
	return decodeIDs(res.Body)
}

func decodeIDs(r io.Reader) ([]uint64, error) {
	var sr searchResponse
	if err := json.NewDecoder(r).Decode(&sr); err != nil {
		return nil, fmt.Errorf("解析搜索结果失败: %w", err)
	}
	ids := make([]uint64, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		ids = append(ids, h.Source.NodeID)
	}
	return ids, nil
}
