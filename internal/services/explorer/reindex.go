package explorer

import (
	"context"
	"fmt"

	"github.com/3Eeeecho/go-clouddrive/internal/config"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/logger"
	"github.com/3Eeeecho/go-clouddrive/internal/repositories"
	"go.uber.org/zap"
)

// IndexSyncer 把库里所有可见节点重新写入名称索引
//
// 用于补齐启用索引之前就存在的数据, 以及写入失败丢掉的事件。
type IndexSyncer interface {
	Reindex(ctx context.Context) (folders int, files int, err error)
}

type indexSyncer struct {
	folderRepo repositories.FolderRepository
	fileRepo   repositories.FileRepository
	batchSize  int
	deps       Deps
}

var _ IndexSyncer = (*indexSyncer)(nil)

func NewIndexSyncer(folderRepo repositories.FolderRepository, fileRepo repositories.FileRepository, cfg *config.Config, deps Deps) IndexSyncer {
	return &indexSyncer{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		batchSize:  cfg.Search.ReindexBatchSize,
		deps:       deps,
	}
}

func (s *indexSyncer) Reindex(ctx context.Context) (int, int, error) {
	folders, err := s.reindexFolders(ctx)
	if err != nil {
		return folders, 0, err
	}
	files, err := s.reindexFiles(ctx)
	if err != nil {
		return folders, files, err
	}
	logger.Info("Reindex: name index rebuilt", zap.Int("folders", folders), zap.Int("files", files))
	return folders, files, nil
}

func (s *indexSyncer) reindexFolders(ctx context.Context) (int, error) {
	var cursor uint64
	total := 0
	for {
		batch, err := s.folderRepo.ListLiveAfter(ctx, cursor, s.batchSize)
		if err != nil {
			return total, fmt.Errorf("重建目录索引失败: %w", err)
		}
		if len(batch) == 0 {
			return total, nil
		}
		s.deps.indexer().IndexFolders(ctx, batch...)
		total += len(batch)
		cursor = batch[len(batch)-1].ID
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
}

func (s *indexSyncer) reindexFiles(ctx context.Context) (int, error) {
	var cursor uint64
	total := 0
	for {
		batch, err := s.fileRepo.ListLiveAfter(ctx, cursor, s.batchSize)
		if err != nil {
			return total, fmt.Errorf("重建文件索引失败: %w", err)
		}
		if len(batch) == 0 {
			return total, nil
		}
		s.deps.indexer().IndexFiles(ctx, batch...)
		total += len(batch)
		cursor = batch[len(batch)-1].ID
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
}
