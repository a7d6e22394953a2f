package explorer

import (
	"context"

	"github.com/3Eeeecho/go-clouddrive/internal/models"
)

// NodeIndexer 名称索引的写入端, 失败只记录日志不影响主流程
type NodeIndexer interface {
	IndexFolders(ctx context.Context, folders ...models.Folder)
	IndexFiles(ctx context.Context, files ...models.File)
	Remove(ctx context.Context, typ models.ResourceType, ids ...uint64)
}

// NameSearcher 外部名称索引的查询端, 只返回候选ID, 结果需要回表过滤
type NameSearcher interface {
	SearchIDs(ctx context.Context, ownerID uint64, typ models.ResourceType, term string, limit int) ([]uint64, error)
}

// ReconcileScheduler 为 pending 文件安排一次延迟对账
type ReconcileScheduler interface {
	ScheduleReconcile(ctx context.Context, fileID uint64) error
}

type noopIndexer struct{}

func (noopIndexer) IndexFolders(context.Context, ...models.Folder)         {}
func (noopIndexer) IndexFiles(context.Context, ...models.File)             {}
func (noopIndexer) Remove(context.Context, models.ResourceType, ...uint64) {}

// Deps 可选依赖, 为空时使用默认实现
type Deps struct {
	Indexer   NodeIndexer
	Searcher  NameSearcher
	Scheduler ReconcileScheduler
}

func (d Deps) indexer() NodeIndexer {
	if d.Indexer == nil {
		return noopIndexer{}
	}
	return d.Indexer
}
