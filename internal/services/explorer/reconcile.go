package explorer

import (
	"context"
	"errors"
	"time"

	"github.com/3Eeeecho/go-clouddrive/internal/config"
	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/logger"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/storage"
	"github.com/3Eeeecho/go-clouddrive/internal/repositories"
	"go.uber.org/zap"
)

// Reconciler 把超时未确认的 pending 文件与对象存储核对, 存在则 committed, 否则 aborted
type Reconciler interface {
	// Reconcile 处理单个文件, 上传地址仍在有效期内时跳过
	Reconcile(ctx context.Context, fileID uint64) error
	// Sweep 扫描一批过期的 pending 文件, 返回发生状态切换的数量
	Sweep(ctx context.Context) (int, error)
}

type reconciler struct {
	fileRepo repositories.FileRepository
	storage  storage.StorageService
	cfg      *config.Config
	deps     Deps
	now      func() time.Time
}

var _ Reconciler = (*reconciler)(nil)

func NewReconciler(fileRepo repositories.FileRepository, storageService storage.StorageService, cfg *config.Config, deps Deps) Reconciler {
	return &reconciler{
		fileRepo: fileRepo,
		storage:  storageService,
		cfg:      cfg,
		deps:     deps,
		now:      time.Now,
	}
}

func (r *reconciler) Reconcile(ctx context.Context, fileID uint64) error {
	file, err := r.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		return err
	}
	if file == nil || file.UploadState != models.UploadPending {
		return nil
	}
	if file.CreatedAt.Add(r.cfg.Storage.UploadURLExpiry).After(r.now()) {
		logger.Debug("Reconcile: upload url still valid, skip", zap.Uint64("fileID", fileID))
		return nil
	}
	_, err = r.settle(ctx, file)
	return err
}

func (r *reconciler) Sweep(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-(r.cfg.Storage.UploadURLExpiry + r.cfg.Reconcile.GracePeriod))
	files, err := r.fileRepo.ListStalePending(ctx, cutoff, r.cfg.Reconcile.BatchSize)
	if err != nil {
		return 0, err
	}

	settled := 0
	for i := range files {
		if err := ctx.Err(); err != nil {
			return settled, err
		}
		changed, err := r.settle(ctx, &files[i])
		if err != nil {
			// 存储暂时不可用时留给下一轮
			logger.Warn("Sweep: failed to settle file", zap.Uint64("fileID", files[i].ID), zap.Error(err))
			continue
		}
		if changed {
			settled++
		}
	}
	if settled > 0 {
		logger.Info("Sweep: pending uploads settled", zap.Int("count", settled), zap.Int("scanned", len(files)))
	}
	return settled, nil
}

// settle 按对象是否存在切换上传状态, 并发确认时只有一方生效
func (r *reconciler) settle(ctx context.Context, file *models.File) (bool, error) {
	info, err := r.storage.StatObject(ctx, file.StorageKey)
	switch {
	case errors.Is(err, storage.ErrObjectNotFound):
		changed, err := r.fileRepo.TransitionUpload(ctx, file.ID, models.UploadPending, models.UploadAborted, nil)
		if err != nil {
			return false, err
		}
		if changed {
			logger.Info("Reconcile: upload aborted", zap.Uint64("fileID", file.ID), zap.String("storageKey", file.StorageKey))
			r.deps.indexer().Remove(ctx, models.ResourceFile, file.ID)
		}
		return changed, nil
	case err != nil:
		return false, storageErr("核对上传对象失败", err)
	}

	size := info.Size
	changed, err := r.fileRepo.TransitionUpload(ctx, file.ID, models.UploadPending, models.UploadCommitted, &size)
	if err != nil {
		return false, err
	}
	if changed {
		file.UploadState = models.UploadCommitted
		file.SizeBytes = size
		logger.Info("Reconcile: upload committed", zap.Uint64("fileID", file.ID), zap.Int64("size", size))
		r.deps.indexer().IndexFiles(ctx, *file)
	}
	return changed, nil
}
