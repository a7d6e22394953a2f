package explorer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/3Eeeecho/go-clouddrive/internal/config"
	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/logger"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/storage"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/utils"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/xerr"
	"github.com/3Eeeecho/go-clouddrive/internal/repositories"
	"github.com/3Eeeecho/go-clouddrive/internal/services/access"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultMimeType = "application/octet-stream"

// InitUploadInput 上传前登记的文件元数据
type InitUploadInput struct {
	Name      string
	MimeType  string
	SizeBytes int64
	FolderID  *uint64
}

// FileService 文件元数据与预签名地址
type FileService interface {
	InitUpload(ctx context.Context, p models.Principal, in InitUploadInput) (*models.UploadTicket, error)
	// CompleteUpload 客户端上传完成后确认, 对象存在才会切换到 committed
	CompleteUpload(ctx context.Context, p models.Principal, fileID uint64) (*models.File, error)
	GetDownloadReference(ctx context.Context, p models.Principal, fileID uint64) (*models.DownloadReference, error)
	RenameOrMoveFile(ctx context.Context, p models.Principal, id uint64, newName *string, move *models.MoveTarget) (*models.File, error)
	SoftDeleteFile(ctx context.Context, p models.Principal, id uint64) error
	ToggleStar(ctx context.Context, p models.Principal, id uint64) (*models.StarResult, error)
}

type fileService struct {
	folderRepo repositories.FolderRepository
	fileRepo   repositories.FileRepository
	resolver   access.Resolver
	tm         TransactionManager
	storage    storage.StorageService
	cfg        *config.Config
	deps       Deps
}

var _ FileService = (*fileService)(nil)

func NewFileService(
	folderRepo repositories.FolderRepository,
	fileRepo repositories.FileRepository,
	resolver access.Resolver,
	tm TransactionManager,
	storageService storage.StorageService,
	cfg *config.Config,
	deps Deps,
) FileService {
	return &fileService{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		resolver:   resolver,
		tm:         tm,
		storage:    storageService,
		cfg:        cfg,
		deps:       deps,
	}
}

func (s *fileService) InitUpload(ctx context.Context, p models.Principal, in InitUploadInput) (*models.UploadTicket, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return nil, err
	}
	if in.SizeBytes < 0 {
		return nil, xerr.New(xerr.ValidationFailedCode, xerr.ErrValidation, "文件大小不能为负数")
	}
	mimeType := in.MimeType
	if mimeType == "" {
		mimeType = defaultMimeType
	}

	ownerID, err := writableParent(ctx, s.resolver, p, in.FolderID)
	if err != nil {
		return nil, err
	}

	file := &models.File{
		Name:        name,
		MimeType:    mimeType,
		SizeBytes:   in.SizeBytes,
		StorageKey:  utils.NewStorageKey(s.cfg.Storage.KeyPrefix, ownerID, name),
		OwnerID:     ownerID,
		FolderID:    in.FolderID,
		Status:      models.StatusActive,
		UploadState: models.UploadPending,
	}

	expiry := s.cfg.Storage.UploadURLExpiry
	var uploadURL string
	// 先插入再锁所有者并统计用量, 超额或签名失败时连同文件记录一起回滚
	err = s.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		fileRepo := s.fileRepo.WithTx(tx)
		if err := fileRepo.Create(ctx, file); err != nil {
			return err
		}
		if err := fileRepo.LockOwner(ctx, ownerID); err != nil {
			return err
		}
		used, err := fileRepo.SumLiveSize(ctx, ownerID)
		if err != nil {
			return err
		}
		if used > s.cfg.Quota.TotalBytes {
			logger.Info("InitUpload: quota exceeded",
				zap.Uint64("ownerID", ownerID),
				zap.Int64("used", used-in.SizeBytes),
				zap.Int64("size", in.SizeBytes))
			return xerr.ErrQuotaExceeded
		}
		url, err := s.storage.PresignPutURL(ctx, file.StorageKey, mimeType, expiry)
		if err != nil {
			return storageErr("签发上传地址失败", err)
		}
		uploadURL = url
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.deps.Scheduler != nil {
		if err := s.deps.Scheduler.ScheduleReconcile(ctx, file.ID); err != nil {
			logger.Warn("InitUpload: failed to schedule reconcile, sweeper will pick it up",
				zap.Uint64("fileID", file.ID), zap.Error(err))
		}
	}
	s.deps.indexer().IndexFiles(ctx, *file)

	logger.Info("InitUpload: upload initialised",
		zap.Uint64("fileID", file.ID),
		zap.String("storageKey", file.StorageKey),
		zap.Uint64("actorID", p.UserID))

	return &models.UploadTicket{
		File:       file,
		FileID:     file.ID,
		StorageKey: file.StorageKey,
		UploadURL:  uploadURL,
		ExpiresAt:  time.Now().Add(expiry),
	}, nil
}

func (s *fileService) CompleteUpload(ctx context.Context, p models.Principal, fileID uint64) (*models.File, error) {
	grant, err := s.resolver.Resolve(ctx, p, models.ResourceRef{Type: models.ResourceFile, ID: fileID}, models.ActionWrite)
	if err != nil {
		return nil, err
	}
	file := grant.File
	if file.UploadState == models.UploadCommitted {
		return file, nil
	}

	info, err := s.storage.StatObject(ctx, file.StorageKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, xerr.ErrUploadIncomplete
	}
	if err != nil {
		return nil, storageErr("查询上传对象失败", err)
	}

	size := info.Size
	if _, err := s.fileRepo.TransitionUpload(ctx, file.ID, models.UploadPending, models.UploadCommitted, &size); err != nil {
		return nil, err
	}

	committed, err := s.fileRepo.FindByID(ctx, file.ID)
	if err != nil {
		return nil, err
	}
	if committed == nil || !committed.IsLive() {
		return nil, xerr.ErrFileNotFound
	}
	s.deps.indexer().IndexFiles(ctx, *committed)
	return committed, nil
}

func (s *fileService) GetDownloadReference(ctx context.Context, p models.Principal, fileID uint64) (*models.DownloadReference, error) {
	grant, err := s.resolver.Resolve(ctx, p, models.ResourceRef{Type: models.ResourceFile, ID: fileID}, models.ActionRead)
	if err != nil {
		return nil, err
	}

	expiry := s.cfg.Storage.DownloadURLExpiry
	url, err := s.storage.PresignGetURL(ctx, grant.File.StorageKey, grant.File.Name, expiry)
	if err != nil {
		return nil, storageErr("签发下载地址失败", err)
	}
	return &models.DownloadReference{
		File:        grant.File,
		DownloadURL: url,
		ExpiresAt:   time.Now().Add(expiry),
	}, nil
}

func (s *fileService) RenameOrMoveFile(ctx context.Context, p models.Principal, id uint64, newName *string, move *models.MoveTarget) (*models.File, error) {
	grant, err := s.resolver.Resolve(ctx, p, models.ResourceRef{Type: models.ResourceFile, ID: id}, models.ActionWrite)
	if err != nil {
		return nil, err
	}
	name, folderID := grant.File.Name, grant.File.FolderID

	if newName != nil {
		name, err = normalizeName(*newName)
		if err != nil {
			return nil, err
		}
	}

	if move != nil {
		if err := checkMoveTarget(ctx, s.resolver, s.folderRepo, p, grant, move); err != nil {
			return nil, err
		}
		folderID = move.ParentID
	}

	// 只写名称和目录两列, 期间被删除或判定失败的文件不会被写回
	var file *models.File
	err = s.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		fileRepo := s.fileRepo.WithTx(tx)
		ok, err := fileRepo.UpdatePlacement(ctx, id, name, folderID)
		if err != nil {
			return err
		}
		if !ok {
			return xerr.ErrFileNotFound
		}
		file, err = fileRepo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.deps.indexer().IndexFiles(ctx, *file)
	return file, nil
}

func (s *fileService) SoftDeleteFile(ctx context.Context, p models.Principal, id uint64) error {
	if _, err := s.resolver.Resolve(ctx, p, models.ResourceRef{Type: models.ResourceFile, ID: id}, models.ActionWrite); err != nil {
		return err
	}

	err := s.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		return s.fileRepo.WithTx(tx).TrashByIDs(ctx, []uint64{id})
	})
	if err != nil {
		return fmt.Errorf("删除文件失败: %w", err)
	}

	logger.Info("SoftDeleteFile: file moved to trash", zap.Uint64("fileID", id), zap.Uint64("actorID", p.UserID))
	s.deps.indexer().Remove(ctx, models.ResourceFile, id)
	return nil
}

// ToggleStar 星标是所有者的个人标记, 被分享者不能修改
func (s *fileService) ToggleStar(ctx context.Context, p models.Principal, id uint64) (*models.StarResult, error) {
	grant, err := s.resolver.Resolve(ctx, p, models.ResourceRef{Type: models.ResourceFile, ID: id}, models.ActionRead)
	if err != nil {
		return nil, err
	}
	if !grant.IsOwner() {
		return nil, xerr.ErrFileNotFound
	}

	var file *models.File
	err = s.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		fileRepo := s.fileRepo.WithTx(tx)
		ok, err := fileRepo.ToggleStar(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return xerr.ErrFileNotFound
		}
		file, err = fileRepo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	msg := "Removed from starred"
	if file.IsStarred {
		msg = "Added to starred"
	}
	return &models.StarResult{File: file, Message: msg}, nil
}
