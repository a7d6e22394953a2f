package explorer

import (
	"context"
	"fmt"

	"github.com/3Eeeecho/go-clouddrive/internal/config"
	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/logger"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/xerr"
	"github.com/3Eeeecho/go-clouddrive/internal/repositories"
	"github.com/3Eeeecho/go-clouddrive/internal/services/access"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HierarchyService 目录树的增删改查
type HierarchyService interface {
	CreateFolder(ctx context.Context, p models.Principal, name string, parentID *uint64) (*models.Folder, error)
	// GetFolderContents folderID 为 nil 表示登录用户自己的根目录
	GetFolderContents(ctx context.Context, p models.Principal, folderID *uint64) (*models.FolderContents, error)
	// RenameOrMoveFolder newName 与 move 为 nil 时保持原值
	RenameOrMoveFolder(ctx context.Context, p models.Principal, id uint64, newName *string, move *models.MoveTarget) (*models.Folder, error)
	SoftDeleteFolder(ctx context.Context, p models.Principal, id uint64) error
}

type hierarchyService struct {
	folderRepo repositories.FolderRepository
	fileRepo   repositories.FileRepository
	resolver   access.Resolver
	tm         TransactionManager
	cfg        *config.Config
	deps       Deps
}

var _ HierarchyService = (*hierarchyService)(nil)

func NewHierarchyService(
	folderRepo repositories.FolderRepository,
	fileRepo repositories.FileRepository,
	resolver access.Resolver,
	tm TransactionManager,
	cfg *config.Config,
	deps Deps,
) HierarchyService {
	return &hierarchyService{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		resolver:   resolver,
		tm:         tm,
		cfg:        cfg,
		deps:       deps,
	}
}

func (s *hierarchyService) CreateFolder(ctx context.Context, p models.Principal, name string, parentID *uint64) (*models.Folder, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	ownerID, err := writableParent(ctx, s.resolver, p, parentID)
	if err != nil {
		return nil, err
	}

	folder := &models.Folder{
		Name:     name,
		ParentID: parentID,
		OwnerID:  ownerID,
		Status:   models.StatusActive,
	}
	if err := s.folderRepo.Create(ctx, folder); err != nil {
		return nil, folderConflict(err)
	}

	logger.Info("CreateFolder: folder created",
		zap.Uint64("folderID", folder.ID),
		zap.Uint64("ownerID", ownerID),
		zap.Uint64("actorID", p.UserID))
	s.deps.indexer().IndexFolders(ctx, *folder)
	return folder, nil
}

func (s *hierarchyService) GetFolderContents(ctx context.Context, p models.Principal, folderID *uint64) (*models.FolderContents, error) {
	contents := &models.FolderContents{}

	var ownerID uint64
	if folderID == nil {
		id, err := ownerRoot(p)
		if err != nil {
			return nil, err
		}
		ownerID = id
	} else {
		grant, err := s.resolver.Resolve(ctx, p, models.ResourceRef{Type: models.ResourceFolder, ID: *folderID}, models.ActionRead)
		if err != nil {
			return nil, err
		}
		ownerID = grant.OwnerID
		contents.Folder = grant.Folder
	}

	folders, err := s.folderRepo.ListChildren(ctx, ownerID, folderID)
	if err != nil {
		return nil, fmt.Errorf("获取目录内容失败: %w", err)
	}
	files, err := s.fileRepo.ListInFolder(ctx, ownerID, folderID)
	if err != nil {
		return nil, fmt.Errorf("获取目录内容失败: %w", err)
	}
	contents.Folders = folders
	contents.Files = files
	return contents, nil
}

func (s *hierarchyService) RenameOrMoveFolder(ctx context.Context, p models.Principal, id uint64, newName *string, move *models.MoveTarget) (*models.Folder, error) {
	grant, err := s.resolver.Resolve(ctx, p, models.ResourceRef{Type: models.ResourceFolder, ID: id}, models.ActionWrite)
	if err != nil {
		return nil, err
	}
	name, parentID := grant.Folder.Name, grant.Folder.ParentID

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
		parentID = move.ParentID
	}

	var folder *models.Folder
	err = s.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		folderRepo := s.folderRepo.WithTx(tx)
		ok, err := folderRepo.UpdatePlacement(ctx, id, name, parentID)
		if err != nil {
			return folderConflict(err)
		}
		// 已被并发删除的目录不能复活
		if !ok {
			return xerr.ErrFolderNotFound
		}
		folder, err = folderRepo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.deps.indexer().IndexFolders(ctx, *folder)
	return folder, nil
}

func (s *hierarchyService) SoftDeleteFolder(ctx context.Context, p models.Principal, id uint64) error {
	if _, err := s.resolver.Resolve(ctx, p, models.ResourceRef{Type: models.ResourceFolder, ID: id}, models.ActionWrite); err != nil {
		return err
	}

	var folderIDs, fileIDs []uint64
	err := s.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		folderRepo := s.folderRepo.WithTx(tx)
		fileRepo := s.fileRepo.WithTx(tx)

		folderIDs = []uint64{id}
		if s.cfg.Hierarchy.CascadeDelete {
			ids, err := collectDescendants(ctx, folderRepo, id)
			if err != nil {
				return fmt.Errorf("收集子目录失败: %w", err)
			}
			folderIDs = ids

			fileIDs, err = fileRepo.ListLiveIDsInFolders(ctx, folderIDs)
			if err != nil {
				return err
			}
			if err := fileRepo.TrashByIDs(ctx, fileIDs); err != nil {
				return err
			}
		}
		return folderRepo.TrashByIDs(ctx, folderIDs)
	})
	if err != nil {
		return err
	}

	logger.Info("SoftDeleteFolder: folder moved to trash",
		zap.Uint64("folderID", id),
		zap.Int("folders", len(folderIDs)),
		zap.Int("files", len(fileIDs)),
		zap.Uint64("actorID", p.UserID))
	s.deps.indexer().Remove(ctx, models.ResourceFolder, folderIDs...)
	s.deps.indexer().Remove(ctx, models.ResourceFile, fileIDs...)
	return nil
}
