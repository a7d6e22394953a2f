package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"gorm.io/gorm"
)

type FolderRepository interface {
	// WithTx 返回绑定到事务的仓储
	WithTx(tx *gorm.DB) FolderRepository

	Create(ctx context.Context, folder *models.Folder) error
	// UpdatePlacement 只改名称和父目录, 目录已删除时返回 false
	UpdatePlacement(ctx context.Context, id uint64, name string, parentID *uint64) (bool, error)
	// FindByID 不过滤状态, 未找到返回 (nil, nil)
	FindByID(ctx context.Context, id uint64) (*models.Folder, error)
	FindByIDs(ctx context.Context, ids []uint64) ([]models.Folder, error)
	// ListChildren 返回 owner 在 parentID 下未删除的子目录, 按名称升序
	ListChildren(ctx context.Context, ownerID uint64, parentID *uint64) ([]models.Folder, error)
	// ListLiveChildIDs 返回这些目录下未删除的子目录ID
	ListLiveChildIDs(ctx context.Context, parentIDs []uint64) ([]uint64, error)
	TrashByIDs(ctx context.Context, ids []uint64) error
	SearchByName(ctx context.Context, ownerID uint64, term string, limit int) ([]models.Folder, error)
	// ListLiveAfter 按ID游标分页返回所有用户未删除的目录
	ListLiveAfter(ctx context.Context, afterID uint64, limit int) ([]models.Folder, error)
}

type folderRepository struct {
	db *gorm.DB
}

var _ FolderRepository = (*folderRepository)(nil)

func NewFolderRepository(db *gorm.DB) FolderRepository {
	return &folderRepository{db: db}
}

func (r *folderRepository) WithTx(tx *gorm.DB) FolderRepository {
	return &folderRepository{db: tx}
}

func (r *folderRepository) Create(ctx context.Context, folder *models.Folder) error {
	if err := r.db.WithContext(ctx).Create(folder).Error; err != nil {
		return fmt.Errorf("创建目录失败: %w", translateError(err))
	}
	return nil
}

func (r *folderRepository) UpdatePlacement(ctx context.Context, id uint64, name string, parentID *uint64) (bool, error) {
	res := r.db.WithContext(ctx).Session(&gorm.Session{SkipHooks: true}).
		Model(&models.Folder{}).
		Where("id = ? AND status = ?", id, models.StatusActive).
		Updates(map[string]any{
			"name":       name,
			"parent_id":  parentID,
			"parent_key": models.ParentKey(parentID),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("更新目录失败: %w", translateError(res.Error))
	}
	return res.RowsAffected == 1, nil
}

func (r *folderRepository) FindByID(ctx context.Context, id uint64) (*models.Folder, error) {
	var folder models.Folder
	f, err := notFoundAsNil(&folder, r.db.WithContext(ctx).First(&folder, id).Error)
	if err != nil {
		return nil, fmt.Errorf("查询目录失败: %w", err)
	}
	return f, nil
}

func (r *folderRepository) FindByIDs(ctx context.Context, ids []uint64) ([]models.Folder, error) {
	var folders []models.Folder
	if len(ids) == 0 {
		return folders, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC, id ASC").Find(&folders).Error; err != nil {
		return nil, fmt.Errorf("批量查询目录失败: %w", err)
	}
	return folders, nil
}

func (r *folderRepository) ListChildren(ctx context.Context, ownerID uint64, parentID *uint64) ([]models.Folder, error) {
	folders := []models.Folder{}
	query := r.db.WithContext(ctx).Where("owner_id = ? AND status = ?", ownerID, models.StatusActive)
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}
	if err := query.Order("name ASC, id ASC").Find(&folders).Error; err != nil {
		return nil, fmt.Errorf("查询子目录失败: %w", err)
	}
	return folders, nil
}

func (r *folderRepository) ListLiveChildIDs(ctx context.Context, parentIDs []uint64) ([]uint64, error) {
	var ids []uint64
	if len(parentIDs) == 0 {
		return ids, nil
	}
	err := r.db.WithContext(ctx).Model(&models.Folder{}).
		Where("parent_id IN ? AND status = ?", parentIDs, models.StatusActive).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("查询子目录ID失败: %w", err)
	}
	return ids, nil
}

func (r *folderRepository) TrashByIDs(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	// live_slot 置空后不再参与同名唯一约束
	err := r.db.WithContext(ctx).Session(&gorm.Session{SkipHooks: true}).
		Model(&models.Folder{}).
		Where("id IN ? AND status = ?", ids, models.StatusActive).
		Updates(map[string]any{
			"status":     models.StatusTrashed,
			"live_slot":  nil,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("删除目录失败: %w", err)
	}
	return nil
}

func (r *folderRepository) SearchByName(ctx context.Context, ownerID uint64, term string, limit int) ([]models.Folder, error) {
	folders := []models.Folder{}
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND status = ?", ownerID, models.StatusActive).
		Where("LOWER(name) LIKE ? ESCAPE '!'", containsPattern(term)).
		Order("name ASC, id ASC").
		Limit(limit).
		Find(&folders).Error
	if err != nil {
		return nil, fmt.Errorf("搜索目录失败: %w", err)
	}
	return folders, nil
}

func (r *folderRepository) ListLiveAfter(ctx context.Context, afterID uint64, limit int) ([]models.Folder, error) {
	var folders []models.Folder
	err := r.db.WithContext(ctx).
		Where("id > ? AND status = ?", afterID, models.StatusActive).
		Order("id ASC").
		Limit(limit).
		Find(&folders).Error
	if err != nil {
		return nil, fmt.Errorf("分页查询目录失败: %w", err)
	}
	return folders, nil
}
