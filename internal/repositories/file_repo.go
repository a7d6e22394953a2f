package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FileRepository interface {
	WithTx(tx *gorm.DB) FileRepository

	Create(ctx context.Context, file *models.File) error
	// UpdatePlacement 只改名称和所在目录, 文件不可见时返回 false
	UpdatePlacement(ctx context.Context, id uint64, name string, folderID *uint64) (bool, error)
	// ToggleStar 在库内翻转星标, 不改 updated_at
	ToggleStar(ctx context.Context, id uint64) (bool, error)
	// FindByID 不过滤状态, 未找到返回 (nil, nil)
	FindByID(ctx context.Context, id uint64) (*models.File, error)
	FindByIDs(ctx context.Context, ids []uint64) ([]models.File, error)
	// ListInFolder 返回目录下可见文件 (未删除且上传未失败), 按名称升序
	ListInFolder(ctx context.Context, ownerID uint64, folderID *uint64) ([]models.File, error)
	// ListLiveIDsInFolders 返回这些目录下未删除的文件ID
	ListLiveIDsInFolders(ctx context.Context, folderIDs []uint64) ([]uint64, error)
	TrashByIDs(ctx context.Context, ids []uint64) error

	ListRecent(ctx context.Context, ownerID uint64, limit int) ([]models.File, error)
	ListStarred(ctx context.Context, ownerID uint64) ([]models.File, error)
	SearchByName(ctx context.Context, ownerID uint64, term string, limit int) ([]models.File, error)
	SumLiveSize(ctx context.Context, ownerID uint64) (int64, error)
	// LockOwner 锁住所有者的用户行, 串行化同一所有者的配额检查, 需在事务内调用
	LockOwner(ctx context.Context, ownerID uint64) error

	// ListLiveAfter 按ID游标分页返回所有用户的可见文件, 用于重建索引
	ListLiveAfter(ctx context.Context, afterID uint64, limit int) ([]models.File, error)

	// ListStalePending 返回 created_at 早于 before 仍处于 pending 的文件
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]models.File, error)
	// TransitionUpload 仅当当前状态为 from 时切换到 to, 返回是否发生了切换
	TransitionUpload(ctx context.Context, id uint64, from, to models.UploadState, sizeBytes *int64) (bool, error)
}

type fileRepository struct {
	db *gorm.DB
}

var _ FileRepository = (*fileRepository)(nil)

func NewFileRepository(db *gorm.DB) FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) WithTx(tx *gorm.DB) FileRepository {
	return &fileRepository{db: tx}
}

// live 可见文件的公共过滤条件
func (r *fileRepository) live(ctx context.Context, ownerID uint64) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("owner_id = ? AND status = ? AND upload_state <> ?", ownerID, models.StatusActive, models.UploadAborted)
}

func (r *fileRepository) Create(ctx context.Context, file *models.File) error {
	if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
		return fmt.Errorf("创建文件记录失败: %w", translateError(err))
	}
	return nil
}

// liveRow 按ID定位未删除且上传未失败的行
func (r *fileRepository) liveRow(ctx context.Context, id uint64) *gorm.DB {
	return r.db.WithContext(ctx).Session(&gorm.Session{SkipHooks: true}).
		Model(&models.File{}).
		Where("id = ? AND status = ? AND upload_state <> ?", id, models.StatusActive, models.UploadAborted)
}

func (r *fileRepository) UpdatePlacement(ctx context.Context, id uint64, name string, folderID *uint64) (bool, error) {
	res := r.liveRow(ctx, id).Updates(map[string]any{
		"name":       name,
		"folder_id":  folderID,
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return false, fmt.Errorf("更新文件记录失败: %w", translateError(res.Error))
	}
	return res.RowsAffected == 1, nil
}

func (r *fileRepository) ToggleStar(ctx context.Context, id uint64) (bool, error) {
	res := r.liveRow(ctx, id).UpdateColumn("is_starred", gorm.Expr("NOT is_starred"))
	if res.Error != nil {
		return false, fmt.Errorf("更新星标失败: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *fileRepository) FindByID(ctx context.Context, id uint64) (*models.File, error) {
	var file models.File
	f, err := notFoundAsNil(&file, r.db.WithContext(ctx).First(&file, id).Error)
	if err != nil {
		return nil, fmt.Errorf("查询文件失败: %w", err)
	}
	return f, nil
}

func (r *fileRepository) FindByIDs(ctx context.Context, ids []uint64) ([]models.File, error) {
	var files []models.File
	if len(ids) == 0 {
		return files, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC, id ASC").Find(&files).Error; err != nil {
		return nil, fmt.Errorf("批量查询文件失败: %w", err)
	}
	return files, nil
}

func (r *fileRepository) ListInFolder(ctx context.Context, ownerID uint64, folderID *uint64) ([]models.File, error) {
	files := []models.File{}
	query := r.live(ctx, ownerID)
	if folderID == nil {
		query = query.Where("folder_id IS NULL")
	} else {
		query = query.Where("folder_id = ?", *folderID)
	}
	if err := query.Order("name ASC, id ASC").Find(&files).Error; err != nil {
		return nil, fmt.Errorf("查询目录文件失败: %w", err)
	}
	return files, nil
}

func (r *fileRepository) ListLiveIDsInFolders(ctx context.Context, folderIDs []uint64) ([]uint64, error) {
	var ids []uint64
	if len(folderIDs) == 0 {
		return ids, nil
	}
	err := r.db.WithContext(ctx).Model(&models.File{}).
		Where("folder_id IN ? AND status = ?", folderIDs, models.StatusActive).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("查询目录下文件ID失败: %w", err)
	}
	return ids, nil
}

func (r *fileRepository) TrashByIDs(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Session(&gorm.Session{SkipHooks: true}).
		Model(&models.File{}).
		Where("id IN ? AND status = ?", ids, models.StatusActive).
		Updates(map[string]any{"status": models.StatusTrashed, "updated_at": time.Now()}).Error
	if err != nil {
		return fmt.Errorf("删除文件失败: %w", err)
	}
	return nil
}

func (r *fileRepository) ListRecent(ctx context.Context, ownerID uint64, limit int) ([]models.File, error) {
	files := []models.File{}
	if err := r.live(ctx, ownerID).Order("updated_at DESC, id DESC").Limit(limit).Find(&files).Error; err != nil {
		return nil, fmt.Errorf("查询最近文件失败: %w", err)
	}
	return files, nil
}

func (r *fileRepository) ListStarred(ctx context.Context, ownerID uint64) ([]models.File, error) {
	files := []models.File{}
	err := r.live(ctx, ownerID).Where("is_starred = ?", true).Order("updated_at DESC, id DESC").Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("查询星标文件失败: %w", err)
	}
	return files, nil
}

func (r *fileRepository) SearchByName(ctx context.Context, ownerID uint64, term string, limit int) ([]models.File, error) {
	files := []models.File{}
	err := r.live(ctx, ownerID).
		Where("LOWER(name) LIKE ? ESCAPE '!'", containsPattern(term)).
		Order("name ASC, id ASC").
		Limit(limit).
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("搜索文件失败: %w", err)
	}
	return files, nil
}

func (r *fileRepository) SumLiveSize(ctx context.Context, ownerID uint64) (int64, error) {
	var total int64
	err := r.live(ctx, ownerID).Model(&models.File{}).Select("COALESCE(SUM(size_bytes), 0)").Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("统计存储用量失败: %w", err)
	}
	return total, nil
}

func (r *fileRepository) LockOwner(ctx context.Context, ownerID uint64) error {
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", ownerID).
		Pluck("id", &ids).Error
	if err != nil {
		return fmt.Errorf("锁定用户失败: %w", err)
	}
	return nil
}

func (r *fileRepository) ListLiveAfter(ctx context.Context, afterID uint64, limit int) ([]models.File, error) {
	var files []models.File
	err := r.db.WithContext(ctx).
		Where("id > ? AND status = ? AND upload_state <> ?", afterID, models.StatusActive, models.UploadAborted).
		Order("id ASC").
		Limit(limit).
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("分页查询文件失败: %w", err)
	}
	return files, nil
}

func (r *fileRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]models.File, error) {
	var files []models.File
	err := r.db.WithContext(ctx).
		Where("upload_state = ? AND created_at < ?", models.UploadPending, before).
		Order("id ASC").
		Limit(limit).
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("查询待对账文件失败: %w", err)
	}
	return files, nil
}

func (r *fileRepository) TransitionUpload(ctx context.Context, id uint64, from, to models.UploadState, sizeBytes *int64) (bool, error) {
	updates := map[string]any{"upload_state": to, "updated_at": time.Now()}
	if sizeBytes != nil {
		updates["size_bytes"] = *sizeBytes
	}
	res := r.db.WithContext(ctx).Session(&gorm.Session{SkipHooks: true}).
		Model(&models.File{}).
		Where("id = ? AND upload_state = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("更新上传状态失败: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
