package repositories

import (
	"context"
	"fmt"

	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"gorm.io/gorm"
)

type ShareRepository interface {
	WithTx(tx *gorm.DB) ShareRepository

	Create(ctx context.Context, share *models.Share) error
	UpdateRole(ctx context.Context, share *models.Share, role models.Role) error
	FindByID(ctx context.Context, id uint64) (*models.Share, error)
	// FindByGrant 同一资源同一被授权人最多一行, 未找到返回 (nil, nil)
	FindByGrant(ctx context.Context, ref models.ResourceRef, granteeID uint64) (*models.Share, error)
	// FindForGrantee 返回被授权人在这些资源上的全部授权
	FindForGrantee(ctx context.Context, granteeID uint64, refs []models.ResourceRef) ([]models.Share, error)
	ListByResource(ctx context.Context, ref models.ResourceRef, page, pageSize int) ([]models.ShareWithGrantee, int64, error)
	Delete(ctx context.Context, id uint64) error
}

type shareRepository struct {
	db *gorm.DB
}

var _ ShareRepository = (*shareRepository)(nil)

func NewShareRepository(db *gorm.DB) ShareRepository {
	return &shareRepository{db: db}
}

func (r *shareRepository) WithTx(tx *gorm.DB) ShareRepository {
	return &shareRepository{db: tx}
}

func (r *shareRepository) Create(ctx context.Context, share *models.Share) error {
	if err := r.db.WithContext(ctx).Create(share).Error; err != nil {
		return fmt.Errorf("创建分享失败: %w", translateError(err))
	}
	return nil
}

func (r *shareRepository) UpdateRole(ctx context.Context, share *models.Share, role models.Role) error {
	if err := r.db.WithContext(ctx).Model(share).Update("role", role).Error; err != nil {
		return fmt.Errorf("更新分享角色失败: %w", err)
	}
	share.Role = role
	return nil
}

func (r *shareRepository) FindByID(ctx context.Context, id uint64) (*models.Share, error) {
	var share models.Share
	s, err := notFoundAsNil(&share, r.db.WithContext(ctx).First(&share, id).Error)
	if err != nil {
		return nil, fmt.Errorf("查询分享失败: %w", err)
	}
	return s, nil
}

func (r *shareRepository) FindByGrant(ctx context.Context, ref models.ResourceRef, granteeID uint64) (*models.Share, error) {
	var share models.Share
	err := r.db.WithContext(ctx).
		Where("resource_type = ? AND resource_id = ? AND grantee_user_id = ?", ref.Type, ref.ID, granteeID).
		First(&share).Error
	s, err := notFoundAsNil(&share, err)
	if err != nil {
		return nil, fmt.Errorf("查询分享失败: %w", err)
	}
	return s, nil
}

func (r *shareRepository) FindForGrantee(ctx context.Context, granteeID uint64, refs []models.ResourceRef) ([]models.Share, error) {
	var shares []models.Share
	var fileIDs, folderIDs []uint64
	for _, ref := range refs {
		switch ref.Type {
		case models.ResourceFile:
			fileIDs = append(fileIDs, ref.ID)
		case models.ResourceFolder:
			folderIDs = append(folderIDs, ref.ID)
		}
	}
	if len(fileIDs) == 0 && len(folderIDs) == 0 {
		return shares, nil
	}

	db := r.db.WithContext(ctx)
	cond := db.Where("1 = 0")
	if len(fileIDs) > 0 {
		cond = cond.Or("resource_type = ? AND resource_id IN ?", models.ResourceFile, fileIDs)
	}
	if len(folderIDs) > 0 {
		cond = cond.Or("resource_type = ? AND resource_id IN ?", models.ResourceFolder, folderIDs)
	}
	if err := db.Where("grantee_user_id = ?", granteeID).Where(cond).Find(&shares).Error; err != nil {
		return nil, fmt.Errorf("查询用户授权失败: %w", err)
	}
	return shares, nil
}

func (r *shareRepository) ListByResource(ctx context.Context, ref models.ResourceRef, page, pageSize int) ([]models.ShareWithGrantee, int64, error) {
	items := []models.ShareWithGrantee{}
	var total int64

	base := r.db.WithContext(ctx).Model(&models.Share{}).
		Where("shares.resource_type = ? AND shares.resource_id = ?", ref.Type, ref.ID).
		Session(&gorm.Session{})
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计分享数量失败: %w", err)
	}

	err := base.
		Select("shares.*, users.email AS grantee_email, users.name AS grantee_name").
		Joins("JOIN users ON users.id = shares.grantee_user_id").
		Order("shares.created_at ASC, shares.id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Scan(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询分享列表失败: %w", err)
	}
	return items, total, nil
}

func (r *shareRepository) Delete(ctx context.Context, id uint64) error {
	if err := r.db.WithContext(ctx).Delete(&models.Share{}, id).Error; err != nil {
		return fmt.Errorf("删除分享失败: %w", err)
	}
	return nil
}
