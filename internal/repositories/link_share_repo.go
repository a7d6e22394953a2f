package repositories

import (
	"context"
	"fmt"

	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"gorm.io/gorm"
)

type LinkShareRepository interface {
	Create(ctx context.Context, link *models.LinkShare) error
	// FindByLinkID 未找到返回 (nil, nil)
	FindByLinkID(ctx context.Context, linkID string) (*models.LinkShare, error)
	ListByResource(ctx context.Context, ref models.ResourceRef) ([]models.LinkShare, error)
	Delete(ctx context.Context, linkID string) error
}

type linkShareRepository struct {
	db *gorm.DB
}

var _ LinkShareRepository = (*linkShareRepository)(nil)

func NewLinkShareRepository(db *gorm.DB) LinkShareRepository {
	return &linkShareRepository{db: db}
}

func (r *linkShareRepository) Create(ctx context.Context, link *models.LinkShare) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		return fmt.Errorf("创建分享链接失败: %w", translateError(err))
	}
	return nil
}

func (r *linkShareRepository) FindByLinkID(ctx context.Context, linkID string) (*models.LinkShare, error) {
	var link models.LinkShare
	l, err := notFoundAsNil(&link, r.db.WithContext(ctx).Where("link_id = ?", linkID).First(&link).Error)
	if err != nil {
		return nil, fmt.Errorf("查询分享链接失败: %w", err)
	}
	return l, nil
}

func (r *linkShareRepository) ListByResource(ctx context.Context, ref models.ResourceRef) ([]models.LinkShare, error) {
	links := []models.LinkShare{}
	err := r.db.WithContext(ctx).
		Where("resource_type = ? AND resource_id = ?", ref.Type, ref.ID).
		Order("created_at ASC").
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("查询分享链接列表失败: %w", err)
	}
	return links, nil
}

func (r *linkShareRepository) Delete(ctx context.Context, linkID string) error {
	if err := r.db.WithContext(ctx).Where("link_id = ?", linkID).Delete(&models.LinkShare{}).Error; err != nil {
		return fmt.Errorf("删除分享链接失败: %w", err)
	}
	return nil
}
