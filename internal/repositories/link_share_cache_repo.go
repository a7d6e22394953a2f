package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/cache"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/logger"
	"go.uber.org/zap"
)

// cachedLinkShareRepository 链接按 link_id 读多写少, 查询结果缓存到 Redis
type cachedLinkShareRepository struct {
	next  LinkShareRepository
	cache cache.Cache
	ttl   time.Duration
}

var _ LinkShareRepository = (*cachedLinkShareRepository)(nil)

func NewCachedLinkShareRepository(next LinkShareRepository, c cache.Cache, ttl time.Duration) LinkShareRepository {
	return &cachedLinkShareRepository{next: next, cache: c, ttl: ttl}
}

func (r *cachedLinkShareRepository) Create(ctx context.Context, link *models.LinkShare) error {
	return r.next.Create(ctx, link)
}

func (r *cachedLinkShareRepository) FindByLinkID(ctx context.Context, linkID string) (*models.LinkShare, error) {
	key := cache.GenerateLinkShareKey(linkID)

	var cached models.LinkShare
	err := r.cache.Get(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		// 缓存故障时直接回源
		logger.Warn("FindByLinkID: cache read failed, falling back to db", zap.String("linkID", linkID), zap.Error(err))
	}

	link, err := r.next.FindByLinkID(ctx, linkID)
	if err != nil || link == nil {
		return link, err
	}
	if err := r.cache.Set(ctx, key, link, r.ttl); err != nil {
		logger.Warn("FindByLinkID: cache write failed", zap.String("linkID", linkID), zap.Error(err))
	}
	return link, nil
}

func (r *cachedLinkShareRepository) ListByResource(ctx context.Context, ref models.ResourceRef) ([]models.LinkShare, error) {
	return r.next.ListByResource(ctx, ref)
}

func (r *cachedLinkShareRepository) Delete(ctx context.Context, linkID string) error {
	if err := r.next.Delete(ctx, linkID); err != nil {
		return err
	}
	// 撤销必须立即生效, 删除缓存失败要返回错误
	return r.cache.Del(ctx, cache.GenerateLinkShareKey(linkID))
}
