package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache 通用缓存接口, value 以 JSON 序列化存储
type Cache interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	// Get 把缓存内容解码到 target, 未命中返回 ErrCacheMiss
	Get(ctx context.Context, key string, target any) error
	Del(ctx context.Context, keys ...string) error
}

func GenerateLinkShareKey(linkID string) string {
	return fmt.Sprintf("link_share:%s", linkID)
}
