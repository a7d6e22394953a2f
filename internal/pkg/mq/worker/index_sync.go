package worker

import (
	"context"
	"time"

	"github.com/3Eeeecho/go-clouddrive/internal/pkg/logger"
	"github.com/3Eeeecho/go-clouddrive/internal/services/explorer"
	"go.uber.org/zap"
)

// IndexSync 启动时全量重建名称索引, interval 大于 0 时定期重建
type IndexSync struct {
	syncer   explorer.IndexSyncer
	interval time.Duration
}

func NewIndexSync(syncer explorer.IndexSyncer, interval time.Duration) *IndexSync {
	return &IndexSync{syncer: syncer, interval: interval}
}

// Run 阻塞直到 ctx 取消, 或只需重建一次时完成
func (s *IndexSync) Run(ctx context.Context) {
	s.reindex(ctx)
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	logger.Info("Index sync started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			logger.Info("Index sync stopped")
			return
		case <-ticker.C:
			s.reindex(ctx)
		}
	}
}

func (s *IndexSync) reindex(ctx context.Context) {
	if _, _, err := s.syncer.Reindex(ctx); err != nil && ctx.Err() == nil {
		logger.Error("Reindex failed", zap.Error(err))
	}
}
