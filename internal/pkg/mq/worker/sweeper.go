package worker

import (
	"context"
	"time"

	"github.com/3Eeeecho/go-clouddrive/internal/pkg/logger"
	"github.com/3Eeeecho/go-clouddrive/internal/services/explorer"
	"go.uber.org/zap"
)

// Sweeper 定时扫描过期的 pending 文件, 消息丢失或未启用 MQ 时兜底
type Sweeper struct {
	reconciler explorer.Reconciler
	interval   time.Duration
}

func NewSweeper(reconciler explorer.Reconciler, interval time.Duration) *Sweeper {
	return &Sweeper{reconciler: reconciler, interval: interval}
}

// Run 阻塞直到 ctx 取消
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Info("Upload sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			logger.Info("Upload sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.reconciler.Sweep(ctx); err != nil && ctx.Err() == nil {
				logger.Error("Upload sweep failed", zap.Error(err))
			}
		}
	}
}
