package worker

import (
	"context"
	"fmt"

	"github.com/3Eeeecho/go-clouddrive/internal/config"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/logger"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/mq"
	"github.com/3Eeeecho/go-clouddrive/internal/services/explorer"
)

const reconcilePrefetch = 10

// DeclareQueues 声明对账用的延迟队列和消费队列, 延迟为上传地址有效期加宽限期
func DeclareQueues(cfg *config.Config, mqClient *mq.RabbitMQClient) error {
	delay := cfg.Storage.UploadURLExpiry + cfg.Reconcile.GracePeriod
	if err := mqClient.DeclareDelayQueue(ReconcileDelayQueueName, ReconcileQueueName, delay); err != nil {
		return fmt.Errorf("declare reconcile queues: %w", err)
	}
	return nil
}

// StartAllWorkers 启动应用中所有定义的后台 Worker, mqClient 为 nil 时只启动定时扫描,
// syncer 为 nil 表示未启用外部名称索引
func StartAllWorkers(
	ctx context.Context,
	cfg *config.Config,
	mqClient *mq.RabbitMQClient,
	reconciler explorer.Reconciler,
	syncer explorer.IndexSyncer,
) error {
	// --- 启动对账消费者 ---
	if mqClient != nil {
		reconcileWorker := NewReconcileWorker(reconciler)
		if err := mqClient.Consume(ReconcileQueueName, reconcilePrefetch, reconcileWorker.Handle); err != nil {
			return fmt.Errorf("start reconcile worker: %w", err)
		}
	}

	// --- 启动定时扫描 ---
	go NewSweeper(reconciler, cfg.Reconcile.Interval).Run(ctx)

	// --- 重建名称索引 ---
	if syncer != nil {
		go NewIndexSync(syncer, cfg.Search.ReindexInterval).Run(ctx)
	}

	logger.Info("所有后台工作进程已启动。")
	return nil
}
