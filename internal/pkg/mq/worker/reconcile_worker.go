package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/3Eeeecho/go-clouddrive/internal/models"
	"github.com/3Eeeecho/go-clouddrive/internal/pkg/logger"
	"github.com/3Eeeecho/go-clouddrive/internal/services/explorer"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const reconcileTimeout = 30 * time.Second

// ReconcileWorker 消费延迟到期的对账消息
type ReconcileWorker struct {
	reconciler explorer.Reconciler
}

func NewReconcileWorker(reconciler explorer.Reconciler) *ReconcileWorker {
	return &ReconcileWorker{reconciler: reconciler}
}

func (w *ReconcileWorker) Handle(msg amqp.Delivery) {
	var task models.ReconcileTask
	if err := json.Unmarshal(msg.Body, &task); err != nil {
		logger.Error("Failed to unmarshal reconcile task", zap.Error(err))
		_ = msg.Nack(false, false) // 解析失败,直接抛弃
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	if err := w.reconciler.Reconcile(ctx, task.FileID); err != nil {
		// 不重新入队, 定时扫描会再次处理
		logger.Warn("Reconcile task failed, leaving it to the sweeper",
			zap.Uint64("fileID", task.FileID), zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}
	_ = msg.Ack(false) // 确认消息
}
