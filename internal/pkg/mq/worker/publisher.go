package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/3Eeeecho/go-clouddrive/internal/models"
)

const (
	// ReconcileQueueName 对账消费队列
	ReconcileQueueName = "upload_reconcile_queue"
	// ReconcileDelayQueueName 延迟队列, 消息过期后转入 ReconcileQueueName
	ReconcileDelayQueueName = "upload_reconcile_delay_queue"
)

// Publisher 向队列投递消息
type Publisher interface {
	Publish(queueName string, body []byte) error
}

// ReconcilePublisher 上传登记后投递一条延迟对账消息
type ReconcilePublisher struct {
	publisher Publisher
}

func NewReconcilePublisher(publisher Publisher) *ReconcilePublisher {
	return &ReconcilePublisher{publisher: publisher}
}

func (p *ReconcilePublisher) ScheduleReconcile(_ context.Context, fileID uint64) error {
	body, err := json.Marshal(models.ReconcileTask{FileID: fileID})
	if err != nil {
		return err
	}
	if err := p.publisher.Publish(ReconcileDelayQueueName, body); err != nil {
		return fmt.Errorf("failed to publish reconcile task: %w", err)
	}
	return nil
}
