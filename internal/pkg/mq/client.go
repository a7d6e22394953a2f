package mq

import (
	"fmt"
	"sync"
	"time"

	"github.com/3Eeeecho/go-clouddrive/internal/pkg/logger"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// RabbitMQClient 封装了 RabbitMQ 的连接和通道
type RabbitMQClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex // amqp.Channel 不支持并发 Publish
}

// NewRabbitMQClient 创建一个新的 RabbitMQ 客户端实例
func NewRabbitMQClient(amqpURL string) (*RabbitMQClient, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	return &RabbitMQClient{
		conn:    conn,
		channel: ch,
	}, nil
}

// DeclareQueue 声明一个持久化队列
func (c *RabbitMQClient) DeclareQueue(queueName string) (amqp.Queue, error) {
	return c.DeclareQueueWithArgs(queueName, nil)
}

func (c *RabbitMQClient) DeclareQueueWithArgs(queueName string, args amqp.Table) (amqp.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		args,      // arguments
	)
}

// DeclareDelayQueue 声明一个没有消费者的延迟队列, 消息过期后死信转发到 targetQueue
func (c *RabbitMQClient) DeclareDelayQueue(delayQueue, targetQueue string, delay time.Duration) error {
	if _, err := c.DeclareQueue(targetQueue); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", targetQueue, err)
	}
	_, err := c.DeclareQueueWithArgs(delayQueue, amqp.Table{
		"x-message-ttl":             delay.Milliseconds(),
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": targetQueue,
	})
	if err != nil {
		return fmt.Errorf("failed to declare delay queue %s: %w", delayQueue, err)
	}
	return nil
}

// Publish a message to a specific queue
func (c *RabbitMQClient) Publish(queueName string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel.Publish(
		"",        // exchange (default)
		queueName, // routing key (queue name)
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent, // make message persistent
		},
	)
}

// Consume messages from a specific queue, prefetch 限制未确认消息数量
func (c *RabbitMQClient) Consume(queueName string, prefetch int, handler func(msg amqp.Delivery)) error {
	c.mu.Lock()
	if err := c.channel.Qos(prefetch, 0, false); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to set qos: %w", err)
	}
	msgs, err := c.channel.Consume(
		queueName,
		"",    // consumer
		false, // auto-ack (we will manually ack)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			handler(msg)
		}
		logger.Info("RabbitMQ delivery channel closed", zap.String("queue", queueName))
	}()

	logger.Info("Waiting for messages", zap.String("queue", queueName))
	return nil
}

// Close the channel and connection
func (c *RabbitMQClient) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
