package job

import (
	"context"
	"log"
	"sync"
	"time"

	"assetledger/internal/config"
	"assetledger/internal/metrics"
	"assetledger/internal/model"
	"assetledger/internal/repository"

	"gorm.io/gorm"
)

// Sender 消息投递，由 mq.Publisher 实现
type Sender interface {
	SendMessage(topic, key, value string) error
}

// Locker 多实例部署时保证同一时刻只有一个实例投递
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// OutboxSender 轮询本地消息表，把已提交批次的事件投递到 Kafka
// 投递至少一次，消费方按批次号去重
type OutboxSender struct {
	outboxRepo *repository.OutboxRepository
	sender     Sender
	locker     Locker
	metrics    *metrics.Collector
	stopCh     chan struct{}
	stopOnce   sync.Once
	interval   time.Duration
	batchSize  int
	maxRetry   int
}

func NewOutboxSender(db *gorm.DB, sender Sender, cfg *config.Config, collector *metrics.Collector) *OutboxSender {
	return &OutboxSender{
		outboxRepo: repository.NewOutboxRepository(db),
		sender:     sender,
		metrics:    collector,
		stopCh:     make(chan struct{}),
		interval:   cfg.Business.OutboxInterval,
		batchSize:  cfg.Business.OutboxBatchSize,
		maxRetry:   cfg.Business.MaxRetryCount,
	}
}

// SetLocker 设置任务锁，未设置时每个实例都会投递
func (s *OutboxSender) SetLocker(locker Locker) {
	s.locker = locker
}

func (s *OutboxSender) Start(ctx context.Context) {
	log.Println("[OutboxSender] 消息发送任务启动")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[OutboxSender] 收到停止信号，任务退出")
			return
		case <-s.stopCh:
			log.Println("[OutboxSender] 任务停止")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *OutboxSender) processPendingMessages(ctx context.Context) {
	if s.locker != nil {
		ok, err := s.locker.TryLock(ctx)
		if err != nil {
			log.Printf("[OutboxSender] 获取任务锁失败: %v", err)
			return
		}
		if !ok {
			return
		}
		defer func() {
			if err := s.locker.Unlock(ctx); err != nil {
				log.Printf("[OutboxSender] 释放任务锁失败: %v", err)
			}
		}()
	}

	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		log.Printf("[OutboxSender] 查询消息失败: %v", err)
		return
	}

	for _, msg := range messages {
		s.sendMessage(ctx, msg)
	}
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) {
	err := s.sender.SendMessage(msg.Topic, msg.MessageKey, msg.Payload)

	if err == nil {
		s.metrics.RecordOutbox("sent")
		if updateErr := s.outboxRepo.MarkSent(ctx, msg.ID); updateErr != nil {
			log.Printf("[OutboxSender] 更新消息状态失败: id=%d, err=%v", msg.ID, updateErr)
		} else {
			log.Printf("[OutboxSender] 消息发送成功: id=%d, topic=%s, key=%s", msg.ID, msg.Topic, msg.MessageKey)
		}
		return
	}

	log.Printf("[OutboxSender] 消息发送失败: id=%d, err=%v", msg.ID, err)
	s.metrics.RecordOutbox("error")

	failed, err := s.outboxRepo.RecordFailure(ctx, msg, s.maxRetry)
	if err != nil {
		log.Printf("[OutboxSender] 记录失败次数失败: id=%d, err=%v", msg.ID, err)
		return
	}
	if failed {
		s.metrics.RecordOutbox("failed")
		log.Printf("[OutboxSender] 消息超过最大重试次数，标记为失败: id=%d", msg.ID)
	}
}
