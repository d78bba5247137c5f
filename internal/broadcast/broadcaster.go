package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// 广播频道
const (
	TopicVitalsUpdate  = "vitals-update"
	TopicWardOccupancy = "ward-occupancy"

	patientTopicPrefix = "patient:"
)

// Broadcaster 实时数据广播器（Redis pub/sub）
// 订阅端连接的生命周期由外部 socket 层管理，核心只负责 publish
// 发送即结束：没有订阅者或订阅者消费缓慢都不会阻塞发布方
type Broadcaster struct {
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewBroadcaster 创建广播器
func NewBroadcaster(redisClient *redis.Client, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Publish 发布消息到指定频道
func (b *Broadcaster) Publish(ctx context.Context, topic string, payload interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	if err := b.redisClient.Publish(ctx, topic, jsonData).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	b.logger.Debug("Published message",
		zap.String("topic", topic),
		zap.Int("bytes", len(jsonData)),
	)

	return nil
}

// PublishPatient 发布患者更新：全局频道 + 患者专属频道（点对点订阅用）
func (b *Broadcaster) PublishPatient(ctx context.Context, patientID string, payload interface{}) error {
	if err := b.Publish(ctx, TopicVitalsUpdate, payload); err != nil {
		return err
	}
	return b.Publish(ctx, patientTopicPrefix+patientID, payload)
}
