package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"mediq-simulator/internal/config"
	"mediq-simulator/internal/models"
)

// CacheManager Redis 实时数据缓存管理器
// 每个患者的当前读数与风险评估以 JSON 写入，带 TTL（数据源每个周期都会刷新）
type CacheManager struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewCacheManager 创建缓存管理器
func NewCacheManager(
	cfg *config.Config,
	redisClient *redis.Client,
	logger *zap.Logger,
) *CacheManager {
	return &CacheManager{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

// realtimeKey 构建实时数据缓存键
func (c *CacheManager) realtimeKey(patientID string) string {
	return fmt.Sprintf("%s%s%s",
		c.config.Cache.RealtimeKeyPrefix,
		patientID,
		c.config.Cache.RealtimeSuffix,
	)
}

// SetCurrentVitals 写入患者当前实时数据
func (c *CacheManager) SetCurrentVitals(ctx context.Context, patientID string, payload models.VitalsUpdatePayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal realtime data: %w", err)
	}

	key := c.realtimeKey(patientID)
	err = c.redisClient.Set(
		ctx,
		key,
		jsonData,
		time.Duration(c.config.Cache.RealtimeTTL)*time.Second,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to set realtime cache: %w", err)
	}

	c.logger.Debug("Updated realtime cache",
		zap.String("patient_id", patientID),
		zap.String("key", key),
	)

	return nil
}

// GetCurrentVitals 读取患者当前实时数据
func (c *CacheManager) GetCurrentVitals(ctx context.Context, patientID string) (*models.VitalsUpdatePayload, error) {
	val, err := c.redisClient.Get(ctx, c.realtimeKey(patientID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("realtime data not found for patient: %s", patientID)
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	var payload models.VitalsUpdatePayload
	if err := json.Unmarshal([]byte(val), &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal realtime data: %w", err)
	}

	return &payload, nil
}
