package service

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"mediq-simulator/internal/alert"
	"mediq-simulator/internal/broadcast"
	"mediq-simulator/internal/cache"
	"mediq-simulator/internal/config"
	"mediq-simulator/internal/generator"
	"mediq-simulator/internal/notify"
	"mediq-simulator/internal/repository"
)

// SimulatorService 模拟服务（整合各层）
type SimulatorService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger

	// 各层组件
	patientRepo  *repository.PatientRepository
	staffRepo    *repository.StaffRepository
	cacheManager *cache.CacheManager
	broadcaster  *broadcast.Broadcaster
	smsClient    *notify.SMSClient
	dispatcher   *alert.Dispatcher
	scheduler    *Scheduler
}

// NewSimulatorService 创建模拟服务
func NewSimulatorService(cfg *config.Config, logger *zap.Logger) (*SimulatorService, error) {
	// 1. 连接数据库
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 测试数据库连接
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 2. 连接 Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// 3. 创建 Repository 层
	patientRepo := repository.NewPatientRepository(db, logger)
	staffRepo := repository.NewStaffRepository(db, logger)

	// 4. 创建缓存与广播
	cacheManager := cache.NewCacheManager(cfg, redisClient, logger)
	broadcaster := broadcast.NewBroadcaster(redisClient, logger)

	// 5. 创建短信传输与报警分发（Twilio 未配置时降级为不可用）
	smsClient := notify.NewSMSClient(
		cfg.Twilio.BaseURL,
		cfg.Twilio.AccountSID,
		cfg.Twilio.AuthToken,
		cfg.Twilio.FromNumber,
		logger,
	)
	cooldown := alert.NewCooldownTracker(time.Duration(cfg.Simulator.CooldownSec) * time.Second)
	dispatcher := alert.NewDispatcher(cooldown, staffRepo, smsClient, logger)

	// 6. 创建生成器与调度器
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	vitalsGen := generator.NewVitalsGenerator(rng)
	wardGen := generator.NewWardOccupancyGenerator(rng)

	scheduler := NewScheduler(
		cfg,
		vitalsGen,
		wardGen,
		patientRepo,
		cacheManager,
		broadcaster,
		dispatcher,
		rng,
		logger,
	)

	return &SimulatorService{
		config:       cfg,
		db:           db,
		redisClient:  redisClient,
		logger:       logger,
		patientRepo:  patientRepo,
		staffRepo:    staffRepo,
		cacheManager: cacheManager,
		broadcaster:  broadcaster,
		smsClient:    smsClient,
		dispatcher:   dispatcher,
		scheduler:    scheduler,
	}, nil
}

// Start 启动服务（阻塞直到 ctx 取消）
func (s *SimulatorService) Start(ctx context.Context) error {
	s.logger.Info("Starting simulator service",
		zap.Int("interval_sec", s.config.Simulator.IntervalSec),
		zap.Bool("sms_available", s.smsClient.Available()),
	)

	s.scheduler.Start(ctx)

	<-ctx.Done()
	s.scheduler.Stop()
	return nil
}

// Stop 停止服务，关闭连接
func (s *SimulatorService) Stop() error {
	s.logger.Info("Stopping simulator service")

	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database",
			zap.Error(err),
		)
	}

	if err := s.redisClient.Close(); err != nil {
		s.logger.Error("Failed to close redis",
			zap.Error(err),
		)
	}

	return nil
}
