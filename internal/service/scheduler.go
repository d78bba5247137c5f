package service

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"mediq-simulator/internal/alert"
	"mediq-simulator/internal/broadcast"
	"mediq-simulator/internal/config"
	"mediq-simulator/internal/generator"
	"mediq-simulator/internal/models"
	"mediq-simulator/internal/notify"
	"mediq-simulator/internal/risk"
)

// PatientStore 患者持久化（由 repository.PatientRepository 实现）
type PatientStore interface {
	FindOrCreate(ctx context.Context, patientID, ward string) (*models.Patient, bool, error)
	AppendReading(ctx context.Context, patientID string, reading models.VitalsReading) error
	UpdateCurrent(ctx context.Context, patientID string, reading models.VitalsReading, assessment models.RiskAssessment) error
	FlagDanger(ctx context.Context, patientID, message, severity string) error
	ListPatientIDs(ctx context.Context, limit int) ([]string, error)
}

// RealtimeCache 实时数据缓存（由 cache.CacheManager 实现）
type RealtimeCache interface {
	SetCurrentVitals(ctx context.Context, patientID string, payload models.VitalsUpdatePayload) error
}

// Publisher 实时广播（由 broadcast.Broadcaster 实现）
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
	PublishPatient(ctx context.Context, patientID string, payload interface{}) error
}

// AlertDispatcher 报警分发（由 alert.Dispatcher 实现）
type AlertDispatcher interface {
	MaybeAlert(ctx context.Context, key, body string, roles []string, ward string) alert.DispatchResult
}

// Scheduler 模拟调度器：驱动 生成→评分→持久化→广播→报警 的周期循环
// 状态机 Stopped → Running → Stopped；Start/Stop 均为幂等操作
type Scheduler struct {
	config     *config.Config
	vitalsGen  *generator.VitalsGenerator
	wardGen    *generator.WardOccupancyGenerator
	store      PatientStore
	cache      RealtimeCache
	publisher  Publisher
	dispatcher AlertDispatcher
	logger     *zap.Logger
	rng        *rand.Rand

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	patients []string // 受监测的患者ID集合（仅调度器 goroutine 访问）
}

// NewScheduler 创建模拟调度器
func NewScheduler(
	cfg *config.Config,
	vitalsGen *generator.VitalsGenerator,
	wardGen *generator.WardOccupancyGenerator,
	store PatientStore,
	cache RealtimeCache,
	publisher Publisher,
	dispatcher AlertDispatcher,
	rng *rand.Rand,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		config:     cfg,
		vitalsGen:  vitalsGen,
		wardGen:    wardGen,
		store:      store,
		cache:      cache,
		publisher:  publisher,
		dispatcher: dispatcher,
		rng:        rng,
		logger:     logger,
	}
}

// Start 启动调度器（已在运行时为 no-op）
// 启动后立即执行一个周期，之后按固定间隔触发，直到 ctx 取消或 Stop
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("Simulator is already running")
		return
	}
	s.running = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	interval := time.Duration(s.config.Simulator.IntervalSec) * time.Second
	s.logger.Info("Starting data simulator",
		zap.Duration("interval", interval),
	)

	s.wg.Add(1)
	go s.run(runCtx, interval)
}

// Stop 停止调度器（未运行时为 no-op）
// 取消待触发的定时器，等待进行中的周期自然结束，不在半途中断
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.logger.Warn("Simulator is not running")
		return
	}
	s.running = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()

	s.logger.Info("Data simulator stopped")
}

// Running 返回调度器是否在运行
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// run 周期循环
func (s *Scheduler) run(ctx context.Context, interval time.Duration) {
	defer s.wg.Done()

	s.seedPatients()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// 立即执行一次
	s.runCycle()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle()
		}
	}
}

// seedPatients 从数据库播种已有患者集合
// 失败只记录日志：集合为空时周期内会生成新患者
func (s *Scheduler) seedPatients() {
	ctx := context.Background()
	ids, err := s.store.ListPatientIDs(ctx, s.config.Simulator.SeedLimit)
	if err != nil {
		s.logger.Error("Failed to seed existing patients",
			zap.Error(err),
		)
		return
	}

	s.patients = ids
	s.logger.Info("Simulator initialized with existing patients",
		zap.Int("patient_count", len(ids)),
	)
}

// runCycle 执行一个生成周期
// 周期内的任何失败只影响单个患者或单次发布，绝不向上传播中断循环
// 周期内使用独立的 Background context：Stop 不会把进行中的写入截断在半途
func (s *Scheduler) runCycle() {
	ctx := context.Background()

	// 1. 生成所有病区的占用快照
	occupancy := s.wardGen.GenerateAll()

	// 2. 生成本周期的读数批次（5-10个患者）
	readings := s.nextBatch()

	// 3. 逐患者处理（并发，互不影响）
	var wg sync.WaitGroup
	for _, reading := range readings {
		wg.Add(1)
		go func(v models.VitalsReading) {
			defer wg.Done()

			wardPct := 0.0
			if snap, ok := occupancy[v.Ward]; ok {
				wardPct = snap.OccupancyPercent
			}
			s.processPatient(ctx, v, wardPct)
		}(reading)
	}
	wg.Wait()

	// 4. 病区超载检查（每个病区每周期一次）
	for _, snap := range occupancy {
		if snap.OccupancyPercent > s.config.Simulator.OverloadPercent {
			s.checkWardOverload(ctx, snap)
		}
	}

	// 5. 广播病区占用数据
	if err := s.publisher.Publish(ctx, broadcast.TopicWardOccupancy, occupancy); err != nil {
		s.logger.Error("Failed to broadcast ward occupancy",
			zap.Error(err),
		)
	}

	s.logger.Info("Generated vitals batch",
		zap.Int("patient_count", len(readings)),
	)
}

// nextBatch 构造本周期的读数批次
// 优先复用已知患者ID（随机抽取），不足部分生成新患者并加入集合
// 批次在调度器 goroutine 内构造：注入的随机源不做并发访问
func (s *Scheduler) nextBatch() []models.VitalsReading {
	min := s.config.Simulator.MinPatients
	max := s.config.Simulator.MaxPatients
	count := min + s.rng.Intn(max-min+1)

	reuse := 0
	if len(s.patients) > 0 {
		reuse = s.rng.Intn(minInt(len(s.patients), count) + 1)
	}

	readings := make([]models.VitalsReading, 0, count)

	perm := s.rng.Perm(len(s.patients))
	for i := 0; i < reuse; i++ {
		readings = append(readings, s.vitalsGen.Generate(s.patients[perm[i]]))
	}

	for i := reuse; i < count; i++ {
		v := s.vitalsGen.Generate("")
		s.patients = append(s.patients, v.PatientID)
		readings = append(readings, v)
	}

	return readings
}

// processPatient 处理单个患者：评分→持久化→缓存→广播→报警检查
func (s *Scheduler) processPatient(ctx context.Context, v models.VitalsReading, wardPct float64) {
	assessment := risk.Score(v, wardPct)

	// 持久化失败跳过该患者，本周期不重试（下个周期自然重试）
	if _, _, err := s.store.FindOrCreate(ctx, v.PatientID, v.Ward); err != nil {
		s.logger.Error("Failed to find or create patient",
			zap.String("patient_id", v.PatientID),
			zap.Error(err),
		)
		return
	}

	if err := s.store.AppendReading(ctx, v.PatientID, v); err != nil {
		s.logger.Error("Failed to append vitals reading",
			zap.String("patient_id", v.PatientID),
			zap.Error(err),
		)
		return
	}

	if err := s.store.UpdateCurrent(ctx, v.PatientID, v, assessment); err != nil {
		s.logger.Error("Failed to update current vitals",
			zap.String("patient_id", v.PatientID),
			zap.Error(err),
		)
		return
	}

	if assessment.Danger {
		severity := "warning"
		if assessment.Level == models.RiskLevelCritical {
			severity = "critical"
		}
		message := "Critical vitals detected: " + strings.Join(assessment.Reasons, "; ")
		if err := s.store.FlagDanger(ctx, v.PatientID, message, severity); err != nil {
			s.logger.Error("Failed to flag danger",
				zap.String("patient_id", v.PatientID),
				zap.Error(err),
			)
		}
	}

	payload := models.VitalsUpdatePayload{
		PatientID:        v.PatientID,
		HeartRate:        v.HeartRate,
		OxygenSaturation: v.OxygenSaturation,
		BloodPressure:    v.BloodPressure.String(),
		RespiratoryRate:  v.RespiratoryRate,
		Temperature:      v.Temperature,
		Ward:             v.Ward,
		RiskScore:        assessment.Score,
		RiskLevel:        assessment.Level,
		RiskReasons:      assessment.Reasons,
		Danger:           assessment.Danger,
		Timestamp:        v.Timestamp,
	}

	// 缓存与广播失败不影响后续步骤
	if err := s.cache.SetCurrentVitals(ctx, v.PatientID, payload); err != nil {
		s.logger.Error("Failed to update realtime cache",
			zap.String("patient_id", v.PatientID),
			zap.Error(err),
		)
	}

	if err := s.publisher.PublishPatient(ctx, v.PatientID, payload); err != nil {
		s.logger.Error("Failed to broadcast vitals update",
			zap.String("patient_id", v.PatientID),
			zap.Error(err),
		)
	}

	s.checkPatientAlert(ctx, v, assessment, wardPct)
}

// checkPatientAlert 达到报警阈值时触发患者报警（冷却门控在分发器内）
func (s *Scheduler) checkPatientAlert(ctx context.Context, v models.VitalsReading, assessment models.RiskAssessment, wardPct float64) {
	shouldAlert := assessment.Level == models.RiskLevelCritical ||
		v.OxygenSaturation < 90 ||
		v.HeartRate > 120 ||
		v.HeartRate < 50

	if !shouldAlert {
		return
	}

	// 严重程度决定通知范围：critical 时管理员也要收到
	roles := []string{"doctor", "nurse"}
	if assessment.Level == models.RiskLevelCritical {
		roles = append(roles, "admin")
	}

	body := notify.BuildPatientAlertSMS(notify.PatientAlertData{
		PatientID:     v.PatientID,
		Vitals:        &v,
		RiskScore:     assessment.Score,
		RiskLevel:     assessment.Level,
		Reasons:       assessment.Reasons,
		Ward:          v.Ward,
		WardOccupancy: wardPct,
	})

	result := s.dispatcher.MaybeAlert(ctx, alert.PatientKey(v.PatientID), body, roles, v.Ward)
	if result.Succeeded > 0 {
		s.logger.Info("SMS alert sent for patient",
			zap.String("patient_id", v.PatientID),
			zap.String("risk_level", assessment.Level),
			zap.Int("succeeded", result.Succeeded),
		)
	}
}

// checkWardOverload 病区超载报警（只通知管理员）
func (s *Scheduler) checkWardOverload(ctx context.Context, snap models.WardOccupancySnapshot) {
	body := notify.BuildWardOverloadSMS(snap)

	result := s.dispatcher.MaybeAlert(ctx, alert.WardKey(snap.WardName), body, []string{"admin"}, "")
	if result.Succeeded > 0 {
		s.logger.Info("SMS alert sent for ward overload",
			zap.String("ward", snap.WardName),
			zap.Float64("occupancy_percent", snap.OccupancyPercent),
		)
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
