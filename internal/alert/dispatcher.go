package alert

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"mediq-simulator/internal/notify"
)

// 跳过原因
const (
	SkipNotConfigured = "sms not configured"
	SkipNoRecipients  = "no recipients"
	SkipStaffLookup   = "staff lookup failed"
)

// Transport 短信发送原语（由 notify.SMSClient 实现）
type Transport interface {
	Send(ctx context.Context, to, body string) notify.SendResult
	Available() bool
}

// StaffDirectory 值班人员通讯录（由 repository.StaffRepository 实现）
type StaffDirectory interface {
	FindPhoneNumbers(ctx context.Context, roles []string, ward string) ([]string, error)
}

// DispatchResult 一次报警分发的结果
type DispatchResult struct {
	Key        string              `json:"key"`
	Suppressed bool                `json:"suppressed"`     // 冷却窗口内被抑制（正常结果，不是错误）
	Skipped    string              `json:"skipped,omitempty"` // 未尝试发送的原因
	Attempted  int                 `json:"attempted"`
	Succeeded  int                 `json:"succeeded"`
	Results    []notify.SendResult `json:"results,omitempty"`
}

// Dispatcher 报警分发器
// 接收方集合在报警时实时解析（不缓存），逐个并发发送，互不阻塞（settle-all 语义）
type Dispatcher struct {
	cooldown  *CooldownTracker
	staff     StaffDirectory
	transport Transport
	logger    *zap.Logger
}

// NewDispatcher 创建报警分发器
func NewDispatcher(cooldown *CooldownTracker, staff StaffDirectory, transport Transport, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		cooldown:  cooldown,
		staff:     staff,
		transport: transport,
		logger:    logger,
	}
}

// MaybeAlert 冷却门控的报警分发
// 1) 冷却窗口内直接抑制，无任何副作用
// 2) 解析接收方为空时不触碰冷却状态
// 3) 并发发送到所有接收方，单个失败不影响其他
// 4) 至少一个发送成功才更新冷却时间戳
func (d *Dispatcher) MaybeAlert(ctx context.Context, key, body string, roles []string, ward string) DispatchResult {
	if !d.cooldown.Allowed(key) {
		return DispatchResult{Key: key, Suppressed: true}
	}

	if !d.transport.Available() {
		d.logger.Warn("SMS not available, skipping alert",
			zap.String("key", key),
		)
		return DispatchResult{Key: key, Skipped: SkipNotConfigured}
	}

	numbers, err := d.staff.FindPhoneNumbers(ctx, roles, ward)
	if err != nil {
		d.logger.Error("Failed to resolve staff phone numbers",
			zap.String("key", key),
			zap.Strings("roles", roles),
			zap.Error(err),
		)
		return DispatchResult{Key: key, Skipped: SkipStaffLookup}
	}

	if len(numbers) == 0 {
		d.logger.Warn("No staff phone numbers found for alert",
			zap.String("key", key),
			zap.Strings("roles", roles),
		)
		return DispatchResult{Key: key, Skipped: SkipNoRecipients}
	}

	// 并发发送，等待全部结束后统一汇总
	results := make([]notify.SendResult, len(numbers))
	var wg sync.WaitGroup
	for i, to := range numbers {
		wg.Add(1)
		go func(idx int, phone string) {
			defer wg.Done()
			results[idx] = d.transport.Send(ctx, phone, body)
		}(i, to)
	}
	wg.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}

	if succeeded > 0 {
		d.cooldown.MarkSent(key)
	}

	d.logger.Info("Alert dispatched",
		zap.String("key", key),
		zap.Int("attempted", len(numbers)),
		zap.Int("succeeded", succeeded),
	)

	return DispatchResult{
		Key:       key,
		Attempted: len(numbers),
		Succeeded: succeeded,
		Results:   results,
	}
}
