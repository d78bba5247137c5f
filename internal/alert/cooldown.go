package alert

import (
	"sync"
	"time"
)

// PatientKey 患者报警键
func PatientKey(patientID string) string {
	return "patient:" + patientID
}

// WardKey 病区报警键
func WardKey(wardName string) string {
	return "ward:" + wardName
}

// CooldownTracker 报警冷却跟踪器
// key → 最近一次成功发送的时间，仅存在于进程内存中，重启后清零（接受的行为）
// 冷却窗口从最近一次成功发送起算，而不是最近一次尝试
type CooldownTracker struct {
	mu       sync.Mutex
	window   time.Duration
	lastSent map[string]time.Time
	now      func() time.Time // 可注入，便于测试
}

// NewCooldownTracker 创建冷却跟踪器
func NewCooldownTracker(window time.Duration) *CooldownTracker {
	return &CooldownTracker{
		window:   window,
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Allowed 检查该键是否允许发送报警（冷却窗口已过或从未发送）
func (t *CooldownTracker) Allowed(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, ok := t.lastSent[key]
	if !ok {
		return true
	}
	return t.now().Sub(last) >= t.window
}

// MarkSent 记录该键的成功发送时间
// 只有至少一个接收方发送成功时才调用：全部失败的批次不更新冷却，下个 tick 可以重试
func (t *CooldownTracker) MarkSent(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastSent[key] = t.now()
}

// Window 返回冷却窗口时长
func (t *CooldownTracker) Window() time.Duration {
	return t.window
}
