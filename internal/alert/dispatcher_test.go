package alert

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mediq-simulator/internal/notify"
)

// fakeTransport 仅用于单元测试（按号码返回预设结果）
type fakeTransport struct {
	mu        sync.Mutex
	available bool
	failFor   map[string]bool // 指定号码发送失败
	sent      []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		available: true,
		failFor:   make(map[string]bool),
	}
}

func (f *fakeTransport) Available() bool {
	return f.available
}

func (f *fakeTransport) Send(ctx context.Context, to, body string) notify.SendResult {
	f.mu.Lock()
	f.sent = append(f.sent, to)
	f.mu.Unlock()

	if f.failFor[to] {
		return notify.SendResult{To: to, ErrorKind: notify.ErrKindProvider, Error: "provider down"}
	}
	return notify.SendResult{Success: true, SID: "SM-" + to, To: to}
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// fakeStaffDirectory 仅用于单元测试
type fakeStaffDirectory struct {
	numbers []string
	err     error
}

func (f *fakeStaffDirectory) FindPhoneNumbers(ctx context.Context, roles []string, ward string) ([]string, error) {
	return f.numbers, f.err
}

func setupDispatcher(t *testing.T, staff *fakeStaffDirectory, transport *fakeTransport) (*Dispatcher, *CooldownTracker) {
	tracker := NewCooldownTracker(5 * time.Minute)
	dispatcher := NewDispatcher(tracker, staff, transport, zap.NewNop())
	return dispatcher, tracker
}

func TestMaybeAlert_SendsToAllRecipients(t *testing.T) {
	transport := newFakeTransport()
	staff := &fakeStaffDirectory{numbers: []string{"+12025550001", "+12025550002", "+12025550003"}}
	dispatcher, _ := setupDispatcher(t, staff, transport)

	result := dispatcher.MaybeAlert(context.Background(), PatientKey("PAT-A"), "alert body", []string{"doctor", "nurse"}, "ICU")

	assert.False(t, result.Suppressed)
	assert.Equal(t, 3, result.Attempted)
	assert.Equal(t, 3, result.Succeeded)
	require.Len(t, result.Results, 3)
	assert.Equal(t, 3, transport.sentCount())
}

func TestMaybeAlert_SecondCallSuppressedWithinWindow(t *testing.T) {
	transport := newFakeTransport()
	staff := &fakeStaffDirectory{numbers: []string{"+12025550001"}}
	dispatcher, _ := setupDispatcher(t, staff, transport)

	key := PatientKey("PAT-A")
	first := dispatcher.MaybeAlert(context.Background(), key, "body one", []string{"doctor"}, "")
	assert.Equal(t, 1, first.Succeeded)

	// 负载内容不同也一样被抑制，且无任何发送
	second := dispatcher.MaybeAlert(context.Background(), key, "completely different body", []string{"doctor"}, "")
	assert.True(t, second.Suppressed)
	assert.Equal(t, 0, second.Attempted)
	assert.Equal(t, 1, transport.sentCount())
}

func TestMaybeAlert_DispatchesAgainAfterWindow(t *testing.T) {
	transport := newFakeTransport()
	staff := &fakeStaffDirectory{numbers: []string{"+12025550001"}}
	dispatcher, tracker := setupDispatcher(t, staff, transport)

	current := time.Now()
	tracker.now = func() time.Time { return current }

	key := PatientKey("PAT-A")
	dispatcher.MaybeAlert(context.Background(), key, "body", []string{"doctor"}, "")

	current = current.Add(6 * time.Minute)
	third := dispatcher.MaybeAlert(context.Background(), key, "body", []string{"doctor"}, "")

	assert.False(t, third.Suppressed)
	assert.Equal(t, 1, third.Succeeded)
	assert.Equal(t, 2, transport.sentCount())
}

func TestMaybeAlert_NoRecipientsDoesNotUpdateCooldown(t *testing.T) {
	transport := newFakeTransport()
	staff := &fakeStaffDirectory{}
	dispatcher, _ := setupDispatcher(t, staff, transport)

	key := PatientKey("PAT-A")
	result := dispatcher.MaybeAlert(context.Background(), key, "body", []string{"doctor"}, "")

	assert.Equal(t, SkipNoRecipients, result.Skipped)
	assert.Equal(t, 0, transport.sentCount())

	// 名单补全后的下一次调用必须允许发送，不能被错误的"已发送"抑制
	staff.numbers = []string{"+12025550001"}
	retry := dispatcher.MaybeAlert(context.Background(), key, "body", []string{"doctor"}, "")

	assert.False(t, retry.Suppressed)
	assert.Equal(t, 1, retry.Succeeded)
}

func TestMaybeAlert_PartialFailureStillUpdatesCooldown(t *testing.T) {
	transport := newFakeTransport()
	transport.failFor["+12025550001"] = true
	transport.failFor["+12025550003"] = true
	staff := &fakeStaffDirectory{numbers: []string{"+12025550001", "+12025550002", "+12025550003"}}
	dispatcher, tracker := setupDispatcher(t, staff, transport)

	key := PatientKey("PAT-A")
	result := dispatcher.MaybeAlert(context.Background(), key, "body", []string{"doctor"}, "")

	// 3 个接收方中 2 个失败：逐个结果保留，批次仍算成功
	assert.Equal(t, 3, result.Attempted)
	assert.Equal(t, 1, result.Succeeded)

	failures := 0
	for _, r := range result.Results {
		if !r.Success {
			failures++
			assert.Equal(t, notify.ErrKindProvider, r.ErrorKind)
		}
	}
	assert.Equal(t, 2, failures)

	// 至少一个成功 → 冷却已更新
	assert.False(t, tracker.Allowed(key))
}

func TestMaybeAlert_AllFailedLeavesCooldownUntouched(t *testing.T) {
	transport := newFakeTransport()
	transport.failFor["+12025550001"] = true
	staff := &fakeStaffDirectory{numbers: []string{"+12025550001"}}
	dispatcher, tracker := setupDispatcher(t, staff, transport)

	key := PatientKey("PAT-A")
	result := dispatcher.MaybeAlert(context.Background(), key, "body", []string{"doctor"}, "")

	assert.Equal(t, 0, result.Succeeded)

	// 零成功批次不更新冷却，下个 tick 可以重试
	assert.True(t, tracker.Allowed(key))
}

func TestMaybeAlert_TransportUnavailable(t *testing.T) {
	transport := newFakeTransport()
	transport.available = false
	staff := &fakeStaffDirectory{numbers: []string{"+12025550001"}}
	dispatcher, tracker := setupDispatcher(t, staff, transport)

	key := PatientKey("PAT-A")
	result := dispatcher.MaybeAlert(context.Background(), key, "body", []string{"doctor"}, "")

	assert.Equal(t, SkipNotConfigured, result.Skipped)
	assert.Equal(t, 0, transport.sentCount())
	assert.True(t, tracker.Allowed(key))
}

func TestMaybeAlert_StaffLookupError(t *testing.T) {
	transport := newFakeTransport()
	staff := &fakeStaffDirectory{err: errors.New("db down")}
	dispatcher, tracker := setupDispatcher(t, staff, transport)

	key := WardKey("ICU")
	result := dispatcher.MaybeAlert(context.Background(), key, "body", []string{"admin"}, "")

	assert.Equal(t, SkipStaffLookup, result.Skipped)
	assert.True(t, tracker.Allowed(key))
}
