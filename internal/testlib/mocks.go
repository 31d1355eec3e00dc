package testlib

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/voidcheck/voidcheck/voidlib"
)

type AllowListMock struct {
	mock.Mock
}

func (m *AllowListMock) Put(ctx context.Context, username string, ip net.IP, ttl time.Duration) error {
	return m.Called(ctx, username, ip, ttl).Error(0) //nolint: wrapcheck
}

func (m *AllowListMock) Contains(ctx context.Context, username string, ip net.IP) bool {
	return m.Called(ctx, username, ip).Bool(0)
}

func (m *AllowListMock) Remove(ctx context.Context, username string) error {
	return m.Called(ctx, username).Error(0) //nolint: wrapcheck
}

func (m *AllowListMock) Purge(ctx context.Context) (int, error) {
	args := m.Called(ctx)

	return args.Int(0), args.Error(1) //nolint: wrapcheck
}

func (m *AllowListMock) Size(ctx context.Context) int {
	return m.Called(ctx).Int(0)
}

func (m *AllowListMock) Close() error {
	return m.Called().Error(0) //nolint: wrapcheck
}

type CaptchaSourceMock struct {
	mock.Mock
}

func (m *CaptchaSourceMock) Next(consumer uint32) *voidlib.CaptchaArtifact {
	rv, _ := m.Called(consumer).Get(0).(*voidlib.CaptchaArtifact)

	return rv
}

func (m *CaptchaSourceMock) Shutdown() {
	m.Called()
}

type PingEstimatorMock struct {
	mock.Mock
}

func (m *PingEstimatorMock) Register(ip net.IP) {
	m.Called(ip)
}

func (m *PingEstimatorMock) Remove(ip net.IP) {
	m.Called(ip)
}

func (m *PingEstimatorMock) Ping(ip net.IP) (time.Duration, bool) {
	args := m.Called(ip)

	return args.Get(0).(time.Duration), args.Bool(1) //nolint: forcetypeassert
}

type LogSwitchMock struct {
	mock.Mock
}

func (m *LogSwitchMock) Mute() {
	m.Called()
}

func (m *LogSwitchMock) Unmute() {
	m.Called()
}

// EventRecorder is an event stream which keeps everything it gets.
type EventRecorder struct {
	mu     sync.Mutex
	events []voidlib.Event
}

func (e *EventRecorder) Send(_ context.Context, evt voidlib.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.events = append(e.events, evt)
}

func (e *EventRecorder) Events() []voidlib.Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	rv := make([]voidlib.Event, len(e.events))
	copy(rv, e.events)

	return rv
}

// Kinds returns type names of recorded events in order.
func (e *EventRecorder) Kinds() []string {
	events := e.Events()
	rv := make([]string, 0, len(events))

	for _, v := range events {
		rv = append(rv, eventKind(v))
	}

	return rv
}

func eventKind(evt voidlib.Event) string {
	switch evt.(type) {
	case voidlib.EventSessionStart:
		return "start"
	case voidlib.EventSessionFinish:
		return "finish"
	case voidlib.EventBlocked:
		return "blocked"
	case voidlib.EventPassed:
		return "passed"
	case voidlib.EventCaptchaFallback:
		return "fallback"
	case voidlib.EventBypassed:
		return "bypassed"
	case voidlib.EventCaptchaGenerated:
		return "captcha_generated"
	case voidlib.EventTrafficRate:
		return "traffic"
	case voidlib.EventLogsMuted:
		return "logs_muted"
	}

	return "unknown"
}
