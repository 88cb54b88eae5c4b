package eventbus

import (
	"FrameBus/internal/core/domain"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"
)

// --- Mocks ---

// MockFaultSink
type MockFaultSink struct {
	mock.Mock
}

func (m *MockFaultSink) ReportFault(ctx context.Context, fault domain.SubscriberFault) {
	m.Called(ctx, fault)
}

// recordingSink keeps every fault it receives. Safe for concurrent use.
type recordingSink struct {
	mu     sync.Mutex
	faults []domain.SubscriberFault
}

func (s *recordingSink) ReportFault(ctx context.Context, fault domain.SubscriberFault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, fault)
}

func (s *recordingSink) all() []domain.SubscriberFault {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SubscriberFault, len(s.faults))
	copy(out, s.faults)
	return out
}

// MockObserver
type MockObserver struct {
	mock.Mock
}

func (m *MockObserver) ObservePublish(channelName string, delivered, failed int, took time.Duration) {
	m.Called(channelName, delivered, failed, took)
}

func (m *MockObserver) ObserveChannels(count int) {
	m.Called(count)
}

// panickingSink fails on every report.
type panickingSink struct {
	calls atomic.Int32
}

func (s *panickingSink) ReportFault(ctx context.Context, fault domain.SubscriberFault) {
	s.calls.Add(1)
	panic("sink down")
}
