package notify

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockScheduler records schedule and cancel calls for tests.
type MockScheduler struct {
	mu        sync.Mutex
	Err       error
	Scheduled []MockScheduled
	Cancelled []string
	nextID    int
}

// MockScheduled captures one Schedule call.
type MockScheduled struct {
	Handle   string
	Title    string
	Body     string
	Trigger  time.Time
	Metadata map[string]string
}

func (m *MockScheduler) Schedule(_ context.Context, title, body string, trigger time.Time, metadata map[string]string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}
	m.nextID++
	handle := fmt.Sprintf("mock-%d", m.nextID)
	m.Scheduled = append(m.Scheduled, MockScheduled{
		Handle:   handle,
		Title:    title,
		Body:     body,
		Trigger:  trigger,
		Metadata: metadata,
	})
	return handle, nil
}

func (m *MockScheduler) Cancel(handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cancelled = append(m.Cancelled, handle)
	return nil
}

var _ Scheduler = (*MockScheduler)(nil)
var _ Scheduler = (*TimerScheduler)(nil)
