package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/haruplan/haruplan/server/timezone"
)

// Delivery is a fired notification handed to the sink.
type Delivery struct {
	Handle   string
	Title    string
	Body     string
	Metadata map[string]string
	FiredAt  time.Time
}

// Sink receives notifications when their trigger time arrives.
type Sink func(Delivery)

type pending struct {
	title    string
	body     string
	trigger  time.Time
	metadata map[string]string
	timer    *time.Timer
}

// TimerScheduler is an in-process Scheduler backed by time.Timer. It enforces
// a per-day cap counted in the configured timezone.
type TimerScheduler struct {
	mu       sync.Mutex
	pending  map[string]*pending
	sink     Sink
	location *time.Location
	now      func() time.Time
}

// NewTimerScheduler creates a scheduler delivering to sink. A nil sink drops
// deliveries after logging them.
func NewTimerScheduler(sink Sink, location *time.Location) *TimerScheduler {
	if location == nil {
		location = timezone.LocationAsiaSeoul
	}
	if sink == nil {
		sink = func(d Delivery) {
			slog.Info("notification fired", "handle", d.Handle, "title", d.Title)
		}
	}
	return &TimerScheduler{
		pending:  make(map[string]*pending),
		sink:     sink,
		location: location,
		now:      time.Now,
	}
}

func (s *TimerScheduler) Schedule(_ context.Context, title, body string, trigger time.Time, metadata map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !trigger.After(now) {
		return "", ErrPastTrigger
	}
	if s.countOnDayLocked(trigger) >= MaxDailyNotifications {
		return "", ErrDailyCapReached
	}

	handle := shortuuid.New()
	p := &pending{
		title:    title,
		body:     body,
		trigger:  trigger,
		metadata: metadata,
	}
	p.timer = time.AfterFunc(trigger.Sub(now), func() {
		s.fire(handle)
	})
	s.pending[handle] = p

	return handle, nil
}

func (s *TimerScheduler) Cancel(handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[handle]
	if !ok {
		return nil
	}
	p.timer.Stop()
	delete(s.pending, handle)
	return nil
}

// Stop cancels every pending notification.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for handle, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, handle)
	}
}

// PendingCount reports how many notifications are waiting to fire.
func (s *TimerScheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *TimerScheduler) fire(handle string) {
	s.mu.Lock()
	p, ok := s.pending[handle]
	if ok {
		delete(s.pending, handle)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	s.sink(Delivery{
		Handle:   handle,
		Title:    p.title,
		Body:     p.body,
		Metadata: p.metadata,
		FiredAt:  s.now(),
	})
}

// countOnDayLocked counts pending notifications sharing the trigger's local date.
func (s *TimerScheduler) countOnDayLocked(trigger time.Time) int {
	count := 0
	for _, p := range s.pending {
		if timezone.SameDate(p.trigger.In(s.location), trigger.In(s.location)) {
			count++
		}
	}
	return count
}
