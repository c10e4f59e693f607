package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/haruplan/haruplan/server/timezone"
)

func TestTimerSchedulerRejectsPastTrigger(t *testing.T) {
	s := NewTimerScheduler(nil, timezone.LocationAsiaSeoul)
	defer s.Stop()

	_, err := s.Schedule(context.Background(), "회의", "", time.Now().Add(-time.Minute), nil)
	require.ErrorIs(t, err, ErrPastTrigger)
}

func TestTimerSchedulerDailyCap(t *testing.T) {
	s := NewTimerScheduler(nil, timezone.LocationAsiaSeoul)
	defer s.Stop()

	day := time.Now().In(timezone.LocationAsiaSeoul).Add(24 * time.Hour)
	for i := 0; i < MaxDailyNotifications; i++ {
		_, err := s.Schedule(context.Background(), "알림", "", day.Add(time.Duration(i)*time.Minute), nil)
		require.NoError(t, err)
	}

	_, err := s.Schedule(context.Background(), "알림", "", day.Add(time.Hour), nil)
	require.ErrorIs(t, err, ErrDailyCapReached)

	// The next day is unaffected by the cap.
	_, err = s.Schedule(context.Background(), "알림", "", day.Add(24*time.Hour), nil)
	require.NoError(t, err)
}

func TestTimerSchedulerCancel(t *testing.T) {
	s := NewTimerScheduler(nil, timezone.LocationAsiaSeoul)
	defer s.Stop()

	handle, err := s.Schedule(context.Background(), "회의", "", time.Now().Add(time.Hour), nil)
	require.NoError(t, err)
	require.Equal(t, 1, s.PendingCount())

	require.NoError(t, s.Cancel(handle))
	require.Equal(t, 0, s.PendingCount())

	// Unknown handle is a no-op.
	require.NoError(t, s.Cancel("missing"))
}

func TestTimerSchedulerDelivers(t *testing.T) {
	var mu sync.Mutex
	var got []Delivery
	done := make(chan struct{})

	s := NewTimerScheduler(func(d Delivery) {
		mu.Lock()
		got = append(got, d)
		mu.Unlock()
		close(done)
	}, timezone.LocationAsiaSeoul)
	defer s.Stop()

	_, err := s.Schedule(context.Background(), "치과", "9시 예약", time.Now().Add(20*time.Millisecond), map[string]string{"scheduleUID": "abc"})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notification did not fire")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	require.Equal(t, "치과", got[0].Title)
	require.Equal(t, "9시 예약", got[0].Body)
	require.Equal(t, "abc", got[0].Metadata["scheduleUID"])
	require.Equal(t, 0, s.PendingCount())
}
