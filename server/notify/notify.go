// Package notify schedules local reminder notifications for schedules.
package notify

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// MaxDailyNotifications caps how many reminders may fire on a single calendar day.
const MaxDailyNotifications = 8

var (
	// ErrPastTrigger is returned when the trigger time is not in the future.
	ErrPastTrigger = errors.New("notification trigger is in the past")
	// ErrDailyCapReached is returned when the per-day notification cap is hit.
	ErrDailyCapReached = errors.Errorf("daily notification cap of %d reached", MaxDailyNotifications)
)

// Scheduler schedules and cancels reminder notifications.
type Scheduler interface {
	// Schedule registers a notification to fire at trigger. It returns an
	// opaque handle used for cancellation.
	Schedule(ctx context.Context, title, body string, trigger time.Time, metadata map[string]string) (string, error)
	// Cancel removes a previously scheduled notification. Cancelling an
	// unknown handle is a no-op.
	Cancel(handle string) error
}
