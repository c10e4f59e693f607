// Package schedule persists confirmed parses and keeps recurring entries current.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/haruplan/haruplan/plugin/parser"
	"github.com/haruplan/haruplan/server/notify"
	"github.com/haruplan/haruplan/server/timezone"
	"github.com/haruplan/haruplan/store"
)

// DefaultOwnerID identifies the single local user.
const DefaultOwnerID int32 = 1

// fallbackTitle is used when a confirmed parse carries no usable title.
const fallbackTitle = "새 일정"

// Service owns the schedule lifecycle from confirmed parse to stored row.
type Service struct {
	store    *store.Store
	notifier notify.Scheduler
	location *time.Location
	now      func() time.Time
}

// NewService creates a schedule service. notifier may be nil, in which case
// reminders are skipped.
func NewService(st *store.Store, notifier notify.Scheduler, location *time.Location) *Service {
	if location == nil {
		location = timezone.LocationAsiaSeoul
	}
	return &Service{
		store:    st,
		notifier: notifier,
		location: location,
		now:      time.Now,
	}
}

// Commit persists a confirmed parse result. It implements dialogue.Committer.
// A reminder scheduling failure is logged but does not fail the commit.
func (s *Service) Commit(ctx context.Context, result parser.ParseResult, sourceText string) error {
	if result.StartAt == nil {
		return errors.New("cannot commit a schedule without a start time")
	}

	title := result.TitleCandidate
	if title == "" {
		title = sourceText
	}
	if title == "" {
		title = fallbackTitle
	}

	create := &store.Schedule{
		UID:        shortuuid.New(),
		OwnerID:    DefaultOwnerID,
		Title:      title,
		StartTs:    result.StartAt.Unix(),
		Timezone:   s.location.String(),
		RepeatType: string(result.RepeatType),
		SourceText: sourceText,
	}

	if s.notifier != nil && result.StartAt.After(s.now()) {
		handle, err := s.notifier.Schedule(ctx, title,
			timezone.FormatKoreanDate(result.StartAt.In(s.location)),
			*result.StartAt,
			map[string]string{"scheduleUID": create.UID})
		if err != nil {
			slog.Warn("failed to schedule reminder", "title", title, "error", err)
		} else {
			create.NotificationEnabled = true
			create.NotificationID = &handle
		}
	}

	if _, err := s.store.CreateSchedule(ctx, create); err != nil {
		if create.NotificationID != nil {
			_ = s.notifier.Cancel(*create.NotificationID)
		}
		return errors.Wrap(err, "failed to save schedule")
	}

	slog.Info("schedule saved", "uid", create.UID, "title", title, "startTs", create.StartTs, "repeat", create.RepeatType)
	return nil
}

// ListToday returns schedules starting within the current local day, ordered
// by start time.
func (s *Service) ListToday(ctx context.Context, ownerID int32) ([]*store.Schedule, error) {
	now := s.now().In(s.location)
	after := timezone.StartOfDay(now, s.location).Unix() - 1
	before := timezone.EndOfDay(now, s.location).Unix() + 1
	return s.store.ListSchedules(ctx, &store.FindSchedule{
		OwnerID:       &ownerID,
		StartTsAfter:  &after,
		StartTsBefore: &before,
	})
}

// ListUpcoming returns up to limit schedules starting after now.
func (s *Service) ListUpcoming(ctx context.Context, ownerID int32, limit int) ([]*store.Schedule, error) {
	after := s.now().Unix()
	return s.store.ListSchedules(ctx, &store.FindSchedule{
		OwnerID:      &ownerID,
		StartTsAfter: &after,
		Limit:        &limit,
	})
}

// Get returns the schedule with the given UID, or nil when absent.
func (s *Service) Get(ctx context.Context, ownerID int32, uid string) (*store.Schedule, error) {
	return s.store.GetSchedule(ctx, &store.FindSchedule{
		OwnerID: &ownerID,
		UID:     &uid,
	})
}

// Delete removes a schedule and cancels its pending reminder.
func (s *Service) Delete(ctx context.Context, ownerID int32, uid string) error {
	existing, err := s.Get(ctx, ownerID, uid)
	if err != nil {
		return err
	}
	if existing == nil {
		return errors.Errorf("schedule %s not found", uid)
	}
	if s.notifier != nil && existing.NotificationID != nil {
		_ = s.notifier.Cancel(*existing.NotificationID)
	}
	return s.store.DeleteSchedule(ctx, &store.DeleteSchedule{ID: existing.ID})
}

// RescheduleOverdueRecurring advances every recurring schedule whose start
// time has passed to its next occurrence and re-registers its reminder.
// Failures on individual rows are logged and skipped so one bad row cannot
// stall the sweep. It returns the number of rows advanced.
func (s *Service) RescheduleOverdueRecurring(ctx context.Context, ownerID int32) (int, error) {
	now := s.now()
	nowTs := now.Unix()
	recurring := true

	list, err := s.store.ListSchedules(ctx, &store.FindSchedule{
		OwnerID:       &ownerID,
		StartTsBefore: &nowTs,
		Recurring:     &recurring,
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to list overdue recurring schedules")
	}

	advanced := 0
	for _, sched := range list {
		loc, err := timezone.ParseTimezone(sched.Timezone)
		if err != nil {
			loc = s.location
		}
		original := time.Unix(sched.StartTs, 0).In(loc)
		next := timezone.NextOccurrence(original, sched.RepeatType, now)
		if !next.After(now) {
			slog.Warn("recurring schedule did not advance", "uid", sched.UID, "repeat", sched.RepeatType)
			continue
		}

		if s.notifier != nil && sched.NotificationID != nil {
			_ = s.notifier.Cancel(*sched.NotificationID)
		}

		update := &store.UpdateSchedule{ID: sched.ID}
		nextTs := next.Unix()
		updatedTs := nowTs
		update.StartTs = &nextTs
		update.UpdatedTs = &updatedTs

		if s.notifier != nil {
			handle, err := s.notifier.Schedule(ctx, sched.Title,
				timezone.FormatKoreanDate(next.In(loc)), next,
				map[string]string{"scheduleUID": sched.UID})
			if err != nil {
				slog.Warn("failed to reschedule reminder", "uid", sched.UID, "error", err)
				enabled := false
				update.NotificationEnabled = &enabled
			} else {
				enabled := true
				update.NotificationEnabled = &enabled
				update.NotificationID = &handle
			}
		}

		if err := s.store.UpdateSchedule(ctx, update); err != nil {
			slog.Warn("failed to advance recurring schedule", "uid", sched.UID, "error", err)
			continue
		}
		advanced++
	}

	if advanced > 0 {
		slog.Info(fmt.Sprintf("advanced %d overdue recurring schedules", advanced))
	}
	return advanced, nil
}
