package store

import (
	"context"
)

// Schedule is a saved calendar entry owned by a user.
type Schedule struct {
	// ID is the system generated unique identifier.
	ID int32
	// UID is the user friendly short identifier.
	UID string

	// Standard fields
	OwnerID   int32
	CreatedTs int64
	UpdatedTs int64

	// Domain specific fields
	Title      string
	StartTs    int64
	Timezone   string
	RepeatType string
	SourceText string

	// Notification fields
	NotificationEnabled bool
	NotificationID      *string
}

// FindSchedule is the filter for listing schedules.
type FindSchedule struct {
	ID      *int32
	UID     *string
	OwnerID *int32

	// StartTsAfter filters schedules starting strictly after the given timestamp.
	StartTsAfter *int64
	// StartTsBefore filters schedules starting strictly before the given timestamp.
	StartTsBefore *int64
	// Recurring filters by whether repeat_type is set to a recurrence kind.
	Recurring *bool

	Limit  *int
	Offset *int
}

// UpdateSchedule holds the mutable fields of a schedule. Nil fields are left unchanged.
type UpdateSchedule struct {
	ID int32

	UpdatedTs           *int64
	Title               *string
	StartTs             *int64
	RepeatType          *string
	NotificationEnabled *bool
	NotificationID      *string
}

// DeleteSchedule identifies the schedule to remove.
type DeleteSchedule struct {
	ID int32
}

func (s *Store) CreateSchedule(ctx context.Context, create *Schedule) (*Schedule, error) {
	return s.driver.CreateSchedule(ctx, create)
}

func (s *Store) ListSchedules(ctx context.Context, find *FindSchedule) ([]*Schedule, error) {
	return s.driver.ListSchedules(ctx, find)
}

func (s *Store) GetSchedule(ctx context.Context, find *FindSchedule) (*Schedule, error) {
	list, err := s.driver.ListSchedules(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateSchedule(ctx context.Context, update *UpdateSchedule) error {
	return s.driver.UpdateSchedule(ctx, update)
}

func (s *Store) DeleteSchedule(ctx context.Context, delete *DeleteSchedule) error {
	return s.driver.DeleteSchedule(ctx, delete)
}
