package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/haruplan/haruplan/store"
)

func (d *DB) CreateSchedule(ctx context.Context, create *store.Schedule) (*store.Schedule, error) {
	fields := []string{
		"uid", "owner_id", "title", "start_ts", "timezone",
		"repeat_type", "source_text", "notification_enabled", "notification_id",
	}
	placeholderValues := []any{
		create.UID, create.OwnerID, create.Title, create.StartTs, create.Timezone,
		create.RepeatType, create.SourceText, create.NotificationEnabled, create.NotificationID,
	}

	if create.CreatedTs != 0 {
		fields = append(fields, "created_ts")
		placeholderValues = append(placeholderValues, create.CreatedTs)
	}
	if create.UpdatedTs != 0 {
		fields = append(fields, "updated_ts")
		placeholderValues = append(placeholderValues, create.UpdatedTs)
	}

	stmt := `INSERT INTO schedule (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		RETURNING id, created_ts, updated_ts`

	if err := d.db.QueryRowContext(ctx, stmt, placeholderValues...).Scan(
		&create.ID,
		&create.CreatedTs,
		&create.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}

	return create, nil
}

func (d *DB) ListSchedules(ctx context.Context, find *store.FindSchedule) ([]*store.Schedule, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "schedule.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "schedule.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.OwnerID; v != nil {
		where, args = append(where, "schedule.owner_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.StartTsAfter; v != nil {
		where, args = append(where, "schedule.start_ts > "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.StartTsBefore; v != nil {
		where, args = append(where, "schedule.start_ts < "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Recurring; v != nil {
		if *v {
			where = append(where, "schedule.repeat_type != 'none'")
		} else {
			where = append(where, "schedule.repeat_type = 'none'")
		}
	}

	query := `
		SELECT
			id, uid, owner_id, created_ts, updated_ts,
			title, start_ts, timezone, repeat_type, source_text,
			notification_enabled, notification_id
		FROM schedule
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY schedule.start_ts ASC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Schedule, 0)
	for rows.Next() {
		var schedule store.Schedule
		var notificationID sql.NullString

		if err := rows.Scan(
			&schedule.ID,
			&schedule.UID,
			&schedule.OwnerID,
			&schedule.CreatedTs,
			&schedule.UpdatedTs,
			&schedule.Title,
			&schedule.StartTs,
			&schedule.Timezone,
			&schedule.RepeatType,
			&schedule.SourceText,
			&schedule.NotificationEnabled,
			&notificationID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}

		if notificationID.Valid {
			schedule.NotificationID = &notificationID.String
		}

		list = append(list, &schedule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schedules: %w", err)
	}

	return list, nil
}

func (d *DB) UpdateSchedule(ctx context.Context, update *store.UpdateSchedule) error {
	set, args := []string{}, []any{}

	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Title; v != nil {
		set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.StartTs; v != nil {
		set, args = append(set, "start_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.RepeatType; v != nil {
		set, args = append(set, "repeat_type = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.NotificationEnabled; v != nil {
		set, args = append(set, "notification_enabled = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.NotificationID; v != nil {
		set, args = append(set, "notification_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	if len(set) == 0 {
		return nil
	}

	args = append(args, update.ID)

	stmt := `UPDATE schedule SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}

	return nil
}

func (d *DB) DeleteSchedule(ctx context.Context, delete *store.DeleteSchedule) error {
	stmt := `DELETE FROM schedule WHERE id = ` + placeholder(1)
	result, err := d.db.ExecContext(ctx, stmt, delete.ID)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("schedule not found")
	}

	return nil
}
