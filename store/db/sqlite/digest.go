package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/haruplan/haruplan/store"
)

func (d *DB) UpsertDigest(ctx context.Context, upsert *store.Digest) (*store.Digest, error) {
	now := time.Now().Unix()

	stmt := `INSERT INTO digest (owner_id, date_key, title, summary, content_markdown, schedule_count, created_ts, updated_ts)
		VALUES (` + placeholders(8) + `)
		ON CONFLICT (owner_id, date_key) DO UPDATE SET
			title = EXCLUDED.title,
			summary = EXCLUDED.summary,
			content_markdown = EXCLUDED.content_markdown,
			schedule_count = EXCLUDED.schedule_count,
			updated_ts = EXCLUDED.updated_ts
		RETURNING id, created_ts, updated_ts`

	if err := d.db.QueryRowContext(ctx, stmt,
		upsert.OwnerID, upsert.DateKey, upsert.Title, upsert.Summary,
		upsert.ContentMarkdown, upsert.ScheduleCount, now, now,
	).Scan(
		&upsert.ID,
		&upsert.CreatedTs,
		&upsert.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to upsert digest: %w", err)
	}

	return upsert, nil
}

func (d *DB) GetDigest(ctx context.Context, find *store.FindDigest) (*store.Digest, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.OwnerID; v != nil {
		where, args = append(where, "digest.owner_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.DateKey; v != nil {
		where, args = append(where, "digest.date_key = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT
			id, owner_id, created_ts, updated_ts,
			date_key, title, summary, content_markdown, schedule_count
		FROM digest
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY digest.updated_ts DESC LIMIT 1`

	var digest store.Digest
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(
		&digest.ID,
		&digest.OwnerID,
		&digest.CreatedTs,
		&digest.UpdatedTs,
		&digest.DateKey,
		&digest.Title,
		&digest.Summary,
		&digest.ContentMarkdown,
		&digest.ScheduleCount,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get digest: %w", err)
	}

	return &digest, nil
}
