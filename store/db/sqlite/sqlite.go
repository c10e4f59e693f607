package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/haruplan/haruplan/internal/profile"
	"github.com/haruplan/haruplan/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	// Connection parameters keep the single writer happy under concurrent
	// readers: WAL journal plus a busy timeout instead of immediate failure.
	db, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	driver := DB{db: db, profile: profile}

	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const latestSchema = `
CREATE TABLE IF NOT EXISTS schedule (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uid TEXT NOT NULL UNIQUE,
	owner_id INTEGER NOT NULL DEFAULT 1,
	created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now')),
	updated_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now')),
	title TEXT NOT NULL,
	start_ts BIGINT NOT NULL,
	timezone TEXT NOT NULL DEFAULT 'Asia/Seoul',
	repeat_type TEXT NOT NULL DEFAULT 'none',
	source_text TEXT NOT NULL DEFAULT '',
	notification_enabled INTEGER NOT NULL DEFAULT 0,
	notification_id TEXT
);

CREATE INDEX IF NOT EXISTS idx_schedule_owner_start ON schedule (owner_id, start_ts);

CREATE TABLE IF NOT EXISTS digest (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id INTEGER NOT NULL DEFAULT 1,
	created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now')),
	updated_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now')),
	date_key TEXT NOT NULL,
	title TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	content_markdown TEXT NOT NULL DEFAULT '',
	schedule_count INTEGER NOT NULL DEFAULT 0,
	UNIQUE (owner_id, date_key)
);
`

func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, latestSchema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}
