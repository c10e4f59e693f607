package postgres

import (
	"context"
	"database/sql"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

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

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	// Connection pool sized for a single-user personal assistant.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	var driver store.Driver = &DB{
		db:      db,
		profile: profile,
	}

	return driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const latestSchema = `
CREATE TABLE IF NOT EXISTS schedule (
	id SERIAL PRIMARY KEY,
	uid TEXT NOT NULL UNIQUE,
	owner_id INTEGER NOT NULL DEFAULT 1,
	created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW()),
	updated_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW()),
	title TEXT NOT NULL,
	start_ts BIGINT NOT NULL,
	timezone TEXT NOT NULL DEFAULT 'Asia/Seoul',
	repeat_type TEXT NOT NULL DEFAULT 'none',
	source_text TEXT NOT NULL DEFAULT '',
	notification_enabled BOOLEAN NOT NULL DEFAULT FALSE,
	notification_id TEXT
);

CREATE INDEX IF NOT EXISTS idx_schedule_owner_start ON schedule (owner_id, start_ts);

CREATE TABLE IF NOT EXISTS digest (
	id SERIAL PRIMARY KEY,
	owner_id INTEGER NOT NULL DEFAULT 1,
	created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW()),
	updated_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW()),
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
