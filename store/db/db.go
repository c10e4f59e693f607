package db

import (
	"github.com/pkg/errors"

	"github.com/haruplan/haruplan/internal/profile"
	"github.com/haruplan/haruplan/store"
	"github.com/haruplan/haruplan/store/db/postgres"
	"github.com/haruplan/haruplan/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
// SQLite is the default for personal single-user deployments; PostgreSQL is
// available for hosted setups.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.New("unknown db driver: only 'sqlite' and 'postgres' are supported")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
