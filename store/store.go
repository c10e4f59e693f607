// Package store provides the persistence layer for schedules and digests.
package store

import (
	"context"

	"github.com/haruplan/haruplan/internal/profile"
)

// Store provides database access to all models.
type Store struct {
	driver  Driver
	profile *profile.Profile
}

// New creates a new store with the given driver and profile.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

// Migrate creates or upgrades the database schema.
func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.driver.Close()
}
