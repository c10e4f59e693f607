package store

import (
	"context"
)

// Digest is a rendered daily briefing, keyed by owner and calendar date.
type Digest struct {
	ID int32

	OwnerID   int32
	CreatedTs int64
	UpdatedTs int64

	// DateKey is the briefing date in YYYY-MM-DD form in the owner's timezone.
	DateKey string
	Title   string
	Summary string
	// ContentMarkdown is the briefing source text. HTML is rendered on read.
	ContentMarkdown string
	ScheduleCount   int32
}

// FindDigest is the filter for looking up digests.
type FindDigest struct {
	OwnerID *int32
	DateKey *string
}

func (s *Store) UpsertDigest(ctx context.Context, upsert *Digest) (*Digest, error) {
	return s.driver.UpsertDigest(ctx, upsert)
}

func (s *Store) GetDigest(ctx context.Context, find *FindDigest) (*Digest, error) {
	return s.driver.GetDigest(ctx, find)
}
