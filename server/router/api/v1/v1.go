// Package v1 exposes the HTTP API for parsing, sessions, schedules and digests.
package v1

import (
	"log/slog"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/haruplan/haruplan/internal/profile"
	"github.com/haruplan/haruplan/plugin/ai"
	"github.com/haruplan/haruplan/plugin/dialogue"
	"github.com/haruplan/haruplan/plugin/parser"
	"github.com/haruplan/haruplan/server/middleware"
	"github.com/haruplan/haruplan/server/service/digest"
	"github.com/haruplan/haruplan/server/service/schedule"
	"github.com/haruplan/haruplan/server/timezone"
	"github.com/haruplan/haruplan/store"
)

// DefaultSessionRetention is how long an idle conversation is kept before the
// housekeeping sweep evicts it.
const DefaultSessionRetention = time.Hour

type APIV1Service struct {
	Profile         *profile.Profile
	Store           *store.Store
	ScheduleService *schedule.Service
	DigestService   *digest.Service

	localParser  *parser.Parser
	remoteParser ai.RemoteParser
	location     *time.Location

	parseLimiter   *middleware.RateLimiter
	sessionLimiter *middleware.RateLimiter

	mu       sync.Mutex
	sessions map[string]*dialogue.Session
}

// NewAPIV1Service wires the API service. remoteParser may be nil when AI
// assistance is disabled.
func NewAPIV1Service(prof *profile.Profile, st *store.Store, schedules *schedule.Service, digests *digest.Service, remoteParser ai.RemoteParser) *APIV1Service {
	location := timezone.MustParseTimezone(prof.Timezone)
	return &APIV1Service{
		Profile:         prof,
		Store:           st,
		ScheduleService: schedules,
		DigestService:   digests,
		localParser:     parser.New(location),
		remoteParser:    remoteParser,
		location:        location,
		parseLimiter:    middleware.NewRateLimiter(10, 20),
		sessionLimiter:  middleware.NewRateLimiter(1, 10),
		sessions:        make(map[string]*dialogue.Session),
	}
}

// Register attaches all v1 routes to the echo instance.
func (s *APIV1Service) Register(e *echo.Echo) {
	group := e.Group("/api/v1")

	group.POST("/parse", s.ParseText, s.parseLimiter.Middleware())

	group.POST("/sessions", s.CreateSession, s.sessionLimiter.Middleware())
	group.GET("/sessions/:id/messages", s.ListSessionMessages)
	group.POST("/sessions/:id/messages", s.PostSessionMessage)
	group.DELETE("/sessions/:id", s.DeleteSession)

	group.GET("/schedules", s.ListSchedules)
	group.DELETE("/schedules/:uid", s.DeleteSchedule)

	group.GET("/digests/today", s.GetTodayDigest)
	group.GET("/digests/:dateKey", s.GetDigest)
}

// EvictIdleSessions drops sessions whose last turn is older than retention
// and returns how many were removed.
func (s *APIV1Service) EvictIdleSessions(retention time.Duration) int {
	cutoff := time.Now().Add(-retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, session := range s.sessions {
		if session.LastActive().Before(cutoff) {
			delete(s.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		slog.Info("evicted idle sessions", "count", evicted, "remaining", len(s.sessions))
	}
	return evicted
}

// RunHousekeeping evicts idle sessions and prunes stale rate limiter entries.
// Intended to run periodically.
func (s *APIV1Service) RunHousekeeping(retention time.Duration) {
	s.EvictIdleSessions(retention)
	s.parseLimiter.Prune(retention)
	s.sessionLimiter.Prune(retention)
}
