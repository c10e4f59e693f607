package v1

import (
	"net/http"
	"regexp"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/haruplan/haruplan/server/service/schedule"
	"github.com/haruplan/haruplan/store"
)

var dateKeyPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// DigestResponse is the wire form of a daily briefing.
type DigestResponse struct {
	DateKey       string `json:"dateKey"`
	Title         string `json:"title"`
	Summary       string `json:"summary"`
	ContentHTML   string `json:"contentHtml"`
	ScheduleCount int32  `json:"scheduleCount"`
	UpdatedTs     int64  `json:"updatedTs"`
}

// GetTodayDigest returns today's briefing, building it on demand if it has
// not been generated yet.
// GET /api/v1/digests/today
func (s *APIV1Service) GetTodayDigest(c echo.Context) error {
	ctx := c.Request().Context()
	dateKey := s.DigestService.DateKey(time.Now())

	stored, err := s.DigestService.Get(ctx, schedule.DefaultOwnerID, dateKey)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load digest"})
	}
	if stored == nil {
		stored, err = s.DigestService.BuildToday(ctx, schedule.DefaultOwnerID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to build digest"})
		}
	}
	return s.respondDigest(c, stored)
}

// GetDigest returns the stored briefing for a past date key.
// GET /api/v1/digests/{dateKey}
func (s *APIV1Service) GetDigest(c echo.Context) error {
	dateKey := c.Param("dateKey")
	if !dateKeyPattern.MatchString(dateKey) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "dateKey must be YYYY-MM-DD"})
	}

	stored, err := s.DigestService.Get(c.Request().Context(), schedule.DefaultOwnerID, dateKey)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load digest"})
	}
	if stored == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "digest not found"})
	}
	return s.respondDigest(c, stored)
}

func (s *APIV1Service) respondDigest(c echo.Context, stored *store.Digest) error {
	html, err := s.DigestService.RenderHTML(stored)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to render digest"})
	}
	return c.JSON(http.StatusOK, DigestResponse{
		DateKey:       stored.DateKey,
		Title:         stored.Title,
		Summary:       stored.Summary,
		ContentHTML:   html,
		ScheduleCount: stored.ScheduleCount,
		UpdatedTs:     stored.UpdatedTs,
	})
}
