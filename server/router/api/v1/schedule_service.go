package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/haruplan/haruplan/server/service/schedule"
	"github.com/haruplan/haruplan/store"
)

const defaultUpcomingLimit = 20

// ScheduleResponse is the wire form of a stored schedule.
type ScheduleResponse struct {
	UID                 string `json:"uid"`
	Title               string `json:"title"`
	StartTs             int64  `json:"startTs"`
	Timezone            string `json:"timezone"`
	RepeatType          string `json:"repeatType"`
	SourceText          string `json:"sourceText"`
	NotificationEnabled bool   `json:"notificationEnabled"`
	CreatedTs           int64  `json:"createdTs"`
	UpdatedTs           int64  `json:"updatedTs"`
}

// ListSchedules returns the owner's schedules. ?view=today limits to the
// current local day; the default view lists upcoming entries.
// GET /api/v1/schedules
func (s *APIV1Service) ListSchedules(c echo.Context) error {
	ctx := c.Request().Context()

	var (
		list []*store.Schedule
		err  error
	)
	switch c.QueryParam("view") {
	case "today":
		list, err = s.ScheduleService.ListToday(ctx, schedule.DefaultOwnerID)
	default:
		limit := defaultUpcomingLimit
		if v := c.QueryParam("limit"); v != "" {
			if n, convErr := strconv.Atoi(v); convErr == nil && n > 0 {
				limit = n
			}
		}
		list, err = s.ScheduleService.ListUpcoming(ctx, schedule.DefaultOwnerID, limit)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list schedules"})
	}

	out := make([]ScheduleResponse, 0, len(list))
	for _, item := range list {
		out = append(out, toScheduleResponse(item))
	}
	return c.JSON(http.StatusOK, out)
}

// DeleteSchedule removes a schedule and its pending reminder.
// DELETE /api/v1/schedules/{uid}
func (s *APIV1Service) DeleteSchedule(c echo.Context) error {
	uid := c.Param("uid")
	existing, err := s.ScheduleService.Get(c.Request().Context(), schedule.DefaultOwnerID, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load schedule"})
	}
	if existing == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "schedule not found"})
	}
	if err := s.ScheduleService.Delete(c.Request().Context(), schedule.DefaultOwnerID, uid); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to delete schedule"})
	}
	return c.NoContent(http.StatusNoContent)
}

func toScheduleResponse(s *store.Schedule) ScheduleResponse {
	return ScheduleResponse{
		UID:                 s.UID,
		Title:               s.Title,
		StartTs:             s.StartTs,
		Timezone:            s.Timezone,
		RepeatType:          s.RepeatType,
		SourceText:          s.SourceText,
		NotificationEnabled: s.NotificationEnabled,
		CreatedTs:           s.CreatedTs,
		UpdatedTs:           s.UpdatedTs,
	}
}
