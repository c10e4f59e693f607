package v1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/haruplan/haruplan/plugin/ai"
	"github.com/haruplan/haruplan/server/timezone"
)

// ParseTextRequest is the body of POST /api/v1/parse.
type ParseTextRequest struct {
	Text string `json:"text"`
	// Timezone optionally overrides the server default, IANA name.
	Timezone string `json:"timezone,omitempty"`
	// NowISO optionally fixes the reference time, RFC3339. Defaults to now.
	NowISO string `json:"nowISO,omitempty"`
}

// ParseText runs the remote model parse used as the fallback for ambiguous
// input. The rule-based parse runs on-device; this endpoint serves clients
// that escalate.
// POST /api/v1/parse
func (s *APIV1Service) ParseText(c echo.Context) error {
	var req ParseTextRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Text == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "text is required"})
	}
	if s.remoteParser == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "AI parsing is not enabled"})
	}

	location := s.location
	if req.Timezone != "" {
		loc, err := timezone.ParseTimezone(req.Timezone)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid timezone"})
		}
		location = loc
	}

	nowISO := req.NowISO
	if nowISO == "" {
		nowISO = time.Now().In(location).Format(time.RFC3339)
	}

	resp, err := s.remoteParser.Parse(c.Request().Context(), ai.ParseRequest{
		Text:     req.Text,
		Timezone: location.String(),
		NowISO:   nowISO,
	})
	if err != nil {
		slog.Warn("remote parse failed", "error", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "failed to parse text"})
	}

	return c.JSON(http.StatusOK, resp)
}
