package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/haruplan/haruplan/internal/profile"
	"github.com/haruplan/haruplan/plugin/ai"
	"github.com/haruplan/haruplan/plugin/parser"
	"github.com/haruplan/haruplan/server/service/digest"
	"github.com/haruplan/haruplan/server/service/schedule"
	"github.com/haruplan/haruplan/server/timezone"
	"github.com/haruplan/haruplan/store"
	"github.com/haruplan/haruplan/store/db/sqlite"
)

func newTestAPI(t *testing.T, remote ai.RemoteParser) (*echo.Echo, *APIV1Service) {
	t.Helper()

	p := &profile.Profile{
		Mode:     "prod",
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "haruplan_test.db"),
		Timezone: timezone.TimezoneAsiaSeoul,
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })

	st := store.New(driver, p)
	require.NoError(t, st.Migrate(context.Background()))

	schedules := schedule.NewService(st, nil, timezone.LocationAsiaSeoul)
	digests := digest.NewService(st, schedules, timezone.LocationAsiaSeoul)

	svc := NewAPIV1Service(p, st, schedules, digests, remote)
	e := echo.New()
	svc.Register(e)
	return e, svc
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func parseResultWithStart(title string, start time.Time) parser.ParseResult {
	return parser.ParseResult{
		TitleCandidate: title,
		StartAt:        &start,
		RepeatType:     parser.RepeatNone,
	}
}

func TestParseEndpoint(t *testing.T) {
	remote := &ai.MockRemoteParser{
		Response: &ai.ParseResponse{
			Title:      "치과",
			StartAtISO: "2024-06-02T19:00:00+09:00",
			RepeatType: "none",
		},
	}
	e, _ := newTestAPI(t, remote)

	rec := doJSON(t, e, http.MethodPost, "/api/v1/parse", `{"text":"내일 저녁 7시 치과"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ai.ParseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "치과", resp.Title)
	require.Equal(t, "2024-06-02T19:00:00+09:00", resp.StartAtISO)

	require.Len(t, remote.Requests, 1)
	require.Equal(t, "내일 저녁 7시 치과", remote.Requests[0].Text)
	require.Equal(t, timezone.TimezoneAsiaSeoul, remote.Requests[0].Timezone)
	require.NotEmpty(t, remote.Requests[0].NowISO)
}

func TestParseEndpointMissingText(t *testing.T) {
	e, _ := newTestAPI(t, &ai.MockRemoteParser{})

	rec := doJSON(t, e, http.MethodPost, "/api/v1/parse", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseEndpointModelFailure(t *testing.T) {
	remote := &ai.MockRemoteParser{
		Err: &ai.RemoteParseError{Code: "TRANSPORT", Message: "connection refused"},
	}
	e, _ := newTestAPI(t, remote)

	rec := doJSON(t, e, http.MethodPost, "/api/v1/parse", `{"text":"언젠가 미팅"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestParseEndpointDisabled(t *testing.T) {
	e, _ := newTestAPI(t, nil)

	rec := doJSON(t, e, http.MethodPost, "/api/v1/parse", `{"text":"내일 회의"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSessionConversationFlow(t *testing.T) {
	e, _ := newTestAPI(t, nil)

	rec := doJSON(t, e, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var created CreateSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	require.Equal(t, "IDLE", created.Phase)

	// Complete utterance moves straight to confirmation.
	rec = doJSON(t, e, http.MethodPost, "/api/v1/sessions/"+created.ID+"/messages",
		`{"text":"내일 오후 7시 치과"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var turn PostMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &turn))
	require.Equal(t, "AWAITING_CONFIRMATION", turn.Phase)
	require.Len(t, turn.Replies, 1)
	require.Contains(t, turn.Replies[0].Text, "치과")
	require.Contains(t, turn.Replies[0].Text, "저장할까요")

	// Confirm and verify the schedule landed in the store.
	rec = doJSON(t, e, http.MethodPost, "/api/v1/sessions/"+created.ID+"/messages",
		`{"text":"네"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &turn))
	require.Equal(t, "IDLE", turn.Phase)
	require.Contains(t, turn.Replies[0].Text, "저장되었습니다")

	rec = doJSON(t, e, http.MethodGet, "/api/v1/schedules?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var schedules []ScheduleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &schedules))
	require.Len(t, schedules, 1)
	require.Equal(t, "치과", schedules[0].Title)
	require.Equal(t, "none", schedules[0].RepeatType)

	start := time.Unix(schedules[0].StartTs, 0).In(timezone.LocationAsiaSeoul)
	require.Equal(t, 19, start.Hour())

	// The conversation log keeps both sides in order.
	rec = doJSON(t, e, http.MethodGet, "/api/v1/sessions/"+created.ID+"/messages", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var messages []json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &messages))
	require.Len(t, messages, 4)
}

func TestSessionNotFound(t *testing.T) {
	e, _ := newTestAPI(t, nil)

	rec := doJSON(t, e, http.MethodPost, "/api/v1/sessions/unknown/messages", `{"text":"내일"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, e, http.MethodGet, "/api/v1/sessions/unknown/messages", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionMessageMissingText(t *testing.T) {
	e, _ := newTestAPI(t, nil)

	rec := doJSON(t, e, http.MethodPost, "/api/v1/sessions", "")
	var created CreateSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, e, http.MethodPost, "/api/v1/sessions/"+created.ID+"/messages", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteSchedule(t *testing.T) {
	e, svc := newTestAPI(t, nil)

	start := time.Now().Add(24 * time.Hour)
	require.NoError(t, svc.ScheduleService.Commit(context.Background(),
		parseResultWithStart("치과", start), "치과"))

	rec := doJSON(t, e, http.MethodGet, "/api/v1/schedules", "")
	var schedules []ScheduleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &schedules))
	require.Len(t, schedules, 1)

	rec = doJSON(t, e, http.MethodDelete, "/api/v1/schedules/"+schedules[0].UID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, e, http.MethodDelete, "/api/v1/schedules/"+schedules[0].UID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIdleSessionEviction(t *testing.T) {
	e, svc := newTestAPI(t, nil)

	rec := doJSON(t, e, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created CreateSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// A fresh session survives the sweep at normal retention.
	require.Equal(t, 0, svc.EvictIdleSessions(DefaultSessionRetention))
	rec = doJSON(t, e, http.MethodGet, "/api/v1/sessions/"+created.ID+"/messages", "")
	require.Equal(t, http.StatusOK, rec.Code)

	// With zero retention every session is past the cutoff.
	require.Equal(t, 1, svc.EvictIdleSessions(0))
	rec = doJSON(t, e, http.MethodGet, "/api/v1/sessions/"+created.ID+"/messages", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/api/v1/sessions/"+created.ID+"/messages", `{"text":"내일"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteSessionRoute(t *testing.T) {
	e, _ := newTestAPI(t, nil)

	rec := doJSON(t, e, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created CreateSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, e, http.MethodDelete, "/api/v1/sessions/"+created.ID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, e, http.MethodDelete, "/api/v1/sessions/"+created.ID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/api/v1/sessions/"+created.ID+"/messages", `{"text":"내일"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunHousekeeping(t *testing.T) {
	e, svc := newTestAPI(t, nil)

	rec := doJSON(t, e, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	svc.RunHousekeeping(0)

	svc.mu.Lock()
	remaining := len(svc.sessions)
	svc.mu.Unlock()
	require.Equal(t, 0, remaining)
}

func TestDigestEndpoints(t *testing.T) {
	e, _ := newTestAPI(t, nil)

	// Today's digest is built on demand.
	rec := doJSON(t, e, http.MethodGet, "/api/v1/digests/today", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var today DigestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &today))
	require.NotEmpty(t, today.DateKey)
	require.Contains(t, today.ContentHTML, "<h1>")

	// The stored digest is served by date key.
	rec = doJSON(t, e, http.MethodGet, "/api/v1/digests/"+today.DateKey, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, e, http.MethodGet, "/api/v1/digests/1999-01-01", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, e, http.MethodGet, "/api/v1/digests/not-a-date", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
