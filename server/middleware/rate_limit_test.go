package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func TestAllowPerKey(t *testing.T) {
	rl := NewRateLimiter(1, 1)

	require.True(t, rl.Allow("a"))
	require.False(t, rl.Allow("a"))
	// A different client has its own bucket.
	require.True(t, rl.Allow("b"))
}

func TestPruneDropsIdleEntries(t *testing.T) {
	rl := NewRateLimiter(10, 20)

	rl.Allow("a")
	rl.Allow("b")
	require.Equal(t, 2, rl.Size())

	// Nothing is older than an hour yet.
	require.Equal(t, 0, rl.Prune(time.Hour))
	require.Equal(t, 2, rl.Size())

	require.Equal(t, 2, rl.Prune(0))
	require.Equal(t, 0, rl.Size())

	// A pruned client gets a fresh bucket on its next request.
	require.True(t, rl.Allow("a"))
	require.Equal(t, 1, rl.Size())
}

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	e := echo.New()
	e.GET("/", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, rl.Middleware())

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, do())
	require.Equal(t, http.StatusTooManyRequests, do())
}
