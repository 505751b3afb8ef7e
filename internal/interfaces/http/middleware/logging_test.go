package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasmincar/milo-lab/internal/testutil"
	"github.com/jasmincar/milo-lab/pkg/errors"
)

func loggingEngine(log *testutil.MockLogger, config LoggingConfig) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), RequestLogging(log, config))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/missing", func(c *gin.Context) {
		_ = c.Error(errors.NotFound("compound not found"))
		c.Status(http.StatusNotFound)
	})
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	r.GET("/slow", func(c *gin.Context) {
		time.Sleep(20 * time.Millisecond)
		c.Status(http.StatusOK)
	})
	return r
}

func TestRequestLogging_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path  string
		level string
		msg   string
	}{
		{"/ok", "info", "HTTP request completed"},
		{"/missing", "warn", "HTTP request completed with client error"},
		{"/boom", "error", "HTTP request completed with server error"},
		{"/slow", "warn", "HTTP request completed (slow)"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.path, func(t *testing.T) {
			t.Parallel()
			log := testutil.NewMockLogger()
			config := DefaultLoggingConfig()
			config.SlowThreshold = 10 * time.Millisecond

			serve(loggingEngine(log, config), http.MethodGet, tc.path, nil)
			assert.True(t, log.HasMessage(tc.level, tc.msg), "expected %s %q", tc.level, tc.msg)
			assert.Len(t, log.GetMessages(), 1)
		})
	}
}

func TestRequestLogging_Fields(t *testing.T) {
	t.Parallel()
	log := testutil.NewMockLogger()
	serve(loggingEngine(log, DefaultLoggingConfig()), http.MethodGet, "/missing?ph=7",
		map[string]string{HeaderRequestID: "req-42"})

	msgs := log.GetMessages()
	require.Len(t, msgs, 1)
	for key, want := range map[string]interface{}{
		"method":     "GET",
		"path":       "/missing",
		"status":     http.StatusNotFound,
		"request_id": "req-42",
		"query":      "ph=7",
	} {
		got, ok := msgs[0].Field(key)
		require.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}
	_, ok := msgs[0].Field("error")
	assert.True(t, ok)
}

func TestRequestLogging_SkipPaths(t *testing.T) {
	t.Parallel()
	log := testutil.NewMockLogger()
	w := serve(loggingEngine(log, DefaultLoggingConfig()), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, log.GetMessages())
}

func TestRequestID(t *testing.T) {
	t.Parallel()
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := serve(r, http.MethodGet, "/", map[string]string{HeaderRequestID: "abc"})
	assert.Equal(t, "abc", w.Body.String())
	assert.Equal(t, "abc", w.Header().Get(HeaderRequestID))

	w = serve(r, http.MethodGet, "/", nil)
	assert.Len(t, w.Body.String(), 36)
	assert.Equal(t, w.Body.String(), w.Header().Get(HeaderRequestID))
}

//Personal.AI order the ending
