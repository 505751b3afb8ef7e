package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/prometheus"
	"github.com/jasmincar/milo-lab/pkg/errors"
)

func TestRequestMetrics(t *testing.T) {
	t.Parallel()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "mw"}, nil)
	require.NoError(t, err)

	r := gin.New()
	r.Use(RequestMetrics(prometheus.NewMetrics(collector)))
	r.GET("/api/v1/compounds/:cid/transform", func(c *gin.Context) {
		if c.Param("cid") == "C00080" {
			_ = c.Error(errors.New(errors.ErrCodeCompoundNotFound, "no table"))
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusOK)
	})

	serve(r, http.MethodGet, "/api/v1/compounds/C00009/transform", nil)
	serve(r, http.MethodGet, "/api/v1/compounds/C00002/transform", nil)
	serve(r, http.MethodGet, "/api/v1/compounds/C00080/transform", nil)
	serve(r, http.MethodGet, "/nowhere", nil)

	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	out := w.Body.String()

	assert.Contains(t, out, `mw_http_requests_total{method="GET",path="/api/v1/compounds/:cid/transform",status="200"} 2`)
	assert.Contains(t, out, `mw_http_requests_total{method="GET",path="/api/v1/compounds/:cid/transform",status="404"} 1`)
	assert.Contains(t, out, `mw_http_requests_total{method="GET",path="unmatched",status="404"} 1`)
	assert.Contains(t, out, `mw_errors_total{code="DISS_005",component="http"} 1`)
}

func TestRequestMetrics_InFlight(t *testing.T) {
	t.Parallel()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "mwf"}, nil)
	require.NoError(t, err)
	scrape := func() string {
		w := httptest.NewRecorder()
		collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		return w.Body.String()
	}

	var during string
	r := gin.New()
	r.Use(RequestMetrics(prometheus.NewMetrics(collector)))
	r.GET("/slow", func(c *gin.Context) {
		during = scrape()
		c.Status(http.StatusOK)
	})

	serve(r, http.MethodGet, "/slow", nil)
	assert.Contains(t, during, "mwf_http_requests_in_flight 1\n")
	assert.Contains(t, scrape(), "mwf_http_requests_in_flight 0\n")
}

//Personal.AI order the ending
