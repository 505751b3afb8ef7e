package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/prometheus"
	"github.com/jasmincar/milo-lab/pkg/errors"
)

// RequestMetrics records request counts and latencies by route template,
// so /compounds/C00009 and /compounds/C00002 share one series. Unmatched
// routes are recorded as "unmatched". The in-flight gauge covers the whole
// handler chain.
func RequestMetrics(m *prometheus.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		done := m.TrackInFlight()
		defer done()

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
		for _, e := range c.Errors {
			m.RecordError("http", string(errors.GetCode(e.Err)))
		}
	}
}

//Personal.AI order the ending
