// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file feeds the service Recorder from every HTTP exchange: one
// (path, status) count, one latency sample in milliseconds, the in-flight
// gauge and the response size.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-webhook-ingest/internal/metrics"
)

// Metrics returns a Gin middleware that records each request into rec.
//
// The path label is the registered route (c.FullPath()); unmatched requests
// fall back to the raw URL path. Latency covers everything downstream of this
// middleware, so install it before the body limit and the handlers.
func Metrics(rec *metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rec.AddInFlight(1)
		defer rec.AddInFlight(-1)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		rec.IncHTTP(path, c.Writer.Status())
		rec.ObserveLatency(time.Since(start).Milliseconds())
		rec.ObserveResponseSize(c.Writer.Size())
	}
}
