// Package httpapi wires the HTTP transport (Gin) to the message service,
// middleware, and route handlers. It centralizes cross-cutting concerns:
// tracing, correlation IDs, redacted access logs, panic recovery, metrics,
// body limits, rate limiting, CORS, security headers and compression.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-webhook-ingest/internal/config"
	_ "github.com/tbourn/go-webhook-ingest/internal/docs" // registers the swagger doc
	"github.com/tbourn/go-webhook-ingest/internal/http/handlers"
	"github.com/tbourn/go-webhook-ingest/internal/http/middleware"
	"github.com/tbourn/go-webhook-ingest/internal/metrics"
	"github.com/tbourn/go-webhook-ingest/internal/signature"
)

var (
	corsMethods = []string{"GET", "POST", "OPTIONS"}
	corsHeaders = []string{"Origin", "Content-Type", "Accept", signature.Header, "X-Request-ID"}
	corsExpose  = []string{"X-Request-ID", "Content-Length"}
)

// RegisterRoutes attaches all middleware and HTTP endpoints to r.
//
// Middleware order:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access log with PII scrubbing
//  4. Metrics: every request counted, including rejected and panicking ones
//  5. Recovery: turns panics into a 500 that Logger and Metrics observe
//  6. Body size limiter
//  7. Rate limiter (per client IP; disabled when RATE_RPS is 0)
//  8. CORS and security headers
//  9. gzip for JSON responses (metrics endpoints excluded)
func RegisterRoutes(r *gin.Engine, svc handlers.MessageService, rec *metrics.Recorder, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(middleware.RedactOptions{}))
	r.Use(middleware.Metrics(rec))
	r.Use(middleware.Recovery())
	r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())
	r.Use(rl.Handler())

	r.Use(corsHandlers(cfg.CORS)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		HSTS:          cfg.Security.EnableHSTS,
		HSTSMaxAge:    cfg.Security.HSTSMaxAge,
		NoStore:       true,
		NoStoreExempt: []string{"/swagger/"},
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	h := handlers.New(svc, rec, cfg.WebhookSecret)

	r.POST("/webhook", h.Webhook)
	r.GET("/messages", h.ListMessages)
	r.GET("/stats", h.Stats)
	r.GET("/health/live", h.HealthLive)
	r.GET("/health/ready", h.HealthReady)
	r.GET("/metrics", h.Metrics)
	r.GET("/metrics/prometheus", gin.WrapH(promhttp.HandlerFor(rec.Registry(), promhttp.HandlerOpts{
		Registry: rec.Registry(),
	})))

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}

// corsHandlers returns the CORS chain. With no configured origins every
// origin is allowed (and ACAO: * is set even without an Origin header);
// otherwise only allowlisted origins are echoed back.
func corsHandlers(cfg config.CORSConfig) []gin.HandlerFunc {
	if len(cfg.AllowedOrigins) == 0 {
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(cors.Config{
				AllowAllOrigins:  true,
				AllowMethods:     corsMethods,
				AllowHeaders:     corsHeaders,
				ExposeHeaders:    corsExpose,
				AllowCredentials: false, // must remain false with AllowAllOrigins
				MaxAge:           12 * time.Hour,
			}),
		}
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     corsMethods,
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    corsExpose,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}),
	}
}
