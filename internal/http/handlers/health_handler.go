// Liveness, readiness and metrics endpoints. All three reply in plain text.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-webhook-ingest/internal/http/middleware"
)

// HealthLive godoc
// @ID       healthLive
// @Summary  Liveness probe
// @Tags     Health
// @Produce  plain
// @Success  200  {string}  string  "ok"
// @Router   /health/live [get]
func (h *Handlers) HealthLive(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// HealthReady godoc
// @ID          healthReady
// @Summary     Readiness probe
// @Description Ready when the signing secret is configured and storage answers a ping.
// @Tags        Health
// @Produce     plain
// @Success     200  {string}  string  "ok"
// @Failure     503  {string}  string  "not ready"
// @Router      /health/ready [get]
func (h *Handlers) HealthReady(c *gin.Context) {
	if h.secret == "" {
		c.String(http.StatusServiceUnavailable, "not ready")
		return
	}
	if err := h.svc.Ping(c.Request.Context()); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("readiness ping failed")
		c.String(http.StatusServiceUnavailable, "not ready")
		return
	}
	c.String(http.StatusOK, "ok")
}

// Metrics godoc
// @ID       metrics
// @Summary  Flat text metrics
// @Tags     Health
// @Produce  plain
// @Success  200  {string}  string  "metric lines"
// @Router   /metrics [get]
func (h *Handlers) Metrics(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(h.rec.Render()))
}
