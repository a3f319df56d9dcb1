// Webhook HTTP handler.
//
// POST /webhook accepts a JSON message signed with HMAC-SHA256 over the raw
// body. Every request resolves to exactly one outcome label, which is counted
// in webhook_requests_total and logged:
//
//	invalid_signature  401  signature missing or wrong (nothing stored)
//	validation_error   422  body is not a valid message (413 when a signed
//	                        body exceeds the size cap)
//	created            200  new message stored
//	duplicate          200  message_id already stored; original row kept
//	error: <desc>      500  storage failure
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-webhook-ingest/internal/domain"
	"github.com/tbourn/go-webhook-ingest/internal/http/middleware"
	"github.com/tbourn/go-webhook-ingest/internal/services"
	"github.com/tbourn/go-webhook-ingest/internal/signature"
)

// WebhookRequest documents the inbound payload. Decoding and validation are
// done by domain.ParseWebhook on the raw body.
type WebhookRequest struct {
	MessageID string  `json:"message_id" example:"m1"`
	From      string  `json:"from" example:"+919876543210"`
	To        string  `json:"to" example:"+14155550100"`
	TS        string  `json:"ts" example:"2025-01-15T10:00:00Z"`
	Text      *string `json:"text,omitempty" example:"Hello"`
}

// StatusResponse is the body of a successful webhook call.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// Webhook godoc
// @ID          postWebhook
// @Summary     Ingest a signed message
// @Description Verifies X-Signature (hex HMAC-SHA256 of the raw body), validates the
// @Description payload and stores it. Replays of a stored message_id are acknowledged
// @Description with 200 and leave the stored row untouched.
// @Tags        Webhook
// @Accept      json
// @Produce     json
// @Param       X-Signature  header  string                    true  "Hex HMAC-SHA256 of the raw body"
// @Param       body         body    handlers.WebhookRequest   true  "Message"
// @Success     200  {object}  handlers.StatusResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid signature"
// @Failure     413  {object}  handlers.ErrorResponse  "Body too large"
// @Failure     422  {object}  handlers.ErrorResponse  "Validation error"
// @Failure     500  {object}  handlers.ErrorResponse  "Storage error"
// @Router      /webhook [post]
func (h *Handlers) Webhook(c *gin.Context) {
	sig := c.GetHeader(signature.Header)
	if sig == "" || h.secret == "" {
		h.rejectSignature(c)
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			h.finish(c, "", services.OutcomeValidationError)
			fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "request body too large")
			return
		}
		h.finish(c, "", services.OutcomeValidationError)
		failValidation(c, &domain.ValidationError{Fields: []domain.FieldError{{Field: "body", Reason: "unreadable"}}})
		return
	}

	if !signature.Verify(h.secret, body, sig) {
		h.rejectSignature(c)
		return
	}

	msg, err := domain.ParseWebhook(body)
	if err != nil {
		h.finish(c, "", services.OutcomeValidationError)
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			failValidation(c, ve)
			return
		}
		fail(c, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
		return
	}

	created, reason := h.svc.Insert(c.Request.Context(), msg)
	h.finish(c, msg.MessageID, reason)
	if !created && strings.HasPrefix(reason, "error:") {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to store message")
		return
	}
	ok(c, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *Handlers) rejectSignature(c *gin.Context) {
	h.finish(c, "", services.OutcomeInvalidSignature)
	fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid signature")
}

// finish counts and logs the outcome of one webhook request.
func (h *Handlers) finish(c *gin.Context, messageID, result string) {
	h.rec.IncWebhook(result)
	lg := middleware.LoggerFrom(c)
	ev := lg.Info()
	if strings.HasPrefix(result, "error:") {
		ev = lg.Error()
	}
	ev.Str("message_id", messageID).
		Bool("dup", result == services.OutcomeDuplicate).
		Str("result", result).
		Msg("webhook processed")
}
