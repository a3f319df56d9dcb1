// Message read endpoints.
//
//   - GET /messages  filtered, paginated listing ordered by (ts, message_id)
//   - GET /stats     aggregate counts and ts bounds
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-webhook-ingest/internal/domain"
	"github.com/tbourn/go-webhook-ingest/internal/services"
	"github.com/tbourn/go-webhook-ingest/internal/utils"
)

// ListMessagesResponse is one page of messages plus the pre-pagination total.
type ListMessagesResponse struct {
	Data   []domain.Message `json:"data"`
	Total  int64            `json:"total" example:"3"`
	Limit  int              `json:"limit" example:"50"`
	Offset int              `json:"offset" example:"0"`
}

// parsePage reads limit/offset from the query string. Absent values take the
// defaults; present values must be integers within bounds.
func parsePage(c *gin.Context) (limit, offset int, err error) {
	limit, err = utils.ParseIntDefault(c.Query("limit"), services.DefaultLimit)
	if err != nil || limit < services.MinLimit || limit > services.MaxLimit {
		return 0, 0, services.ErrInvalidLimit
	}
	offset, err = utils.ParseIntDefault(c.Query("offset"), 0)
	if err != nil || offset < 0 {
		return 0, 0, services.ErrInvalidOffset
	}
	return limit, offset, nil
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List stored messages
// @Description Returns messages ordered by ts then message_id. The q filter is a
// @Description case-insensitive substring match on text; since is an inclusive ts lower bound.
// @Tags        Messages
// @Produce     json
// @Param       limit   query  int     false  "Page size"            minimum(1) maximum(100) default(50)
// @Param       offset  query  int     false  "Rows to skip"         minimum(0) default(0)
// @Param       from    query  string  false  "Exact sender match"   example(+919876543210)
// @Param       since   query  string  false  "Inclusive ts lower bound"  example(2025-01-01T00:00:00Z)
// @Param       q       query  string  false  "Substring of text (case-insensitive)"
// @Success     200  {object}  handlers.ListMessagesResponse
// @Failure     422  {object}  handlers.ErrorResponse  "Invalid limit or offset"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	limit, offset, err := parsePage(c)
	if err != nil {
		fail(c, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
		return
	}

	f := domain.MessageFilter{
		From:  c.Query("from"),
		Since: c.Query("since"),
		Q:     c.Query("q"),
	}

	items, total, err := h.svc.Query(c.Request.Context(), limit, offset, f)
	if err != nil {
		if errors.Is(err, services.ErrInvalidLimit) || errors.Is(err, services.ErrInvalidOffset) {
			fail(c, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.Message{}
	}

	ok(c, http.StatusOK, ListMessagesResponse{
		Data:   items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// Stats godoc
// @ID          getStats
// @Summary     Aggregate message statistics
// @Description Total messages, distinct senders, top 10 senders by count and ts bounds.
// @Tags        Messages
// @Produce     json
// @Success     200  {object}  domain.Stats
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /stats [get]
func (h *Handlers) Stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, st)
}
