// Package handlers implements the HTTP endpoints of the webhook ingestion
// service.
//
// Handlers are transport-thin: they read and validate request input, delegate
// to the message service, record outcome metrics and shape the response.
// Persistence and signing details live in the services, repo and signature
// packages.
package handlers

import (
	"context"

	"github.com/tbourn/go-webhook-ingest/internal/domain"
	"github.com/tbourn/go-webhook-ingest/internal/metrics"
)

// MessageService is the storage-facing behavior the handlers rely on.
//
// Implementations must be safe for concurrent use and honor ctx.
type MessageService interface {
	// Insert stores m unless its message_id already exists. It reports
	// whether a row was created and an outcome label ("created",
	// "duplicate" or "error: <description>").
	Insert(ctx context.Context, m domain.Message) (bool, string)
	// Query returns one page of matching messages and the total match count.
	Query(ctx context.Context, limit, offset int, f domain.MessageFilter) ([]domain.Message, int64, error)
	// Stats returns aggregate counts over all stored messages.
	Stats(ctx context.Context) (*domain.Stats, error)
	// Ping reports whether storage is reachable.
	Ping(ctx context.Context) error
}

// Handlers groups the HTTP endpoints. Construct with New.
type Handlers struct {
	svc    MessageService
	rec    *metrics.Recorder
	secret string
}

// New returns Handlers bound to svc, recording into rec and verifying
// webhook signatures with secret. An empty secret rejects every webhook and
// keeps readiness failing.
func New(svc MessageService, rec *metrics.Recorder, secret string) *Handlers {
	if rec == nil {
		rec = metrics.New()
	}
	return &Handlers{svc: svc, rec: rec, secret: secret}
}
