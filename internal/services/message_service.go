// Package services – MessageService
//
// This file implements MessageService, the application-level component that
// owns persisted webhook messages. It serializes inserts so the uniqueness
// check and the insert are atomic with respect to other writers, maps
// storage results onto webhook outcome labels, and serves the filtered
// listing and aggregate statistics.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include the message id or pagination parameters where applicable.

package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-webhook-ingest/internal/domain"
	"github.com/tbourn/go-webhook-ingest/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Pagination bounds accepted by Query.
const (
	MinLimit     = 1
	MaxLimit     = 100
	DefaultLimit = 50
)

const tracerName = "services/MessageService"

// MessageService coordinates message persistence and reads.
// The zero value is not usable; construct with NewMessageService.
type MessageService struct {
	DB *gorm.DB

	// Now supplies created_at; defaults to time.Now.
	Now func() time.Time

	mu sync.Mutex // serializes Insert
}

// NewMessageService returns a MessageService backed by db.
func NewMessageService(db *gorm.DB) *MessageService {
	return &MessageService{DB: db, Now: time.Now}
}

// Insert stores m with a fresh created_at.
//
// It returns (true, "created") for a new row and (false, "duplicate") when
// the message_id already exists; the stored row is left untouched. Any other
// failure yields (false, "error: <description>").
func (s *MessageService) Insert(ctx context.Context, m domain.Message) (bool, string) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Insert",
		trace.WithAttributes(attribute.String("message.id", m.MessageID)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	m.CreatedAt = s.now().UTC().Format(domain.TimestampLayout)
	err := repo.CreateMessage(ctx, s.DB, &m)
	switch {
	case err == nil:
		span.SetAttributes(attribute.String("webhook.result", OutcomeCreated))
		return true, OutcomeCreated
	case errors.Is(err, repo.ErrDuplicate):
		span.SetAttributes(attribute.String("webhook.result", OutcomeDuplicate))
		return false, OutcomeDuplicate
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		zerolog.Ctx(ctx).Error().Err(err).Str("message_id", m.MessageID).Msg("insert failed")
		return false, ErrorOutcome(err)
	}
}

// Query returns one page of messages matching f ordered by (ts, message_id)
// together with the total number of matching rows before pagination.
func (s *MessageService) Query(ctx context.Context, limit, offset int, f domain.MessageFilter) ([]domain.Message, int64, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Query",
		trace.WithAttributes(
			attribute.Int("limit", limit),
			attribute.Int("offset", offset),
			attribute.Bool("filter.from", f.From != ""),
			attribute.Bool("filter.since", f.Since != ""),
			attribute.Bool("filter.q", f.Q != ""),
		),
	)
	defer span.End()

	if limit < MinLimit || limit > MaxLimit {
		return nil, 0, ErrInvalidLimit
	}
	if offset < 0 {
		return nil, 0, ErrInvalidOffset
	}

	total, err := repo.CountMessages(ctx, s.DB, f)
	if err != nil {
		span.RecordError(err)
		return nil, 0, err
	}
	if total == 0 || int64(offset) >= total {
		return []domain.Message{}, total, nil
	}

	items, err := repo.ListMessagesPage(ctx, s.DB, f, offset, limit)
	if err != nil {
		span.RecordError(err)
		return nil, 0, err
	}
	return items, total, nil
}

// Stats returns the aggregate snapshot over all stored messages.
func (s *MessageService) Stats(ctx context.Context) (*domain.Stats, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Stats")
	defer span.End()

	st, err := repo.MessageStats(ctx, s.DB)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return st, nil
}

// Ping reports whether the persistence layer is reachable.
func (s *MessageService) Ping(ctx context.Context) error {
	if s.DB == nil {
		return errors.New("database not configured")
	}
	return repo.Ping(ctx, s.DB)
}

func (s *MessageService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
