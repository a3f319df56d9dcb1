// Package repo implements the data persistence layer for ingested messages,
// backed by GORM. This file provides the insert, lookup, and filtered listing
// functions for the Message model.
package repo

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"gorm.io/gorm"

	"github.com/tbourn/go-webhook-ingest/internal/domain"
)

// ErrDuplicate indicates that a message with the same message_id is
// already stored.
var ErrDuplicate = errors.New("duplicate")

// likeEscaper makes LIKE wildcards in user input match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// foldText applies full Unicode case folding. Stored text and q are folded
// alike; the engine's LOWER() is ASCII-only in SQLite.
func foldText(s string) string {
	return cases.Fold().String(s)
}

// CreateMessage inserts m as a new row and returns ErrDuplicate on a
// primary-key violation. The existing row is never touched.
func CreateMessage(ctx context.Context, db *gorm.DB, m *domain.Message) error {
	if m.Text != nil {
		folded := foldText(*m.Text)
		m.TextFolded = &folded
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// isUniqueViolation recognizes unique/primary-key violations across drivers.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key value")
}

// filterScope applies the AND-combined optional predicates of f.
func filterScope(f domain.MessageFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.From != "" {
			q = q.Where("from_msisdn = ?", f.From)
		}
		if f.Since != "" {
			q = q.Where("ts >= ?", f.Since)
		}
		if f.Q != "" {
			q = q.Where(`text_folded LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(foldText(f.Q))+"%")
		}
		return q
	}
}

// CountMessages returns the number of rows matching f, ignoring pagination.
// It uses a fresh statement so a missing table surfaces as an error.
func CountMessages(ctx context.Context, db *gorm.DB, f domain.MessageFilter) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Message{}).
		Scopes(filterScope(f)).
		Count(&total).Error
	return total, err
}

// ListMessagesPage returns rows matching f ordered deterministically
// (ts ASC, message_id ASC), then sliced by offset/limit.
func ListMessagesPage(ctx context.Context, db *gorm.DB, f domain.MessageFilter, offset, limit int) ([]domain.Message, error) {
	out := []domain.Message{}
	err := db.WithContext(ctx).
		Scopes(filterScope(f)).
		Order("ts ASC, message_id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Ping checks that the database answers a trivial query.
func Ping(ctx context.Context, db *gorm.DB) error {
	var one int
	return db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error
}
