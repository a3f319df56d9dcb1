// Package repo implements the data persistence layer for ingested messages,
// backed by GORM. This file provides the aggregate statistics query behind
// the /stats endpoint.
package repo

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/tbourn/go-webhook-ingest/internal/domain"
)

// TopSenders caps the per-sender breakdown in MessageStats.
const TopSenders = 10

// MessageStats returns aggregate metadata over all stored messages.
//
// It runs four lightweight queries:
//   - total row count
//   - distinct sender count
//   - top TopSenders senders by count (ties broken by sender ascending)
//   - min/max ts (nil when the table is empty)
func MessageStats(ctx context.Context, db *gorm.DB) (*domain.Stats, error) {
	q := db.WithContext(ctx)
	st := &domain.Stats{MessagesPerSender: []domain.SenderCount{}}

	if err := q.Model(&domain.Message{}).Count(&st.TotalMessages).Error; err != nil {
		return nil, err
	}
	if err := q.Model(&domain.Message{}).Distinct("from_msisdn").Count(&st.SendersCount).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		From string `gorm:"column:from_msisdn"`
		Cnt  int64  `gorm:"column:cnt"`
	}
	if err := q.Model(&domain.Message{}).
		Select("from_msisdn, COUNT(*) AS cnt").
		Group("from_msisdn").
		Order("cnt DESC, from_msisdn ASC").
		Limit(TopSenders).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		st.MessagesPerSender = append(st.MessagesPerSender, domain.SenderCount{From: r.From, Count: r.Cnt})
	}

	var first, last sql.NullString
	if err := q.Raw("SELECT MIN(ts), MAX(ts) FROM messages").Row().Scan(&first, &last); err != nil {
		return nil, err
	}
	if first.Valid {
		st.FirstMessageTS = &first.String
	}
	if last.Valid {
		st.LastMessageTS = &last.String
	}
	return st, nil
}
